package chunker

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// Financial metric keys, in rendering order.
const (
	MetricRevenue            = "revenue"
	MetricNetIncome          = "net_income"
	MetricOperatingIncome    = "operating_income"
	MetricResearch           = "research_and_development"
	MetricTotalAssets        = "total_assets"
	MetricTotalLiabilities   = "total_liabilities"
	MetricStockholdersEquity = "stockholders_equity"
	MetricCash               = "cash_and_equivalents"
	MetricTotalDebt          = "total_debt"
	MetricEPS                = "eps"
)

type metricLabel struct {
	key   string
	label string
}

var metricOrder = []metricLabel{
	{MetricRevenue, "Revenue"},
	{MetricNetIncome, "Net Income"},
	{MetricOperatingIncome, "Operating Income"},
	{MetricResearch, "R&D Expense"},
	{MetricTotalAssets, "Total Assets"},
	{MetricTotalLiabilities, "Total Liabilities"},
	{MetricStockholdersEquity, "Stockholders' Equity"},
	{MetricCash, "Cash and Equivalents"},
	{MetricTotalDebt, "Total Debt"},
	{MetricEPS, "EPS (Diluted)"},
}

// MetricKeys lists every financial metric the chunker renders.
func MetricKeys() []string {
	keys := make([]string, len(metricOrder))
	for i, m := range metricOrder {
		keys[i] = m.key
	}
	return keys
}

// EdgarCompanyURL is the EDGAR filing index of a company.
func EdgarCompanyURL(cik string) string {
	return edgarCompanyURL + cik
}

// Filings summarizes a filing batch as one passage. An empty batch yields
// no passage.
func Filings(company records.Company, filings []records.Filing) []passage.Passage {
	if len(filings) == 0 {
		return nil
	}
	name := orDefault(company.Name, orDefault(filings[0].CompanyName, unknownValue))
	sourceURL := EdgarCompanyURL(company.CIK)

	var b strings.Builder
	fmt.Fprintf(&b, "SEC Filings for %s\n", name)
	fmt.Fprintf(&b, "Source: %s\n", sourceURL)
	fmt.Fprintf(&b, "Recent Filings: %d", len(filings))
	for _, f := range filings {
		fmt.Fprintf(&b, "\n  - %s filed %s: %s (%s)",
			orDefault(f.FormType, unknownValue),
			orDefault(f.FilingDate, notAvailable),
			orDefault(f.Description, notAvailable),
			orDefault(f.FilingURL, sourceURL))
	}

	return []passage.Passage{{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:    passage.SourceSECFilings,
			passage.MetaSourceURL: sourceURL,
			passage.MetaCompany:   name,
			passage.MetaCIK:       company.CIK,
			passage.MetaTicker:    company.Ticker,
		},
	}}
}

// MarketQuoteURL is the public quote page of a ticker.
func MarketQuoteURL(ticker string) string {
	return marketQuoteURLPrefix + ticker
}

// Financials renders up to two passages: reported XBRL facts when at least
// one metric is present, and the market snapshot when one is available.
func Financials(company records.Company, facts *records.FinancialFacts, market *records.MarketSnapshot) []passage.Passage {
	var out []passage.Passage
	if p, ok := factsPassage(company, facts); ok {
		out = append(out, p)
	}
	if market != nil {
		out = append(out, marketPassage(company, market))
	}
	return out
}

func factsPassage(company records.Company, facts *records.FinancialFacts) (passage.Passage, bool) {
	if facts == nil || len(facts.Metrics) == 0 {
		return passage.Passage{}, false
	}
	cik := orDefault(company.CIK, facts.CIK)
	name := orDefault(facts.CompanyName, orDefault(company.Name, unknownValue))
	sourceURL := fmt.Sprintf(companyFactsURLFmt, cik)

	var lines []string
	for _, m := range metricOrder {
		fact, ok := facts.Metrics[m.key]
		if !ok {
			continue
		}
		value := FormatDollars(fact.Value)
		if m.key == MetricEPS {
			value = FormatPrice(fact.Value)
		}
		lines = append(lines, fmt.Sprintf("  - %s: %s (period ending %s, %s)",
			m.label, value, orDefault(fact.PeriodEnd, notAvailable), orDefault(fact.Form, notAvailable)))
	}
	if len(lines) == 0 {
		return passage.Passage{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SEC Financial Data for %s (CIK %s)\n", name, orDefault(cik, notAvailable))
	fmt.Fprintf(&b, "Source: %s\n", sourceURL)
	b.WriteString("Reported Financials:\n")
	b.WriteString(strings.Join(lines, "\n"))

	return passage.Passage{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:    passage.SourceSECFinancials,
			passage.MetaSourceURL: sourceURL,
			passage.MetaCompany:   name,
			passage.MetaCIK:       cik,
			passage.MetaTicker:    company.Ticker,
		},
	}, true
}

func marketPassage(company records.Company, m *records.MarketSnapshot) passage.Passage {
	ticker := strings.ToUpper(orDefault(m.Ticker, company.Ticker))
	sourceURL := MarketQuoteURL(ticker)
	name := orDefault(m.Name, orDefault(company.Name, ticker))

	var b strings.Builder
	fmt.Fprintf(&b, "Market Data for %s (%s)\n", name, orDefault(ticker, unknownValue))
	fmt.Fprintf(&b, "Source: %s\n", sourceURL)
	fmt.Fprintf(&b, "Current Price: %s", FormatPrice(m.CurrentPrice))
	if m.Currency != "" {
		fmt.Fprintf(&b, " %s", m.Currency)
	}
	fmt.Fprintf(&b, "\nPrevious Close: %s\n", FormatPrice(m.PreviousClose))
	fmt.Fprintf(&b, "52-Week High: %s\n", FormatPrice(m.FiftyTwoWeekHigh))
	fmt.Fprintf(&b, "52-Week Low: %s\n", FormatPrice(m.FiftyTwoWeekLow))
	fmt.Fprintf(&b, "Market Cap: %s\n", FormatDollars(m.MarketCap))
	volume := notAvailable
	if m.DayVolume != nil {
		volume = FormatCount(int(*m.DayVolume))
	}
	fmt.Fprintf(&b, "Volume: %s\n", volume)
	fmt.Fprintf(&b, "Exchange: %s", orDefault(m.Exchange, notAvailable))

	return passage.Passage{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:    passage.SourceMarketData,
			passage.MetaSourceURL: sourceURL,
			passage.MetaCompany:   name,
			passage.MetaTicker:    ticker,
		},
	}
}
