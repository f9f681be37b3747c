// Package secedgar is a client for SEC EDGAR company lookups, filing indexes
// and XBRL company facts.
package secedgar

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/connectors"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// Upstream endpoints.
const (
	DefaultTickersURL     = "https://www.sec.gov/files/company_tickers.json"
	DefaultDataURL        = "https://data.sec.gov"
	DefaultArchivesURL    = "https://www.sec.gov/Archives/edgar/data"
	DefaultUserAgent      = "Pharma DD Chatbot contact@example.com"
	DefaultFilingLimit    = 10
	submissionsPathFormat = "/submissions/CIK%s.json"
	companyFactsPathFmt   = "/api/xbrl/companyfacts/CIK%s.json"
)

// DefaultFilingTypes are the forms returned when the caller names none.
var DefaultFilingTypes = []string{"10-K", "10-Q", "8-K"}

// concepts maps each financial metric to the XBRL concepts tried in order.
var concepts = []struct {
	metric string
	names  []string
}{
	{"revenue", []string{"Revenues", "RevenueFromContractWithCustomerExcludingAssessedTax", "SalesRevenueNet", "RevenueFromContractWithCustomerIncludingAssessedTax"}},
	{"net_income", []string{"NetIncomeLoss", "ProfitLoss"}},
	{"total_assets", []string{"Assets"}},
	{"total_liabilities", []string{"Liabilities"}},
	{"stockholders_equity", []string{"StockholdersEquity", "StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"}},
	{"cash_and_equivalents", []string{"CashAndCashEquivalentsAtCarryingValue", "CashCashEquivalentsAndShortTermInvestments"}},
	{"total_debt", []string{"LongTermDebt", "LongTermDebtAndCapitalLeaseObligations"}},
	{"research_and_development", []string{"ResearchAndDevelopmentExpense"}},
	{"operating_income", []string{"OperatingIncomeLoss"}},
	{"eps", []string{"EarningsPerShareDiluted", "EarningsPerShareBasic"}},
}

// Config configures the client.
type Config struct {
	TickersURL  string
	DataURL     string
	ArchivesURL string
	// UserAgent is mandatory for EDGAR; the default identifies the service.
	UserAgent  string
	HTTPClient *http.Client
	// Tickers overrides the lazily loaded ticker table.
	Tickers *TickerCache
}

// Client queries SEC EDGAR.
type Client struct {
	tickersURL  string
	dataURL     string
	archivesURL string
	fetcher     *connectors.Fetcher
	tickers     *TickerCache
}

// New creates a client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.TickersURL == "" {
		cfg.TickersURL = DefaultTickersURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = DefaultDataURL
	}
	if cfg.ArchivesURL == "" {
		cfg.ArchivesURL = DefaultArchivesURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		tickersURL:  cfg.TickersURL,
		dataURL:     strings.TrimRight(cfg.DataURL, "/"),
		archivesURL: strings.TrimRight(cfg.ArchivesURL, "/"),
		fetcher: connectors.NewFetcher(cfg.HTTPClient, logger.Named("secedgar"), http.Header{
			"User-Agent": {cfg.UserAgent},
		}),
		tickers: cfg.Tickers,
	}
	if c.tickers == nil {
		c.tickers = NewTickerCache(c.loadTickers)
	}
	return c
}

// Tickers returns the client's ticker cache.
func (c *Client) Tickers() *TickerCache {
	return c.tickers
}

func (c *Client) loadTickers(ctx context.Context) ([]records.Company, error) {
	var table map[string]tickerEntry
	if err := c.fetcher.GetJSON(ctx, "secedgar.tickers", c.tickersURL, nil, &table); err != nil {
		return nil, err
	}
	return companiesFromTable(table), nil
}

// PadCIK left-pads a CIK with zeros to ten digits.
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}

// LookupCompany resolves a ticker or company name. It returns nil when the
// registry has no match.
func (c *Client) LookupCompany(ctx context.Context, query string) (*records.Company, error) {
	return c.tickers.Lookup(ctx, query)
}

type submissions struct {
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			Form                  []string `json:"form"`
			FilingDate            []string `json:"filingDate"`
			AccessionNumber       []string `json:"accessionNumber"`
			PrimaryDocument       []string `json:"primaryDocument"`
			PrimaryDocDescription []string `json:"primaryDocDescription"`
		} `json:"recent"`
	} `json:"filings"`
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// Filings returns the most recent filings of the given form types, newest
// first as listed by EDGAR. Empty types select DefaultFilingTypes.
func (c *Client) Filings(ctx context.Context, cik string, types []string, limit int) ([]records.Filing, error) {
	if len(types) == 0 {
		types = DefaultFilingTypes
	}
	if limit <= 0 {
		limit = DefaultFilingLimit
	}
	cik = PadCIK(cik)

	var resp submissions
	if err := c.fetcher.GetJSON(ctx, "secedgar.submissions", c.dataURL+fmt.Sprintf(submissionsPathFormat, cik), nil, &resp); err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}

	recent := resp.Filings.Recent
	unpadded := strings.TrimLeft(cik, "0")
	var out []records.Filing
	for i, form := range recent.Form {
		if _, ok := wanted[form]; !ok {
			continue
		}
		accession := at(recent.AccessionNumber, i)
		doc := at(recent.PrimaryDocument, i)
		out = append(out, records.Filing{
			FormType:        form,
			FilingDate:      at(recent.FilingDate, i),
			AccessionNumber: accession,
			PrimaryDocument: doc,
			Description:     at(recent.PrimaryDocDescription, i),
			FilingURL:       fmt.Sprintf("%s/%s/%s/%s", c.archivesURL, unpadded, strings.ReplaceAll(accession, "-", ""), doc),
			CompanyName:     resp.Name,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type factValue struct {
	Val  float64 `json:"val"`
	End  string  `json:"end"`
	Form string  `json:"form"`
}

type companyFacts struct {
	EntityName string `json:"entityName"`
	Facts      struct {
		USGAAP map[string]struct {
			Units map[string][]factValue `json:"units"`
		} `json:"us-gaap"`
	} `json:"facts"`
}

// latestAnnual picks the newest 10-K value of a concept, falling back to the
// newest value of any form.
func (f *companyFacts) latestAnnual(concept string) (records.Fact, bool) {
	c, ok := f.Facts.USGAAP[concept]
	if !ok {
		return records.Fact{}, false
	}
	var values []factValue
	for _, unit := range []string{"USD", "USD/shares", "shares"} {
		if v := c.Units[unit]; len(v) > 0 {
			values = v
			break
		}
	}
	if len(values) == 0 {
		return records.Fact{}, false
	}

	var annual []factValue
	for _, v := range values {
		if v.Form == "10-K" {
			annual = append(annual, v)
		}
	}
	if len(annual) == 0 {
		annual = append(annual, values...)
	}
	sort.SliceStable(annual, func(i, j int) bool { return annual[i].End > annual[j].End })

	latest := annual[0]
	return records.Fact{Value: latest.Val, PeriodEnd: latest.End, Form: latest.Form, Concept: concept}, true
}

// CompanyFacts returns the headline XBRL metrics of a company.
func (c *Client) CompanyFacts(ctx context.Context, cik string) (*records.FinancialFacts, error) {
	cik = PadCIK(cik)
	var resp companyFacts
	if err := c.fetcher.GetJSON(ctx, "secedgar.companyfacts", c.dataURL+fmt.Sprintf(companyFactsPathFmt, cik), nil, &resp); err != nil {
		return nil, err
	}

	facts := &records.FinancialFacts{
		CompanyName: resp.EntityName,
		CIK:         cik,
		Metrics:     map[string]records.Fact{},
	}
	for _, c := range concepts {
		for _, name := range c.names {
			if fact, ok := resp.latestAnnual(name); ok {
				facts.Metrics[c.metric] = fact
				break
			}
		}
	}
	return facts, nil
}
