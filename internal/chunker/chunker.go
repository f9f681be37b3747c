// Package chunker converts connector records into citation-bearing passages.
//
// Every function here is pure and total: missing fields render as neutral
// defaults ("N/A", "Unknown") and no input makes a function fail. Each
// passage carries a source_url derived from the record's natural key so that
// citations survive re-ingestion unchanged.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// Caps applied to adverse-event summaries.
const (
	MaxReactionTerms   = 20
	MaxEventNarratives = 5
	MaxNarrativeRunes  = 300
)

const (
	noLabelInformation   = "No detailed label information available."
	unknownValue         = "Unknown"
	notAvailable         = "N/A"
	faersDashboardURL    = "https://fis.fda.gov/extensions/FPD-QDE-FAERS/FPD-QDE-FAERS.html"
	maudeSearchURL       = "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfmaude/search.cfm"
	deviceRecallURL      = "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfres/res.cfm"
	trialURLPrefix       = "https://clinicaltrials.gov/study/"
	drugsAtFDAURLPrefix  = "https://www.accessdata.fda.gov/scripts/cder/daf/index.cfm?event=overview.process&ApplNo="
	dailyMedURLPrefix    = "https://dailymed.nlm.nih.gov/dailymed/search.cfm?labeltype=all&query="
	premarketURLPrefix   = "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfpmn/pmn.cfm?ID="
	edgarCompanyURL      = "https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK="
	companyFactsURLFmt   = "https://data.sec.gov/api/xbrl/companyfacts/CIK%s.json"
	marketQuoteURLPrefix = "https://finance.yahoo.com/quote/"
)

// TrialURL is the registry page of a trial.
func TrialURL(nctID string) string {
	return trialURLPrefix + nctID
}

// Trial renders one registry study as a single passage.
func Trial(t records.Trial) []passage.Passage {
	nctID := orDefault(t.NCTID, unknownValue)
	sourceURL := TrialURL(t.NCTID)
	phase := PhaseDisplay(t.Phase)
	status := orDefault(t.Status, unknownValue)
	sponsor := orDefault(t.Sponsor, unknownValue)

	enrollment := notAvailable
	if t.Enrollment != nil {
		enrollment = fmt.Sprintf("%d", *t.Enrollment)
	}

	names := make([]string, 0, len(t.Interventions))
	for _, iv := range t.Interventions {
		if iv.Name != "" {
			names = append(names, iv.Name)
		}
	}
	interventions := strings.Join(names, ", ")

	var outcomes strings.Builder
	for _, o := range t.PrimaryOutcomes {
		fmt.Fprintf(&outcomes, "  - %s (%s)\n", orDefault(o.Measure, unknownValue), orDefault(o.TimeFrame, notAvailable))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Clinical Trial: %s\n", orDefault(t.Title, orDefault(t.OfficialTitle, "Untitled study")))
	fmt.Fprintf(&b, "NCT ID: %s\n", nctID)
	fmt.Fprintf(&b, "Source: %s\n", sourceURL)
	fmt.Fprintf(&b, "Phase: %s\n", phase)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Sponsor: %s\n", sponsor)
	fmt.Fprintf(&b, "Enrollment: %s\n", enrollment)
	fmt.Fprintf(&b, "Conditions: %s\n", orDefault(strings.Join(t.Conditions, ", "), notAvailable))
	fmt.Fprintf(&b, "Interventions: %s\n", orDefault(interventions, notAvailable))
	fmt.Fprintf(&b, "Start Date: %s\n", orDefault(t.StartDate, notAvailable))
	fmt.Fprintf(&b, "Primary Completion Date: %s\n", orDefault(t.PrimaryCompletionDate, notAvailable))
	fmt.Fprintf(&b, "Primary Outcomes:\n%s", outcomes.String())
	fmt.Fprintf(&b, "Summary: %s", t.BriefSummary)

	return []passage.Passage{{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:    passage.SourceClinicalTrials,
			passage.MetaSourceURL: sourceURL,
			passage.MetaNCTID:     t.NCTID,
			passage.MetaCompany:   t.Sponsor,
			passage.MetaDrugName:  interventions,
			passage.MetaPhase:     phase,
			passage.MetaStatus:    status,
			passage.MetaDate:      t.StartDate,
		},
	}}
}

// DrugApprovalURL is the Drugs@FDA overview page of an application. Only the
// digits of the application number are used.
func DrugApprovalURL(applicationNumber string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, applicationNumber)
	return drugsAtFDAURLPrefix + digits
}

// DrugApproval renders one drug application as a single passage.
func DrugApproval(a records.DrugApproval) []passage.Passage {
	sourceURL := DrugApprovalURL(a.ApplicationNumber)
	brand := orDefault(a.BrandName, unknownValue)

	var products strings.Builder
	for _, p := range a.Products {
		ingredients := make([]string, 0, len(p.ActiveIngredients))
		for _, in := range p.ActiveIngredients {
			ingredients = append(ingredients, strings.TrimSpace(in.Name+" "+in.Strength))
		}
		fmt.Fprintf(&products, "  - %s (%s, %s): %s\n",
			orDefault(p.BrandName, brand), orDefault(p.DosageForm, notAvailable),
			orDefault(p.Route, notAvailable), strings.Join(ingredients, ", "))
	}

	var submissions strings.Builder
	for _, s := range a.Submissions {
		fmt.Fprintf(&submissions, "  - %s (%s): %s on %s\n",
			orDefault(s.Type, unknownValue), orDefault(s.ClassCodeDescription, notAvailable),
			orDefault(s.Status, unknownValue), orDefault(FormatDate(s.StatusDate), notAvailable))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FDA Drug Application: %s (%s)\n", brand, orDefault(a.GenericName, notAvailable))
	fmt.Fprintf(&b, "Application Number: %s\n", orDefault(a.ApplicationNumber, unknownValue))
	fmt.Fprintf(&b, "Source: %s\n", sourceURL)
	fmt.Fprintf(&b, "Manufacturer: %s\n", orDefault(a.Manufacturer, orDefault(a.SponsorName, unknownValue)))
	fmt.Fprintf(&b, "Products:\n%s", products.String())
	fmt.Fprintf(&b, "Submissions:\n%s", submissions.String())

	return []passage.Passage{{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:            passage.SourceFDAApproval,
			passage.MetaSourceURL:         sourceURL,
			passage.MetaDrugName:          a.BrandName,
			passage.MetaCompany:           orDefault(a.Manufacturer, a.SponsorName),
			passage.MetaApplicationNumber: a.ApplicationNumber,
		},
	}}
}

// DrugLabelURL is the DailyMed search page for a brand name.
func DrugLabelURL(brand string) string {
	return dailyMedURLPrefix + strings.ReplaceAll(brand, " ", "+")
}

type labelSection struct {
	key     string
	title   string
	content string
}

// DrugLabel renders one passage per non-empty label section, in the order
// indications, boxed warning, warnings, adverse reactions. A label without
// any content still yields exactly one summary passage.
func DrugLabel(l records.DrugLabel) []passage.Passage {
	drug := orDefault(l.BrandName, unknownValue)
	sourceURL := DrugLabelURL(drug)

	sections := []labelSection{
		{"indications", "Indications", l.Indications},
		{"boxed_warning", "Boxed Warning", l.BoxedWarning},
		{"warnings", "Warnings", l.Warnings},
		{"adverse_reactions", "Adverse Reactions", l.AdverseReactions},
	}

	meta := func(section string) map[string]string {
		return map[string]string{
			passage.MetaSource:    passage.SourceFDALabel,
			passage.MetaSourceURL: sourceURL,
			passage.MetaDrugName:  drug,
			passage.MetaCompany:   l.Manufacturer,
			passage.MetaSection:   section,
		}
	}

	var out []passage.Passage
	for _, s := range sections {
		if strings.TrimSpace(s.content) == "" {
			continue
		}
		text := fmt.Sprintf("FDA Label - %s (%s) - %s\nSource: %s\n\n%s",
			drug, orDefault(l.GenericName, notAvailable), s.title, sourceURL, s.content)
		out = append(out, passage.Passage{Text: text, Metadata: meta(s.key)})
	}
	if len(out) == 0 {
		out = append(out, passage.Passage{
			Text:     fmt.Sprintf("FDA Label for %s: %s", drug, noLabelInformation),
			Metadata: meta("summary"),
		})
	}
	return out
}

// AdverseEvents renders a FAERS summary for a drug as one passage. At most
// MaxReactionTerms distinct reaction terms are listed.
func AdverseEvents(drug string, s records.AdverseEventSummary) []passage.Passage {
	drug = orDefault(drug, unknownValue)
	reactions := distinct(s.SampleReactions, MaxReactionTerms)

	var b strings.Builder
	fmt.Fprintf(&b, "Adverse Events Summary for %s\n", drug)
	fmt.Fprintf(&b, "Source: %s\n", faersDashboardURL)
	fmt.Fprintf(&b, "Total FAERS Reports: %s\n", FormatCount(s.TotalReports))
	fmt.Fprintf(&b, "Serious Reports in Sample: %d\n", s.SeriousCount)
	fmt.Fprintf(&b, "Common Reactions: %s", orDefault(strings.Join(reactions, ", "), notAvailable))

	return []passage.Passage{{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:    passage.SourceFDAAdverseEvents,
			passage.MetaSourceURL: faersDashboardURL,
			passage.MetaDrugName:  drug,
		},
	}}
}
