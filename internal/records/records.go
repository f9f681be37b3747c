// Package records defines the typed records returned by the source connectors.
//
// Every optional upstream field is represented by its zero value (empty string,
// nil slice) unless "unknown" must be distinguished from zero, in which case a
// pointer is used.
package records

// Intervention is a single intervention listed on a clinical trial.
type Intervention struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Outcome is a primary or secondary outcome measure of a trial.
type Outcome struct {
	Measure   string `json:"measure"`
	TimeFrame string `json:"time_frame"`
}

// Trial is a study registered on ClinicalTrials.gov.
type Trial struct {
	NCTID                 string         `json:"nct_id"`
	Title                 string         `json:"title"`
	OfficialTitle         string         `json:"official_title"`
	Status                string         `json:"status"`
	Phase                 []string       `json:"phase"`
	Enrollment            *int           `json:"enrollment,omitempty"`
	StartDate             string         `json:"start_date"`
	PrimaryCompletionDate string         `json:"primary_completion_date"`
	CompletionDate        string         `json:"completion_date"`
	Sponsor               string         `json:"sponsor"`
	Conditions            []string       `json:"conditions"`
	Interventions         []Intervention `json:"interventions"`
	PrimaryOutcomes       []Outcome      `json:"primary_outcomes"`
	SecondaryOutcomes     []Outcome      `json:"secondary_outcomes"`
	BriefSummary          string         `json:"brief_summary"`
	HasResults            bool           `json:"has_results"`
}

// Ingredient is an active ingredient of a drug product.
type Ingredient struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
}

// Product is one marketed product under a drug application.
type Product struct {
	BrandName         string       `json:"brand_name"`
	DosageForm        string       `json:"dosage_form"`
	Route             string       `json:"route"`
	ActiveIngredients []Ingredient `json:"active_ingredients"`
}

// Submission is a regulatory submission under a drug application.
type Submission struct {
	Type                 string `json:"type"`
	ClassCodeDescription string `json:"class_code_description"`
	Status               string `json:"status"`
	StatusDate           string `json:"status_date"`
}

// DrugApproval is a Drugs@FDA application.
type DrugApproval struct {
	ApplicationNumber string       `json:"application_number"`
	SponsorName       string       `json:"sponsor_name"`
	BrandName         string       `json:"brand_name"`
	GenericName       string       `json:"generic_name"`
	Manufacturer      string       `json:"manufacturer"`
	ProductType       string       `json:"product_type"`
	Route             string       `json:"route"`
	Products          []Product    `json:"products"`
	Submissions       []Submission `json:"submissions"`
}

// DrugLabel holds the sections of an FDA structured product label.
type DrugLabel struct {
	BrandName        string `json:"brand_name"`
	GenericName      string `json:"generic_name"`
	Manufacturer     string `json:"manufacturer"`
	Indications      string `json:"indications"`
	BoxedWarning     string `json:"boxed_warning"`
	Warnings         string `json:"warnings"`
	AdverseReactions string `json:"adverse_reactions"`
}

// AdverseEventSummary aggregates FAERS reports for a drug.
type AdverseEventSummary struct {
	TotalReports    int      `json:"total_reports"`
	SeriousCount    int      `json:"serious_count"`
	SampleReactions []string `json:"sample_reactions"`
}

// DeviceClearance is a 510(k) premarket notification decision.
type DeviceClearance struct {
	KNumber                      string `json:"k_number"`
	DeviceName                   string `json:"device_name"`
	Applicant                    string `json:"applicant"`
	DecisionDate                 string `json:"decision_date"`
	DecisionDescription          string `json:"decision_description"`
	ClearanceType                string `json:"clearance_type"`
	ProductCode                  string `json:"product_code"`
	AdvisoryCommitteeDescription string `json:"advisory_committee_description"`
}

// DeviceAdverseEventSummary aggregates MAUDE reports for a device.
type DeviceAdverseEventSummary struct {
	TotalReports int      `json:"total_reports"`
	SeriousCount int      `json:"serious_count"`
	SampleEvents []string `json:"sample_events"`
}

// DeviceRecall is a single device recall record.
//
// Classification is only populated when the upstream record carries an
// explicit recall classification.
type DeviceRecall struct {
	RecallNumber       string `json:"recall_number"`
	ProductDescription string `json:"product_description"`
	ReasonForRecall    string `json:"reason_for_recall"`
	Status             string `json:"status"`
	Classification     string `json:"classification"`
	RecallingFirm      string `json:"recalling_firm"`
	EventDate          string `json:"event_date"`
	ProductCode        string `json:"product_code"`
}

// Company identifies a registrant in SEC EDGAR.
type Company struct {
	CIK    string `json:"cik"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// Filing is an SEC filing index entry.
type Filing struct {
	FormType        string `json:"form_type"`
	FilingDate      string `json:"filing_date"`
	AccessionNumber string `json:"accession_number"`
	PrimaryDocument string `json:"primary_document"`
	Description     string `json:"description"`
	FilingURL       string `json:"filing_url"`
	CompanyName     string `json:"company_name"`
}

// Fact is the most recent reported value of an XBRL concept.
type Fact struct {
	Value     float64 `json:"value"`
	PeriodEnd string  `json:"period_end"`
	Form      string  `json:"form"`
	Concept   string  `json:"concept"`
}

// FinancialFacts are the headline XBRL facts of a company.
type FinancialFacts struct {
	CompanyName string          `json:"company_name"`
	CIK         string          `json:"cik"`
	Metrics     map[string]Fact `json:"metrics"`
}

// MarketSnapshot is a point-in-time market quote. Nil fields are unknown.
type MarketSnapshot struct {
	Ticker           string   `json:"ticker"`
	Name             string   `json:"name"`
	Currency         string   `json:"currency"`
	Exchange         string   `json:"exchange"`
	CurrentPrice     *float64 `json:"current_price,omitempty"`
	PreviousClose    *float64 `json:"previous_close,omitempty"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low,omitempty"`
	DayVolume        *float64 `json:"day_volume,omitempty"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
}
