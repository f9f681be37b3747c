package openfda

import (
	"strings"

	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type searchEnvelope interface {
	upstreamError() *apiError
}

type envelope struct {
	Error *apiError `json:"error"`
	Meta  struct {
		Results struct {
			Total int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
}

func (e *envelope) upstreamError() *apiError { return e.Error }

// first returns the first element of an openFDA list field or "".
func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

type openFDAFields struct {
	BrandName        []string `json:"brand_name"`
	GenericName      []string `json:"generic_name"`
	ManufacturerName []string `json:"manufacturer_name"`
	ProductType      []string `json:"product_type"`
	Route            []string `json:"route"`
}

// Drugs@FDA

type ingredient struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
}

type product struct {
	BrandName         string       `json:"brand_name"`
	DosageForm        string       `json:"dosage_form"`
	Route             string       `json:"route"`
	ActiveIngredients []ingredient `json:"active_ingredients"`
}

type submission struct {
	Type                 string `json:"submission_type"`
	ClassCodeDescription string `json:"submission_class_code_description"`
	Status               string `json:"submission_status"`
	StatusDate           string `json:"submission_status_date"`
}

type application struct {
	ApplicationNumber string        `json:"application_number"`
	SponsorName       string        `json:"sponsor_name"`
	OpenFDA           openFDAFields `json:"openfda"`
	Products          []product     `json:"products"`
	Submissions       []submission  `json:"submissions"`
}

type drugsFDAResponse struct {
	envelope
	Results []application `json:"results"`
}

func (a application) toRecord() records.DrugApproval {
	r := records.DrugApproval{
		ApplicationNumber: a.ApplicationNumber,
		SponsorName:       a.SponsorName,
		BrandName:         first(a.OpenFDA.BrandName),
		GenericName:       first(a.OpenFDA.GenericName),
		Manufacturer:      first(a.OpenFDA.ManufacturerName),
		ProductType:       first(a.OpenFDA.ProductType),
		Route:             first(a.OpenFDA.Route),
	}
	for _, p := range a.Products {
		rp := records.Product{BrandName: p.BrandName, DosageForm: p.DosageForm, Route: p.Route}
		for _, in := range p.ActiveIngredients {
			rp.ActiveIngredients = append(rp.ActiveIngredients, records.Ingredient{Name: in.Name, Strength: in.Strength})
		}
		r.Products = append(r.Products, rp)
	}
	for _, s := range a.Submissions {
		r.Submissions = append(r.Submissions, records.Submission{
			Type:                 s.Type,
			ClassCodeDescription: s.ClassCodeDescription,
			Status:               s.Status,
			StatusDate:           s.StatusDate,
		})
	}
	return r
}

// Drug labels

type label struct {
	OpenFDA             openFDAFields `json:"openfda"`
	IndicationsAndUsage []string      `json:"indications_and_usage"`
	BoxedWarning        []string      `json:"boxed_warning"`
	WarningsAndCautions []string      `json:"warnings_and_cautions"`
	Warnings            []string      `json:"warnings"`
	AdverseReactions    []string      `json:"adverse_reactions"`
}

type labelResponse struct {
	envelope
	Results []label `json:"results"`
}

func (l label) toRecord() records.DrugLabel {
	warnings := first(l.WarningsAndCautions)
	if warnings == "" {
		// Older labels only carry the plain warnings section.
		warnings = first(l.Warnings)
	}
	return records.DrugLabel{
		BrandName:        first(l.OpenFDA.BrandName),
		GenericName:      first(l.OpenFDA.GenericName),
		Manufacturer:     first(l.OpenFDA.ManufacturerName),
		Indications:      first(l.IndicationsAndUsage),
		BoxedWarning:     first(l.BoxedWarning),
		Warnings:         warnings,
		AdverseReactions: first(l.AdverseReactions),
	}
}

// FAERS

type drugEvent struct {
	Serious string `json:"serious"`
	Patient struct {
		Reaction []struct {
			Term string `json:"reactionmeddrapt"`
		} `json:"reaction"`
	} `json:"patient"`
}

type drugEventResponse struct {
	envelope
	Results []drugEvent `json:"results"`
}

func (r *drugEventResponse) summarize() records.AdverseEventSummary {
	s := records.AdverseEventSummary{TotalReports: r.Meta.Results.Total}
	seen := map[string]struct{}{}
	for _, ev := range r.Results {
		if ev.Serious == "1" {
			s.SeriousCount++
		}
		for _, re := range ev.Patient.Reaction {
			if re.Term == "" {
				continue
			}
			if _, ok := seen[re.Term]; ok {
				continue
			}
			seen[re.Term] = struct{}{}
			if len(s.SampleReactions) < maxReactionTerms {
				s.SampleReactions = append(s.SampleReactions, re.Term)
			}
		}
	}
	return s
}

// 510(k)

type clearance struct {
	KNumber                      string `json:"k_number"`
	DeviceName                   string `json:"device_name"`
	Applicant                    string `json:"applicant"`
	DecisionDate                 string `json:"decision_date"`
	DecisionDescription          string `json:"decision_description"`
	ClearanceType                string `json:"clearance_type"`
	ProductCode                  string `json:"product_code"`
	AdvisoryCommitteeDescription string `json:"advisory_committee_description"`
}

type clearanceResponse struct {
	envelope
	Results []clearance `json:"results"`
}

func (c clearance) toRecord() records.DeviceClearance {
	return records.DeviceClearance{
		KNumber:                      c.KNumber,
		DeviceName:                   c.DeviceName,
		Applicant:                    c.Applicant,
		DecisionDate:                 c.DecisionDate,
		DecisionDescription:          c.DecisionDescription,
		ClearanceType:                c.ClearanceType,
		ProductCode:                  c.ProductCode,
		AdvisoryCommitteeDescription: c.AdvisoryCommitteeDescription,
	}
}

// MAUDE

type deviceEvent struct {
	EventType string `json:"event_type"`
	MDRText   []struct {
		Text         string `json:"text"`
		TextTypeCode string `json:"text_type_code"`
	} `json:"mdr_text"`
}

type deviceEventResponse struct {
	envelope
	Results []deviceEvent `json:"results"`
}

func (r *deviceEventResponse) summarize() records.DeviceAdverseEventSummary {
	s := records.DeviceAdverseEventSummary{TotalReports: r.Meta.Results.Total}
	for _, ev := range r.Results {
		switch strings.ToLower(ev.EventType) {
		case "death", "injury":
			s.SeriousCount++
		}
		if len(s.SampleEvents) >= maxEventNarrativeSamples {
			continue
		}
		for _, t := range ev.MDRText {
			text := strings.TrimSpace(t.Text)
			if text == "" {
				continue
			}
			s.SampleEvents = append(s.SampleEvents, truncate(text, maxNarrativeRunes))
			break
		}
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Recalls

type recall struct {
	ProductResNumber   string `json:"product_res_number"`
	ResEventNumber     string `json:"res_event_number"`
	ProductDescription string `json:"product_description"`
	ReasonForRecall    string `json:"reason_for_recall"`
	RecallStatus       string `json:"recall_status"`
	Classification     string `json:"classification"`
	RecallingFirm      string `json:"recalling_firm"`
	EventDateInitiated string `json:"event_date_initiated"`
	ProductCode        string `json:"product_code"`
}

type recallResponse struct {
	envelope
	Results []recall `json:"results"`
}

func (r recall) toRecord() records.DeviceRecall {
	number := r.ProductResNumber
	if number == "" {
		number = r.ResEventNumber
	}
	return records.DeviceRecall{
		RecallNumber:       number,
		ProductDescription: r.ProductDescription,
		ReasonForRecall:    r.ReasonForRecall,
		Status:             r.RecallStatus,
		Classification:     r.Classification,
		RecallingFirm:      r.RecallingFirm,
		EventDate:          r.EventDateInitiated,
		ProductCode:        r.ProductCode,
	}
}
