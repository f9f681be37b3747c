package clinicaltrials

import "github.com/fyrsmithlabs/pharmadd/internal/records"

type studiesResponse struct {
	Studies       []study `json:"studies"`
	NextPageToken string  `json:"nextPageToken"`
}

type study struct {
	Protocol   protocolSection `json:"protocolSection"`
	HasResults bool            `json:"hasResults"`
}

type dateStruct struct {
	Date string `json:"date"`
}

type outcome struct {
	Measure   string `json:"measure"`
	TimeFrame string `json:"timeFrame"`
}

type protocolSection struct {
	Identification struct {
		NCTID         string `json:"nctId"`
		BriefTitle    string `json:"briefTitle"`
		OfficialTitle string `json:"officialTitle"`
	} `json:"identificationModule"`
	Status struct {
		OverallStatus         string     `json:"overallStatus"`
		StartDate             dateStruct `json:"startDateStruct"`
		PrimaryCompletionDate dateStruct `json:"primaryCompletionDateStruct"`
		CompletionDate        dateStruct `json:"completionDateStruct"`
	} `json:"statusModule"`
	Design struct {
		Phases         []string `json:"phases"`
		EnrollmentInfo struct {
			Count *int `json:"count"`
		} `json:"enrollmentInfo"`
	} `json:"designModule"`
	Conditions struct {
		Conditions []string `json:"conditions"`
	} `json:"conditionsModule"`
	ArmsInterventions struct {
		Interventions []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"interventions"`
	} `json:"armsInterventionsModule"`
	Outcomes struct {
		Primary   []outcome `json:"primaryOutcomes"`
		Secondary []outcome `json:"secondaryOutcomes"`
	} `json:"outcomesModule"`
	Sponsors struct {
		LeadSponsor struct {
			Name string `json:"name"`
		} `json:"leadSponsor"`
	} `json:"sponsorCollaboratorsModule"`
	Description struct {
		BriefSummary string `json:"briefSummary"`
	} `json:"descriptionModule"`
}

func (s study) toRecord() records.Trial {
	p := s.Protocol
	t := records.Trial{
		NCTID:                 p.Identification.NCTID,
		Title:                 p.Identification.BriefTitle,
		OfficialTitle:         p.Identification.OfficialTitle,
		Status:                p.Status.OverallStatus,
		Phase:                 p.Design.Phases,
		Enrollment:            p.Design.EnrollmentInfo.Count,
		StartDate:             p.Status.StartDate.Date,
		PrimaryCompletionDate: p.Status.PrimaryCompletionDate.Date,
		CompletionDate:        p.Status.CompletionDate.Date,
		Sponsor:               p.Sponsors.LeadSponsor.Name,
		Conditions:            p.Conditions.Conditions,
		BriefSummary:          p.Description.BriefSummary,
		HasResults:            s.HasResults,
	}
	for _, iv := range p.ArmsInterventions.Interventions {
		typ := iv.Type
		if typ == "" {
			typ = "UNKNOWN"
		}
		t.Interventions = append(t.Interventions, records.Intervention{Name: iv.Name, Type: typ})
	}
	t.PrimaryOutcomes = convertOutcomes(p.Outcomes.Primary)
	t.SecondaryOutcomes = convertOutcomes(p.Outcomes.Secondary)
	return t
}

func convertOutcomes(in []outcome) []records.Outcome {
	if len(in) == 0 {
		return nil
	}
	out := make([]records.Outcome, len(in))
	for i, o := range in {
		out[i] = records.Outcome{Measure: o.Measure, TimeFrame: o.TimeFrame}
	}
	return out
}
