package chunker

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// DeviceClearanceURL is the premarket notification page of a 510(k).
func DeviceClearanceURL(kNumber string) string {
	return premarketURLPrefix + kNumber
}

// DeviceClearance renders one 510(k) decision as a single passage.
func DeviceClearance(c records.DeviceClearance) []passage.Passage {
	sourceURL := DeviceClearanceURL(c.KNumber)

	var b strings.Builder
	fmt.Fprintf(&b, "FDA Device 510(k) Clearance: %s\n", orDefault(c.DeviceName, unknownValue))
	fmt.Fprintf(&b, "510(k) Number: %s\n", orDefault(c.KNumber, unknownValue))
	fmt.Fprintf(&b, "Source: %s\n", sourceURL)
	fmt.Fprintf(&b, "Applicant: %s\n", orDefault(c.Applicant, unknownValue))
	fmt.Fprintf(&b, "Decision: %s on %s\n", orDefault(c.DecisionDescription, unknownValue), orDefault(FormatDate(c.DecisionDate), notAvailable))
	fmt.Fprintf(&b, "Clearance Type: %s\n", orDefault(c.ClearanceType, notAvailable))
	fmt.Fprintf(&b, "Product Code: %s\n", orDefault(c.ProductCode, notAvailable))
	fmt.Fprintf(&b, "Advisory Committee: %s", orDefault(c.AdvisoryCommitteeDescription, notAvailable))

	return []passage.Passage{{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:          passage.SourceDeviceClearance,
			passage.MetaSourceURL:       sourceURL,
			passage.MetaDeviceName:      c.DeviceName,
			passage.MetaCompany:         c.Applicant,
			passage.MetaClearanceNumber: c.KNumber,
		},
	}}
}

// DeviceAdverseEvents renders a MAUDE summary for a device as one passage.
// At most MaxEventNarratives narratives are kept, each cut to
// MaxNarrativeRunes.
func DeviceAdverseEvents(device string, s records.DeviceAdverseEventSummary) []passage.Passage {
	device = orDefault(device, unknownValue)

	var b strings.Builder
	fmt.Fprintf(&b, "MAUDE Adverse Events Summary for %s\n", device)
	fmt.Fprintf(&b, "Source: %s\n", maudeSearchURL)
	fmt.Fprintf(&b, "Total MAUDE Reports: %s\n", FormatCount(s.TotalReports))
	fmt.Fprintf(&b, "Serious Reports (Death/Injury) in Sample: %d", s.SeriousCount)

	n := 0
	for _, ev := range s.SampleEvents {
		ev = strings.TrimSpace(ev)
		if ev == "" {
			continue
		}
		if n == 0 {
			b.WriteString("\nSample Event Narratives:")
		}
		n++
		fmt.Fprintf(&b, "\n  %d. %s", n, truncateRunes(ev, MaxNarrativeRunes))
		if n == MaxEventNarratives {
			break
		}
	}

	return []passage.Passage{{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:     passage.SourceDeviceAdverseEvent,
			passage.MetaSourceURL:  maudeSearchURL,
			passage.MetaDeviceName: device,
		},
	}}
}

// DeviceRecalls summarizes a company's recall batch as one passage. An empty
// batch yields no passage.
func DeviceRecalls(company string, recalls []records.DeviceRecall) []passage.Passage {
	if len(recalls) == 0 {
		return nil
	}
	company = orDefault(company, unknownValue)

	var b strings.Builder
	fmt.Fprintf(&b, "FDA Device Recalls for %s\n", company)
	fmt.Fprintf(&b, "Source: %s\n", deviceRecallURL)
	fmt.Fprintf(&b, "Total Recalls: %d", len(recalls))
	for _, r := range recalls {
		status := orDefault(r.Status, notAvailable)
		if r.Classification != "" {
			status += ", " + r.Classification
		}
		fmt.Fprintf(&b, "\n  - %s: %s (Status: %s)",
			orDefault(r.ProductDescription, "Unknown product"),
			orDefault(r.ReasonForRecall, "No reason listed"),
			status)
	}

	return []passage.Passage{{
		Text: b.String(),
		Metadata: map[string]string{
			passage.MetaSource:    passage.SourceDeviceRecall,
			passage.MetaSourceURL: deviceRecallURL,
			passage.MetaCompany:   company,
		},
	}}
}
