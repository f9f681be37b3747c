package report

import (
	"slices"
	"strings"

	"github.com/fyrsmithlabs/pharmadd/internal/chunker"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// phaseFilterActive reports whether phases narrows the result. A filter
// naming every known phase is the same as no filter.
func phaseFilterActive(phases []string) bool {
	if len(phases) == 0 {
		return false
	}
	for _, p := range Phases {
		if !slices.Contains(phases, p) {
			return true
		}
	}
	return false
}

// FilterByPhase keeps the trials whose displayed phase contains any of the
// requested labels.
func FilterByPhase(trials []records.Trial, phases []string) []records.Trial {
	if !phaseFilterActive(phases) {
		return trials
	}
	out := make([]records.Trial, 0, len(trials))
	for _, t := range trials {
		display := chunker.PhaseDisplay(t.Phase)
		for _, p := range phases {
			if strings.Contains(display, p) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
