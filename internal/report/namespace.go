package report

import (
	"fmt"
	"slices"
	"strings"
)

const (
	maxNamespaceLen = 50
	minNamespaceLen = 3
	namespaceSuffix = "_co"
)

// SanitizeCollectionName maps a subject to its namespace key: lowercased,
// every rune other than an ASCII letter or digit replaced by '_', leading
// and trailing '_' trimmed, cut to 50 bytes, and suffixed with "_co" when
// shorter than 3. The result always matches ^[a-z0-9_]{3,50}$.
func SanitizeCollectionName(subject string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(subject) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if len(name) > maxNamespaceLen {
		name = name[:maxNamespaceLen]
	}
	if len(name) < minNamespaceLen {
		name += namespaceSuffix
	}
	return name
}

// AllAreas is the therapeutic area meaning "no condition filter".
const AllAreas = "All"

// TherapeuticAreas are the condition filters offered to callers.
var TherapeuticAreas = []string{
	AllAreas,
	"Oncology",
	"Cardiology",
	"Neurology",
	"Immunology",
	"Infectious Disease",
	"Rare Disease",
	"Metabolic / Endocrine",
	"Respiratory",
	"Ophthalmology",
	"Dermatology",
}

// Phases are the trial phase labels accepted by the phase filter.
var Phases = []string{"Phase 1", "Phase 2", "Phase 3", "Phase 4"}

// Condition resolves a therapeutic area to the condition forwarded to the
// trial registry. "All" and "" mean no condition.
func Condition(area string) (string, error) {
	area = strings.TrimSpace(area)
	if area == "" || strings.EqualFold(area, AllAreas) {
		return "", nil
	}
	for _, a := range TherapeuticAreas {
		if strings.EqualFold(a, area) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown therapeutic area %q", ErrInvalidRequest, area)
}

// NormalizePhases maps "3", "phase3", "PHASE 3" and similar spellings to
// the canonical labels, dropping duplicates.
func NormalizePhases(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		s := strings.ToLower(strings.TrimSpace(raw))
		s = strings.TrimPrefix(s, "phase")
		s = strings.TrimSpace(strings.TrimPrefix(s, "_"))
		label := "Phase " + s
		if !slices.Contains(Phases, label) {
			return nil, fmt.Errorf("%w: unknown phase %q", ErrInvalidRequest, raw)
		}
		if !slices.Contains(out, label) {
			out = append(out, label)
		}
	}
	return out, nil
}
