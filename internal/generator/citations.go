package generator

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/pharmadd/internal/passage"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>()\[\]"'` + "`" + `]+`)

// CitationCheck returns the URLs cited in output that appear neither as a
// passage source_url nor inside any passage text, sorted and deduplicated.
// It never alters the output.
func CitationCheck(output string, passages []passage.Passage) []string {
	known := make(map[string]struct{})
	for _, p := range passages {
		if u := p.SourceURL(); u != "" {
			known[normalizeURL(u)] = struct{}{}
		}
		for _, u := range urlPattern.FindAllString(p.Text, -1) {
			known[normalizeURL(u)] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var unknown []string
	for _, u := range urlPattern.FindAllString(output, -1) {
		n := normalizeURL(u)
		if _, ok := known[n]; ok {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unknown = append(unknown, n)
	}
	sort.Strings(unknown)
	return unknown
}

// normalizeURL strips sentence punctuation a model tends to glue onto links.
func normalizeURL(u string) string {
	return strings.TrimRight(u, ".,;:!?*_")
}
