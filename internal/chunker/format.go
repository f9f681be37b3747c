package chunker

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var phaseNames = map[string]string{
	"EARLY_PHASE1": "Early Phase 1",
	"PHASE1":       "Phase 1",
	"PHASE2":       "Phase 2",
	"PHASE3":       "Phase 3",
	"PHASE4":       "Phase 4",
	"NA":           "N/A",
}

// PhaseDisplay maps registry phase codes to display names. Unknown codes
// pass through verbatim; an empty list renders as "N/A".
func PhaseDisplay(phases []string) string {
	var names []string
	for _, p := range phases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if name, ok := phaseNames[p]; ok {
			names = append(names, name)
			continue
		}
		names = append(names, p)
	}
	if len(names) == 0 {
		return "N/A"
	}
	return strings.Join(names, ", ")
}

// FormatDate turns a compact YYYYMMDD date into YYYY-MM-DD. Anything that is
// not exactly eight ASCII digits is returned unchanged.
func FormatDate(raw string) string {
	if len(raw) != 8 {
		return raw
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return raw
		}
	}
	return raw[:4] + "-" + raw[4:6] + "-" + raw[6:]
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatDollars scales a dollar amount by magnitude: "$X.XXB" at or above
// one billion, "$X.XM" at or above one million, "$X,XXX" otherwise.
// Values that are not numeric render as "N/A".
func FormatDollars(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return "N/A"
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	// Units are picked on the rounded value: 999,999.6 is $1.0M.
	whole := math.Round(f)
	if whole < 1e6 {
		return sign + printer.Sprintf("$%d", int64(whole))
	}
	if math.Round(f/1e5) < 1e4 {
		return fmt.Sprintf("%s$%.1fM", sign, f/1e6)
	}
	return fmt.Sprintf("%s$%.2fB", sign, f/1e9)
}

// FormatPrice renders a per-share amount with cents.
func FormatPrice(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return "N/A"
	}
	if f < 0 {
		return fmt.Sprintf("-$%.2f", -f)
	}
	return fmt.Sprintf("$%.2f", f)
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case *float64:
		if x == nil {
			return 0, false
		}
		f = *x
	case *int:
		if x == nil {
			return 0, false
		}
		f = float64(*x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", ""), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func distinct(items []string, limit int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, min(len(items), limit))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}
