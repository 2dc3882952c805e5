package records

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount coerces form input to a non-negative number. Anything that is
// not a finite number, or is negative, becomes 0. A decimal comma is accepted.
func ParseAmount(value string) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	trimmed = strings.ReplaceAll(trimmed, ",", ".")
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return clampAmount(n)
}

func clampAmount(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return n
}

// ParseGrapes parses "Merlot:60, Cabernet:40". Entries without a variety are
// dropped and unparseable percentages become 0.
func ParseGrapes(value string) []GrapeComponent {
	var out []GrapeComponent
	for _, item := range strings.Split(value, ",") {
		variety, pct, _ := strings.Cut(item, ":")
		variety = strings.TrimSpace(variety)
		if variety == "" {
			continue
		}
		out = append(out, GrapeComponent{Variety: variety, Percentage: ParseAmount(pct)})
	}
	return out
}

// FormatGrapes renders a blend back into the form accepted by ParseGrapes.
func FormatGrapes(grapes []GrapeComponent) string {
	parts := make([]string, 0, len(grapes))
	for _, g := range grapes {
		parts = append(parts, g.Variety+":"+FormatAmount(g.Percentage))
	}
	return strings.Join(parts, ", ")
}

// FormatAmount renders a number without trailing zeros.
func FormatAmount(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
