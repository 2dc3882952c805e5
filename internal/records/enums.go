package records

import (
	"fmt"
	"strings"
)

// Wire values of the enumerated fields. English aliases are accepted on input.
var (
	WineTypes  = []string{"сухое", "полусухое", "полусладкое", "сладкое", "десертное"}
	WineStyles = []string{"тихое", "игристое"}
	Colors     = []string{"красное", "белое", "розовое", "оранж", "глу-глу", "другое"}
)

var enumAliases = map[string]map[string]string{
	"wineType": {
		"dry":        "сухое",
		"semi-dry":   "полусухое",
		"off-dry":    "полусухое",
		"semi-sweet": "полусладкое",
		"sweet":      "сладкое",
		"dessert":    "десертное",
	},
	"wineStyle": {
		"still":     "тихое",
		"sparkling": "игристое",
	},
	"color": {
		"red":       "красное",
		"white":     "белое",
		"rose":      "розовое",
		"rosé":      "розовое",
		"orange":    "оранж",
		"glou-glou": "глу-глу",
		"other":     "другое",
	},
}

func enumValues(field string) []string {
	switch field {
	case "wineType":
		return WineTypes
	case "wineStyle":
		return WineStyles
	case "color":
		return Colors
	}
	return nil
}

// CanonicalEnum maps value onto the wire value for field. Empty input is
// valid and stays empty.
func CanonicalEnum(field, value string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return "", nil
	}
	for _, allowed := range enumValues(field) {
		if trimmed == allowed {
			return allowed, nil
		}
	}
	if alias, ok := enumAliases[field][trimmed]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%s: unsupported value %q (allowed: %s)", field, value, strings.Join(enumValues(field), ", "))
}
