package records

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks a record built from user input: the identifying fields are
// required and enumerated fields must carry a known value.
func (r *WineRecord) Validate() error {
	var problems []error
	if strings.TrimSpace(r.WineryName) == "" {
		problems = append(problems, errors.New("wineryName is required"))
	}
	if strings.TrimSpace(r.WineName) == "" {
		problems = append(problems, errors.New("wineName is required"))
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"wineType", r.WineType},
		{"wineStyle", r.WineStyle},
		{"color", r.Color},
	} {
		if _, err := CanonicalEnum(field.name, field.value); err != nil {
			problems = append(problems, err)
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidRecord, errors.Join(problems...))
}

// Normalize repairs a record read from a file so it satisfies the model's
// invariants: numbers are non-negative, enums are canonical or empty, grape
// entries have a variety, and an identifier is present.
func (r *WineRecord) Normalize() {
	r.EnsureID()
	r.SugarContent = clampAmount(r.SugarContent)
	r.AlcoholContent = clampAmount(r.AlcoholContent)
	r.Price = clampAmount(r.Price)
	r.WineType, _ = CanonicalEnum("wineType", r.WineType)
	r.WineStyle, _ = CanonicalEnum("wineStyle", r.WineStyle)
	r.Color, _ = CanonicalEnum("color", r.Color)

	grapes := r.GrapeVarieties[:0:0]
	for _, g := range r.GrapeVarieties {
		g.Variety = strings.TrimSpace(g.Variety)
		if g.Variety == "" {
			continue
		}
		g.Percentage = clampAmount(g.Percentage)
		grapes = append(grapes, g)
	}
	if grapes == nil {
		grapes = []GrapeComponent{}
	}
	r.GrapeVarieties = grapes
}
