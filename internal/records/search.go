package records

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type fieldText func(r *WineRecord) string

var searchFields = map[string]fieldText{
	"wineryName":   func(r *WineRecord) string { return r.WineryName },
	"wineName":     func(r *WineRecord) string { return r.WineName },
	"harvestYear":  func(r *WineRecord) string { return r.HarvestYear },
	"bottlingYear": func(r *WineRecord) string { return r.BottlingYear },
	"grapeVarieties": func(r *WineRecord) string {
		names := make([]string, 0, len(r.GrapeVarieties))
		for _, g := range r.GrapeVarieties {
			names = append(names, g.Variety)
		}
		return strings.Join(names, " ")
	},
	"winemaker":          func(r *WineRecord) string { return r.Winemaker },
	"owner":              func(r *WineRecord) string { return r.Owner },
	"country":            func(r *WineRecord) string { return r.Country },
	"region":             func(r *WineRecord) string { return r.Region },
	"sugarContent":       func(r *WineRecord) string { return FormatAmount(r.SugarContent) },
	"alcoholContent":     func(r *WineRecord) string { return FormatAmount(r.AlcoholContent) },
	"wineType":           func(r *WineRecord) string { return r.WineType },
	"wineStyle":          func(r *WineRecord) string { return r.WineStyle },
	"color":              func(r *WineRecord) string { return r.Color },
	"price":              func(r *WineRecord) string { return FormatAmount(r.Price) },
	"appearanceNotes":    func(r *WineRecord) string { return r.AppearanceNotes },
	"density":            func(r *WineRecord) string { return r.Density },
	"initialNose":        func(r *WineRecord) string { return r.InitialNose },
	"aromaAfterAeration": func(r *WineRecord) string { return r.AromaAfterAeration },
	"taste":              func(r *WineRecord) string { return r.Taste },
	"tannins":            func(r *WineRecord) string { return r.Tannins },
	"acidity":            func(r *WineRecord) string { return r.Acidity },
	"sweetness":          func(r *WineRecord) string { return r.Sweetness },
	"balance":            func(r *WineRecord) string { return r.Balance },
	"associations":       func(r *WineRecord) string { return r.Associations },
	"consumptionDate":    func(r *WineRecord) string { return r.ConsumptionDate },
	"personalVerdict":    func(r *WineRecord) string { return r.PersonalVerdict },
	"additionalNotes":    func(r *WineRecord) string { return r.AdditionalNotes },
}

// SearchFields lists the field names accepted by Filter and SortBy.
func SearchFields() []string {
	names := make([]string, 0, len(searchFields))
	for name := range searchFields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FieldText returns the searchable text form of a field.
func FieldText(r *WineRecord, field string) (string, error) {
	fn, ok := searchFields[field]
	if !ok {
		return "", fmt.Errorf("unknown field %q", field)
	}
	return fn(r), nil
}

// Filter maps field names to substrings. A record matches when every
// non-empty value is a case-insensitive substring of that field.
type Filter map[string]string

// Validate rejects unknown field names.
func (f Filter) Validate() error {
	for field := range f {
		if _, ok := searchFields[field]; !ok {
			return fmt.Errorf("unknown search field %q", field)
		}
	}
	return nil
}

// Match reports whether r satisfies every criterion.
func (f Filter) Match(r *WineRecord) bool {
	fold := cases.Fold()
	for field, want := range f {
		if want == "" {
			continue
		}
		fn, ok := searchFields[field]
		if !ok {
			return false
		}
		if !strings.Contains(fold.String(fn(r)), fold.String(want)) {
			return false
		}
	}
	return true
}

// Apply returns the 0-based positions of the matching records.
func (f Filter) Apply(recs []WineRecord) []int {
	var hits []int
	for i := range recs {
		if f.Match(&recs[i]) {
			hits = append(hits, i)
		}
	}
	return hits
}

// SortBy orders positions into recs by the case-folded text of field.
// The sort is stable, so equal keys keep their store order.
func SortBy(recs []WineRecord, positions []int, field string) error {
	fn, ok := searchFields[field]
	if !ok {
		return fmt.Errorf("unknown sort field %q", field)
	}
	fold := cases.Fold()
	keys := make(map[int]string, len(positions))
	for _, pos := range positions {
		keys[pos] = fold.String(fn(&recs[pos]))
	}
	coll := collate.New(language.Und)
	sort.SliceStable(positions, func(a, b int) bool {
		return coll.CompareString(keys[positions[a]], keys[positions[b]]) < 0
	})
	return nil
}
