package records

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GrapeComponent is one variety in a blend with its share in percent.
type GrapeComponent struct {
	Variety    string  `json:"variety"`
	Percentage float64 `json:"percentage"`
}

// WineRecord is one tasting entry.
type WineRecord struct {
	ID string `json:"id,omitempty"`

	WineryName     string           `json:"wineryName"`
	WineName       string           `json:"wineName"`
	HarvestYear    string           `json:"harvestYear"`
	BottlingYear   string           `json:"bottlingYear"`
	GrapeVarieties []GrapeComponent `json:"grapeVarieties"`
	Winemaker      string           `json:"winemaker"`
	Owner          string           `json:"owner"`
	Country        string           `json:"country"`
	Region         string           `json:"region"`
	SugarContent   float64          `json:"sugarContent"`
	AlcoholContent float64          `json:"alcoholContent"`
	WineType       string           `json:"wineType"`
	WineStyle      string           `json:"wineStyle"`
	Color          string           `json:"color"`
	Price          float64          `json:"price"`

	AppearanceNotes    string `json:"appearanceNotes"`
	Density            string `json:"density"`
	InitialNose        string `json:"initialNose"`
	AromaAfterAeration string `json:"aromaAfterAeration"`
	Taste              string `json:"taste"`
	Tannins            string `json:"tannins"`
	Acidity            string `json:"acidity"`
	Sweetness          string `json:"sweetness"`
	Balance            string `json:"balance"`
	Associations       string `json:"associations"`
	ConsumptionDate    string `json:"consumptionDate"`

	PersonalVerdict string `json:"personalVerdict"`
	AdditionalNotes string `json:"additionalNotes"`

	BottlePhoto    string `json:"bottlePhoto"`
	LabelPhoto     string `json:"labelPhoto"`
	BackLabelPhoto string `json:"backLabelPhoto"`
	PlaquePhoto    string `json:"plaquePhoto,omitempty"`
}

// PhotoKind names one of the four photo slots of a record.
type PhotoKind string

const (
	KindBottle    PhotoKind = "bottle"
	KindLabel     PhotoKind = "label"
	KindBackLabel PhotoKind = "backlabel"
	KindPlaque    PhotoKind = "plaque"
)

// PhotoKinds lists the slots in the fixed order used for export naming.
var PhotoKinds = []PhotoKind{KindBottle, KindLabel, KindBackLabel, KindPlaque}

// ParsePhotoKind accepts the canonical slot names plus a few spellings of back label.
func ParsePhotoKind(value string) (PhotoKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bottle":
		return KindBottle, nil
	case "label":
		return KindLabel, nil
	case "backlabel", "back-label", "back_label":
		return KindBackLabel, nil
	case "plaque":
		return KindPlaque, nil
	default:
		return "", fmt.Errorf("unknown photo kind %q (want bottle, label, backlabel, plaque)", value)
	}
}

// NewID returns a fresh stable record identifier.
func NewID() string {
	return uuid.NewString()
}

// EnsureID assigns an identifier when the record has none and reports whether it did.
func (r *WineRecord) EnsureID() bool {
	if strings.TrimSpace(r.ID) != "" {
		return false
	}
	r.ID = NewID()
	return true
}

// Clone returns a deep copy.
func (r WineRecord) Clone() WineRecord {
	out := r
	if r.GrapeVarieties != nil {
		out.GrapeVarieties = make([]GrapeComponent, len(r.GrapeVarieties))
		copy(out.GrapeVarieties, r.GrapeVarieties)
	}
	return out
}

// CloneAll deep-copies a slice of records.
func CloneAll(recs []WineRecord) []WineRecord {
	if recs == nil {
		return nil
	}
	out := make([]WineRecord, len(recs))
	for i, rec := range recs {
		out[i] = rec.Clone()
	}
	return out
}

// Photo returns the reference stored in the given slot.
func (r *WineRecord) Photo(kind PhotoKind) string {
	switch kind {
	case KindBottle:
		return r.BottlePhoto
	case KindLabel:
		return r.LabelPhoto
	case KindBackLabel:
		return r.BackLabelPhoto
	case KindPlaque:
		return r.PlaquePhoto
	}
	return ""
}

// SetPhoto stores ref in the given slot.
func (r *WineRecord) SetPhoto(kind PhotoKind, ref string) {
	switch kind {
	case KindBottle:
		r.BottlePhoto = ref
	case KindLabel:
		r.LabelPhoto = ref
	case KindBackLabel:
		r.BackLabelPhoto = ref
	case KindPlaque:
		r.PlaquePhoto = ref
	}
}

// Photos lists the non-empty photo references in slot order.
func (r *WineRecord) Photos() []string {
	var refs []string
	for _, kind := range PhotoKinds {
		if ref := r.Photo(kind); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ClearPhotos empties every photo slot.
func (r *WineRecord) ClearPhotos() {
	for _, kind := range PhotoKinds {
		r.SetPhoto(kind, "")
	}
}

// Title is a short human label for listings and log lines.
func (r *WineRecord) Title() string {
	parts := make([]string, 0, 3)
	for _, v := range []string{r.WineryName, r.WineName, r.HarvestYear} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return "(untitled)"
	}
	return strings.Join(parts, " · ")
}
