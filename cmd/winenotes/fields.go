package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"winenotes/internal/records"
)

// fieldSpec binds a record field to its command-line flag.
type fieldSpec struct {
	flag  string
	name  string
	label string
	set   func(r *records.WineRecord, value string) error
	get   func(r *records.WineRecord) string
}

func textField(flag, name, label string, ptr func(*records.WineRecord) *string) fieldSpec {
	return fieldSpec{
		flag:  flag,
		name:  name,
		label: label,
		set: func(r *records.WineRecord, value string) error {
			*ptr(r) = strings.TrimSpace(value)
			return nil
		},
		get: func(r *records.WineRecord) string { return *ptr(r) },
	}
}

func amountField(flag, name, label string, ptr func(*records.WineRecord) *float64) fieldSpec {
	return fieldSpec{
		flag:  flag,
		name:  name,
		label: label,
		set: func(r *records.WineRecord, value string) error {
			*ptr(r) = records.ParseAmount(value)
			return nil
		},
		get: func(r *records.WineRecord) string { return records.FormatAmount(*ptr(r)) },
	}
}

func enumField(flag, name, label string, ptr func(*records.WineRecord) *string) fieldSpec {
	return fieldSpec{
		flag:  flag,
		name:  name,
		label: label,
		set: func(r *records.WineRecord, value string) error {
			canonical, err := records.CanonicalEnum(name, value)
			if err != nil {
				return err
			}
			*ptr(r) = canonical
			return nil
		},
		get: func(r *records.WineRecord) string { return *ptr(r) },
	}
}

var recordFields = []fieldSpec{
	textField("winery", "wineryName", "Winery", func(r *records.WineRecord) *string { return &r.WineryName }),
	textField("wine", "wineName", "Wine", func(r *records.WineRecord) *string { return &r.WineName }),
	textField("harvest-year", "harvestYear", "Harvest year", func(r *records.WineRecord) *string { return &r.HarvestYear }),
	textField("bottling-year", "bottlingYear", "Bottling year", func(r *records.WineRecord) *string { return &r.BottlingYear }),
	{
		flag:  "grapes",
		name:  "grapeVarieties",
		label: "Grapes",
		set: func(r *records.WineRecord, value string) error {
			r.GrapeVarieties = records.ParseGrapes(value)
			return nil
		},
		get: func(r *records.WineRecord) string { return records.FormatGrapes(r.GrapeVarieties) },
	},
	textField("winemaker", "winemaker", "Winemaker", func(r *records.WineRecord) *string { return &r.Winemaker }),
	textField("owner", "owner", "Owner", func(r *records.WineRecord) *string { return &r.Owner }),
	textField("country", "country", "Country", func(r *records.WineRecord) *string { return &r.Country }),
	textField("region", "region", "Region", func(r *records.WineRecord) *string { return &r.Region }),
	amountField("sugar", "sugarContent", "Sugar, %", func(r *records.WineRecord) *float64 { return &r.SugarContent }),
	amountField("alcohol", "alcoholContent", "Alcohol, %", func(r *records.WineRecord) *float64 { return &r.AlcoholContent }),
	enumField("type", "wineType", "Type", func(r *records.WineRecord) *string { return &r.WineType }),
	enumField("style", "wineStyle", "Style", func(r *records.WineRecord) *string { return &r.WineStyle }),
	enumField("color", "color", "Color", func(r *records.WineRecord) *string { return &r.Color }),
	amountField("price", "price", "Price", func(r *records.WineRecord) *float64 { return &r.Price }),
	textField("appearance", "appearanceNotes", "Appearance", func(r *records.WineRecord) *string { return &r.AppearanceNotes }),
	textField("density", "density", "Density", func(r *records.WineRecord) *string { return &r.Density }),
	textField("nose", "initialNose", "Initial nose", func(r *records.WineRecord) *string { return &r.InitialNose }),
	textField("aroma", "aromaAfterAeration", "Aroma after aeration", func(r *records.WineRecord) *string { return &r.AromaAfterAeration }),
	textField("taste", "taste", "Taste", func(r *records.WineRecord) *string { return &r.Taste }),
	textField("tannins", "tannins", "Tannins", func(r *records.WineRecord) *string { return &r.Tannins }),
	textField("acidity", "acidity", "Acidity", func(r *records.WineRecord) *string { return &r.Acidity }),
	textField("sweetness", "sweetness", "Sweetness", func(r *records.WineRecord) *string { return &r.Sweetness }),
	textField("balance", "balance", "Balance", func(r *records.WineRecord) *string { return &r.Balance }),
	textField("associations", "associations", "Associations", func(r *records.WineRecord) *string { return &r.Associations }),
	textField("consumed", "consumptionDate", "Consumed", func(r *records.WineRecord) *string { return &r.ConsumptionDate }),
	textField("verdict", "personalVerdict", "Verdict", func(r *records.WineRecord) *string { return &r.PersonalVerdict }),
	textField("notes", "additionalNotes", "Notes", func(r *records.WineRecord) *string { return &r.AdditionalNotes }),
}

// fieldByFlag finds a spec by flag name or record field name.
func fieldByFlag(name string) (fieldSpec, bool) {
	for _, spec := range recordFields {
		if spec.flag == name || spec.name == name {
			return spec, true
		}
	}
	return fieldSpec{}, false
}

// recordFlags holds the string values of every field flag for one command.
type recordFlags map[string]*string

func addRecordFlags(cmd *cobra.Command, usagePrefix string) recordFlags {
	values := make(recordFlags, len(recordFields))
	for _, spec := range recordFields {
		v := new(string)
		values[spec.flag] = v
		cmd.Flags().StringVar(v, spec.flag, "", usagePrefix+strings.ToLower(spec.label))
	}
	return values
}

// apply writes every flag the user set onto r.
func (f recordFlags) apply(cmd *cobra.Command, r *records.WineRecord) (int, error) {
	changed := 0
	for _, spec := range recordFields {
		if !cmd.Flags().Changed(spec.flag) {
			continue
		}
		if err := spec.set(r, *f[spec.flag]); err != nil {
			return changed, fmt.Errorf("--%s: %w", spec.flag, err)
		}
		changed++
	}
	return changed, nil
}

// filter builds a search filter from the flags the user set.
func (f recordFlags) filter(cmd *cobra.Command) records.Filter {
	filter := records.Filter{}
	for _, spec := range recordFields {
		if cmd.Flags().Changed(spec.flag) {
			filter[spec.name] = strings.TrimSpace(*f[spec.flag])
		}
	}
	return filter
}

// photoFlags maps each photo kind to a source file flag.
type photoFlags map[records.PhotoKind]*string

func addPhotoFlags(cmd *cobra.Command) photoFlags {
	values := make(photoFlags, len(records.PhotoKinds))
	for _, kind := range records.PhotoKinds {
		v := new(string)
		values[kind] = v
		cmd.Flags().StringVar(v, string(kind)+"-photo", "", fmt.Sprintf("Image file to store as the %s photo", kind))
	}
	return values
}
