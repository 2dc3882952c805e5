package testsupport

import (
	"context"
	"testing"

	"winenotes/internal/config"
	"winenotes/internal/logging"
	"winenotes/internal/photos"
	"winenotes/internal/preflight"
	"winenotes/internal/records"
	"winenotes/internal/recordstore"
)

// NewPhotoManager builds a photo manager over the config's photo directories
// with storage access always granted.
func NewPhotoManager(t testing.TB, cfg *config.Config, clock photos.Clock) *photos.Manager {
	t.Helper()

	return photos.New(photos.Options{
		Dir:         cfg.Paths.PhotoDir,
		FallbackDir: cfg.Paths.FallbackPhotoDir,
		Album:       cfg.Photos.Album,
		Access:      preflight.Static(true),
		Clock:       clock,
	}, logging.NewNop())
}

// MustOpenStore opens a recordstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, owner recordstore.PhotoOwner) *recordstore.Store {
	t.Helper()

	store, err := recordstore.Open(context.Background(), cfg.RecordsPath(), owner, logging.NewNop())
	if err != nil {
		t.Fatalf("recordstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SampleRecord returns a fully populated record without photos.
func SampleRecord(winery, wine string) records.WineRecord {
	return records.WineRecord{
		WineryName:         winery,
		WineName:           wine,
		HarvestYear:        "2019",
		BottlingYear:       "2021",
		GrapeVarieties:     []records.GrapeComponent{{Variety: "Мерло", Percentage: 60}, {Variety: "Cabernet Franc", Percentage: 40}},
		Winemaker:          "Иван Петров",
		Owner:              "Family estate",
		Country:            "Россия",
		Region:             "Крым",
		SugarContent:       2.5,
		AlcoholContent:     13.5,
		WineType:           "сухое",
		WineStyle:          "тихое",
		Color:              "красное",
		Price:              1850,
		AppearanceNotes:    "deep ruby",
		Density:            "medium",
		InitialNose:        "cherry",
		AromaAfterAeration: "tobacco, plum",
		Taste:              "dry, juicy",
		Tannins:            "soft",
		Acidity:            "fresh",
		Sweetness:          "none",
		Balance:            "good",
		Associations:       "autumn",
		ConsumptionDate:    "2024-10-01",
		PersonalVerdict:    "buy again",
		AdditionalNotes:    "decant 30 min",
	}
}
