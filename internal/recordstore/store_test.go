package recordstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"winenotes/internal/logging"
	"winenotes/internal/records"
	"winenotes/internal/recordstore"
	"winenotes/internal/testsupport"
)

func adoptPhoto(t *testing.T, m interface {
	Adopt(context.Context, string, string) (string, error)
}, content string) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src.jpg")
	testsupport.WriteBytes(t, src, []byte(content))
	ref, err := m.Adopt(context.Background(), src, "")
	if err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	return ref
}

func TestAddPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)

	store, err := recordstore.Open(ctx, cfg.RecordsPath(), nil, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := store.Add(ctx, testsupport.SampleRecord("Winery A", "Wine A"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, testsupport.SampleRecord("Winery B", "Wine B")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data := testsupport.ReadFile(t, cfg.RecordsPath())
	if !strings.Contains(string(data), "\n  {") {
		t.Fatalf("expected pretty-printed JSON, got %s", data)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("backing file is not a JSON array: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg, nil)
	if reopened.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", reopened.Len())
	}
	first, err := reopened.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != id || first.WineName != "Wine A" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if len(first.GrapeVarieties) != 2 {
		t.Fatalf("grapes not persisted: %+v", first.GrapeVarieties)
	}
}

func TestMalformedFileYieldsEmptyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteBytes(t, cfg.RecordsPath(), []byte(`{"not":"an array"`))

	store := testsupport.MustOpenStore(t, cfg, nil)
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
	matches, _ := filepath.Glob(cfg.RecordsPath() + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("expected unreadable file to be kept aside, got %v", matches)
	}
}

func TestLegacyRecordsGetStableIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteBytes(t, cfg.RecordsPath(), []byte(`[{"wineryName":"W","wineName":"N","grapeVarieties":[]}]`))

	store, err := recordstore.Open(context.Background(), cfg.RecordsPath(), nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	first, _ := store.At(0)
	if first.ID == "" {
		t.Fatal("expected id assigned on load")
	}
	_ = store.Close()

	again := testsupport.MustOpenStore(t, cfg, nil)
	second, _ := again.At(0)
	if second.ID != first.ID {
		t.Fatalf("id changed across loads: %s vs %s", first.ID, second.ID)
	}
}

func TestSecondOpenIsLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustOpenStore(t, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_, err := recordstore.Open(ctx, cfg.RecordsPath(), nil, logging.NewNop())
	if !errors.Is(err, recordstore.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRemoveAtDeletesOwnedPhotos(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	pm := testsupport.NewPhotoManager(t, cfg, nil)
	store := testsupport.MustOpenStore(t, cfg, pm)

	outside := filepath.Join(t.TempDir(), "external.jpg")
	testsupport.WriteBytes(t, outside, []byte("external"))

	rec := testsupport.SampleRecord("W", "N")
	rec.BottlePhoto = adoptPhoto(t, pm, "bottle")
	rec.LabelPhoto = adoptPhoto(t, pm, "label")
	rec.BackLabelPhoto = outside
	if _, err := store.Add(ctx, rec); err != nil {
		t.Fatal(err)
	}
	keep := testsupport.SampleRecord("K", "K")
	if _, err := store.Add(ctx, keep); err != nil {
		t.Fatal(err)
	}

	if err := store.RemoveAt(ctx, 0); err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	testsupport.AssertMissing(t, pm.Path(rec.BottlePhoto))
	testsupport.AssertMissing(t, pm.Path(rec.LabelPhoto))
	if _, err := os.Stat(outside); err != nil {
		t.Fatal("photo outside managed dir must survive")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", store.Len())
	}
	if got, _ := store.At(0); got.WineryName != "K" {
		t.Fatalf("wrong record kept: %+v", got)
	}

	if err := store.RemoveAt(ctx, 5); !errors.Is(err, recordstore.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRemoveSucceedsWhenPhotoAlreadyGone(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	pm := testsupport.NewPhotoManager(t, cfg, nil)
	store := testsupport.MustOpenStore(t, cfg, pm)

	rec := testsupport.SampleRecord("W", "N")
	rec.BottlePhoto = adoptPhoto(t, pm, "bottle")
	id, err := store.Add(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(pm.Path(rec.BottlePhoto)); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("record not removed")
	}
	if err := store.Remove(ctx, id); !errors.Is(err, recordstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceAtDeletesReplacedPhotosOnly(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	pm := testsupport.NewPhotoManager(t, cfg, nil)
	store := testsupport.MustOpenStore(t, cfg, pm)

	rec := testsupport.SampleRecord("W", "N")
	rec.BottlePhoto = adoptPhoto(t, pm, "bottle-old")
	rec.LabelPhoto = adoptPhoto(t, pm, "label")
	rec.PlaquePhoto = adoptPhoto(t, pm, "plaque")
	id, err := store.Add(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}

	edited := rec.Clone()
	edited.ID = ""
	edited.BottlePhoto = adoptPhoto(t, pm, "bottle-new")
	edited.PlaquePhoto = ""
	edited.Taste = "changed"
	if err := store.ReplaceAt(ctx, 0, edited); err != nil {
		t.Fatalf("ReplaceAt: %v", err)
	}

	testsupport.AssertMissing(t, pm.Path(rec.BottlePhoto))
	testsupport.AssertMissing(t, pm.Path(rec.PlaquePhoto))
	if _, err := os.Stat(pm.Path(rec.LabelPhoto)); err != nil {
		t.Fatal("unchanged label photo must survive")
	}
	if _, err := os.Stat(pm.Path(edited.BottlePhoto)); err != nil {
		t.Fatal("new bottle photo must survive")
	}
	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("id should survive replace: %v", err)
	}
	if got.Taste != "changed" {
		t.Fatal("replacement not stored")
	}
}

func TestRemoveAllAndReplaceAll(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	pm := testsupport.NewPhotoManager(t, cfg, nil)
	store := testsupport.MustOpenStore(t, cfg, pm)

	var refs []string
	for i := 0; i < 3; i++ {
		rec := testsupport.SampleRecord("W", "N")
		rec.BottlePhoto = adoptPhoto(t, pm, "bottle")
		refs = append(refs, rec.BottlePhoto)
		if _, err := store.Add(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.RemoveAll(ctx); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	for _, ref := range refs {
		testsupport.AssertMissing(t, pm.Path(ref))
	}
	if store.Len() != 0 {
		t.Fatal("store should be empty")
	}
	if strings.TrimSpace(string(testsupport.ReadFile(t, cfg.RecordsPath()))) != "[]" {
		t.Fatal("empty store should persist as []")
	}

	keepRef := adoptPhoto(t, pm, "kept")
	rec := testsupport.SampleRecord("X", "Y")
	rec.BottlePhoto = keepRef
	if err := store.ReplaceAll(ctx, []records.WineRecord{rec}); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceAll(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(pm.Path(keepRef)); err != nil {
		t.Fatal("ReplaceAll must not delete photos")
	}
}

func TestAppendKeepsOrderAndRegeneratesCollidingIDs(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)

	for _, name := range []string{"a", "b"} {
		if _, err := store.Add(ctx, testsupport.SampleRecord(name, name)); err != nil {
			t.Fatal(err)
		}
	}
	existing := store.Snapshot()

	incoming := []records.WineRecord{existing[0].Clone(), testsupport.SampleRecord("c", "c")}
	if err := store.Append(ctx, incoming); err != nil {
		t.Fatal(err)
	}
	all := store.Snapshot()
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	for i := range existing {
		if all[i].ID != existing[i].ID || all[i].WineryName != existing[i].WineryName {
			t.Fatalf("original record %d changed", i)
		}
	}
	if all[2].ID == existing[0].ID {
		t.Fatal("colliding id should be regenerated")
	}
	if all[3].WineryName != "c" {
		t.Fatal("append order not preserved")
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)

	recA := testsupport.SampleRecord("a", "a")
	recA.ID = "aaaa1111-0000-0000-0000-000000000000"
	recB := testsupport.SampleRecord("b", "b")
	recB.ID = "aaaa2222-0000-0000-0000-000000000000"
	if err := store.ReplaceAll(ctx, []records.WineRecord{recA, recB}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		ref  string
		want int
		err  error
	}{
		{"1", 0, nil},
		{"2", 1, nil},
		{"3", -1, recordstore.ErrIndexOutOfRange},
		{recB.ID, 1, nil},
		{"aaaa2", 1, nil},
		{"aaaa", -1, recordstore.ErrAmbiguous},
		{"aa", -1, recordstore.ErrNotFound},
		{"zzzz", -1, recordstore.ErrNotFound},
	}
	for _, tc := range cases {
		got, err := store.Resolve(tc.ref)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("Resolve(%q) error = %v want %v", tc.ref, err, tc.err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("Resolve(%q) = %d, %v want %d", tc.ref, got, err, tc.want)
		}
	}
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, nil)

	// A non-empty directory at the records path makes the final rename fail.
	if err := os.RemoveAll(cfg.RecordsPath()); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(cfg.RecordsPath(), 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.RecordsPath(), "block"), 1)

	_, err := store.Add(ctx, testsupport.SampleRecord("W", "N"))
	if !errors.Is(err, recordstore.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if records.Classify(err) != records.CategorySilent {
		t.Fatal("persist failures are warnings, not fatal")
	}
	if store.Len() != 1 {
		t.Fatal("in-memory mutation must stand")
	}
}
