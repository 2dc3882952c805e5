package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"winenotes/internal/bundle"
	"winenotes/internal/exporter"
	"winenotes/internal/fileutil"
	"winenotes/internal/history"
	"winenotes/internal/importer"
	"winenotes/internal/records"
	"winenotes/internal/testsupport"
)

func seedTastings(t *testing.T, env *cliTestEnv) {
	t.Helper()
	bottle := filepath.Join(env.baseDir, "bottle.jpg")
	testsupport.WriteBytes(t, bottle, []byte("bottle image"))
	mustRunCLI(t, env.configPath, "add", "--winery", "Gravner", "--wine", "Ribolla", "--color", "orange",
		"--bottle-photo", bottle)
	mustRunCLI(t, env.configPath, "add", "--winery", "Radikon", "--wine", "Oslavje")
}

func transientEntries(t *testing.T, env *cliTestEnv) []string {
	t.Helper()
	entries, err := os.ReadDir(env.cfg.Paths.TransientDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read transient dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestExportImportRoundTrip(t *testing.T) {
	src := setupCLITestEnv(t)
	seedTastings(t, src)

	out := mustRunCLI(t, src.configPath, "export")
	requireContains(t, out, "Exported 2 records with 1 images")
	archive := filepath.Join(src.cfg.Paths.ExportDir, bundle.ArchiveFile)
	requireContains(t, out, "Archive: "+archive)

	files := testsupport.ReadArchive(t, archive)
	if _, ok := files[bundle.JSONFile]; !ok {
		t.Fatalf("archive lacks %s: %v", bundle.JSONFile, files)
	}
	var imageName string
	for name, data := range files {
		if strings.HasPrefix(name, bundle.ImagesDir+"/bottle_1_") {
			imageName = name
			if string(data) != "bottle image" {
				t.Fatalf("unexpected image content %q", data)
			}
		}
	}
	if imageName == "" {
		t.Fatalf("archive lacks the bottle image: %v", files)
	}
	if left := transientEntries(t, src); len(left) != 0 {
		t.Fatalf("expected the bundle directory to be removed, found %v", left)
	}

	dst := setupCLITestEnv(t)
	out = mustRunCLI(t, dst.configPath, "import", archive, "--strategy", "append")
	requireContains(t, out, "Found 2 records with 1 photos")
	requireContains(t, out, "collection now holds 2 tastings")

	var recs []records.WineRecord
	decodeJSON(t, mustRunCLI(t, dst.configPath, "--json", "list"), &recs)
	if len(recs) != 2 {
		t.Fatalf("expected 2 imported tastings, got %d", len(recs))
	}
	if recs[0].WineryName != "Gravner" || recs[0].Color != "оранж" {
		t.Fatalf("unexpected first record %+v", recs[0])
	}
	photo := fileutil.FromURI(recs[0].BottlePhoto)
	if got := string(testsupport.ReadFile(t, photo)); got != "bottle image" {
		t.Fatalf("unexpected imported photo content %q", got)
	}
	if recs[1].BottlePhoto != "" {
		t.Fatalf("expected no photo on the second record, got %q", recs[1].BottlePhoto)
	}
	if left := transientEntries(t, dst); len(left) != 0 {
		t.Fatalf("expected the import directory to be removed, found %v", left)
	}
}

func TestExportNeverOverwritesArchive(t *testing.T) {
	env := setupCLITestEnv(t)
	seedTastings(t, env)

	mustRunCLI(t, env.configPath, "export")
	out := mustRunCLI(t, env.configPath, "export", "2")
	requireContains(t, out, "Exported 1 record with 0 images")
	requireContains(t, out, "WineTastingExport-1.zip")

	second := filepath.Join(env.cfg.Paths.ExportDir, "WineTastingExport-1.zip")
	files := testsupport.ReadArchive(t, second)
	var recs []records.WineRecord
	decodeJSON(t, string(files[bundle.JSONFile]), &recs)
	if len(recs) != 1 || recs[0].WineryName != "Radikon" {
		t.Fatalf("unexpected records in second archive: %+v", recs)
	}
}

func TestExportJSONOnly(t *testing.T) {
	env := setupCLITestEnv(t)
	seedTastings(t, env)
	outDir := filepath.Join(env.baseDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out := mustRunCLI(t, env.configPath, "export", "--json-only", "--out", outDir)
	path := filepath.Join(outDir, bundle.JSONFile)
	requireContains(t, out, "Exported 2 tastings to "+path)

	var recs []records.WineRecord
	decodeJSON(t, string(testsupport.ReadFile(t, path)), &recs)
	for _, rec := range recs {
		if len(rec.Photos()) != 0 {
			t.Fatalf("expected photo references to be dropped, got %+v", rec.Photos())
		}
	}
}

func TestExportEmptyCollection(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.configPath, "export")
	if !errors.Is(err, exporter.ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestExportKeepLeavesBundleDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	seedTastings(t, env)

	out := mustRunCLI(t, env.configPath, "export", "--keep")
	requireContains(t, out, "Bundle directory: ")

	left := transientEntries(t, env)
	if len(left) != 1 || !strings.HasPrefix(left[0], bundle.ExportDirPrefix) {
		t.Fatalf("expected one kept bundle directory, found %v", left)
	}
	dir := filepath.Join(env.cfg.Paths.TransientDir, left[0])
	manifest, err := bundle.ReadManifest(filepath.Join(dir, bundle.ManifestFile))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if manifest.RecordCount != 2 || manifest.ImageCount != 1 {
		t.Fatalf("unexpected manifest counts: %+v", manifest)
	}

	mustRunCLI(t, env.configPath, "transient", "clean", "--all")
	if left := transientEntries(t, env); len(left) != 0 {
		t.Fatalf("expected clean --all to remove %v", left)
	}
}

func TestExportShareNeedsTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	seedTastings(t, env)

	_, _, err := runCLI(t, env.configPath, "export", "--share")
	if err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
		t.Fatalf("expected missing topic error, got %v", err)
	}
}

func TestImportRequiresStrategy(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "in.json")
	testsupport.WriteBytes(t, path, []byte(`[{"wineryName":"A","wineName":"B"}]`))

	_, _, err := runCLI(t, env.configPath, "import", path)
	if !errors.Is(err, importer.ErrStrategyRequired) {
		t.Fatalf("expected ErrStrategyRequired, got %v", err)
	}
	_, _, err = runCLI(t, env.configPath, "import", path, "--strategy", "merge")
	if !errors.Is(err, importer.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestImportDryRunLeavesCollection(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env.configPath, "add", "--winery", "Existing", "--wine", "One")
	path := filepath.Join(env.baseDir, "in.json")
	testsupport.WriteBytes(t, path, []byte(`[{"wineryName":"A","wineName":"B"},{"wineryName":"C","wineName":"D"}]`))

	out := mustRunCLI(t, env.configPath, "import", path, "--dry-run")
	requireContains(t, out, "Found 2 records with 0 photos (dry run, nothing imported)")

	var recs []records.WineRecord
	decodeJSON(t, mustRunCLI(t, env.configPath, "--json", "list"), &recs)
	if len(recs) != 1 || recs[0].WineryName != "Existing" {
		t.Fatalf("dry run changed the collection: %+v", recs)
	}
}

func TestImportReplaceSwapsCollection(t *testing.T) {
	env := setupCLITestEnv(t)
	seedTastings(t, env)
	var before records.WineRecord
	decodeJSON(t, mustRunCLI(t, env.configPath, "--json", "show", "1"), &before)

	path := filepath.Join(env.baseDir, "in.json")
	testsupport.WriteBytes(t, path, []byte(`[{"wineryName":"New","wineName":"Only"}]`))
	out := mustRunCLI(t, env.configPath, "import", path, "-s", "replace")
	requireContains(t, out, "collection now holds 1 tasting")

	var recs []records.WineRecord
	decodeJSON(t, mustRunCLI(t, env.configPath, "--json", "list"), &recs)
	if len(recs) != 1 || recs[0].WineryName != "New" {
		t.Fatalf("unexpected collection after replace: %+v", recs)
	}
	testsupport.AssertMissing(t, fileutil.FromURI(before.BottlePhoto))
}

func TestImportRejectsMalformedFile(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "in.json")
	testsupport.WriteBytes(t, path, []byte(`{"wineryName":"A"}`))

	_, _, err := runCLI(t, env.configPath, "import", path, "--strategy", "append")
	if !errors.Is(err, importer.ErrNotArray) {
		t.Fatalf("expected ErrNotArray, got %v", err)
	}

	var entries []history.Entry
	decodeJSON(t, mustRunCLI(t, env.configPath, "--json", "history"), &entries)
	if len(entries) != 1 || entries[0].Status != history.StatusFailed || entries[0].Kind != history.KindImport {
		t.Fatalf("expected one failed import entry, got %+v", entries)
	}
}
