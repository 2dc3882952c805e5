package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"winenotes/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("WINENOTES_DATA_DIR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "winenotes")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.PhotoDir != filepath.Join(tempHome, "Pictures", "winetastenote") {
		t.Fatalf("unexpected photo dir: %q", cfg.Paths.PhotoDir)
	}
	if cfg.RecordsPath() != filepath.Join(wantData, "wineRecords.json") {
		t.Fatalf("unexpected records path: %q", cfg.RecordsPath())
	}
	if cfg.Photos.Album != "winetastenote" {
		t.Fatalf("unexpected album: %q", cfg.Photos.Album)
	}
	if cfg.CleanupGrace() != 60*time.Second {
		t.Fatalf("unexpected cleanup grace: %s", cfg.CleanupGrace())
	}
	if cfg.CleanupRetry() != 120*time.Second {
		t.Fatalf("unexpected cleanup retry: %s", cfg.CleanupRetry())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.TransientDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "winenotes.toml")

	type payload struct {
		Paths struct {
			DataDir      string `toml:"data_dir"`
			TransientDir string `toml:"transient_dir"`
		} `toml:"paths"`
		Photos struct {
			Album string `toml:"album"`
		} `toml:"photos"`
		Export struct {
			CleanupGraceSeconds int `toml:"cleanup_grace_seconds"`
			CleanupRetrySeconds int `toml:"cleanup_retry_seconds"`
		} `toml:"export"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Paths.TransientDir = filepath.Join(tempDir, "tmp")
	custom.Photos.Album = "cellar"
	custom.Export.CleanupGraceSeconds = 5
	custom.Export.CleanupRetrySeconds = 30
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("WINENOTES_DATA_DIR", "")
	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("expected data dir from file, got %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.FallbackPhotoDir == "" {
		t.Fatal("expected fallback photo dir default")
	}
	if cfg.Photos.Album != "cellar" {
		t.Fatalf("expected album override, got %q", cfg.Photos.Album)
	}
	if cfg.CleanupGrace() != 5*time.Second {
		t.Fatalf("expected grace 5s, got %s", cfg.CleanupGrace())
	}
	if cfg.CleanupRetry() != 30*time.Second {
		t.Fatalf("expected retry 30s, got %s", cfg.CleanupRetry())
	}
}

func TestEnvVarOverridesDataDir(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	override := filepath.Join(tempDir, "elsewhere")
	t.Setenv("WINENOTES_DATA_DIR", override)

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != override {
		t.Fatalf("expected env data dir %q, got %q", override, cfg.Paths.DataDir)
	}
}

func TestValidateRejectsPhotoDirInsideTransient(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "winenotes.toml")
	body := "[paths]\n" +
		"transient_dir = \"" + filepath.ToSlash(filepath.Join(tempDir, "tmp")) + "\"\n" +
		"photo_dir = \"" + filepath.ToSlash(filepath.Join(tempDir, "tmp", "photos")) + "\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "paths.photo_dir") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequiresRetryLongerThanGrace(t *testing.T) {
	for _, tc := range []struct {
		grace, retry int
		ok           bool
	}{
		{60, 120, true},
		{60, 60, false},
		{90, 30, false},
	} {
		cfg := config.Default()
		cfg.Paths.DataDir = t.TempDir()
		cfg.Paths.PhotoDir = filepath.Join(cfg.Paths.DataDir, "photos")
		cfg.Paths.TransientDir = filepath.Join(cfg.Paths.DataDir, "tmp")
		cfg.Export.CleanupGraceSeconds = tc.grace
		cfg.Export.CleanupRetrySeconds = tc.retry
		err := cfg.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("grace=%d retry=%d: Validate() = %v", tc.grace, tc.retry, err)
		}
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "verbose"
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.PhotoDir = filepath.Join(cfg.Paths.DataDir, "photos")
	cfg.Paths.TransientDir = filepath.Join(cfg.Paths.DataDir, "tmp")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported level")
	}
}

func TestCreateSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatalf("sample config missing paths section: %s", data)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}
