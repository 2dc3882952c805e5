package testsupport

import (
	"path/filepath"
	"testing"

	"winenotes/internal/config"
)

// NewConfig returns a normalized default config whose directories all live
// under a fresh temp dir. Each mutate func runs before the directories are
// created.
func NewConfig(t testing.TB, mutate ...func(*config.Config)) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		DataDir:          filepath.Join(root, "data"),
		PhotoDir:         filepath.Join(root, "photos"),
		FallbackPhotoDir: filepath.Join(root, "data", cfg.Photos.Album),
		TransientDir:     filepath.Join(root, "transient"),
		ExportDir:        filepath.Join(root, "exports"),
		LogDir:           filepath.Join(root, "logs"),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// BaseDir returns the temp root NewConfig placed every directory under.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
