package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories winenotes reads and writes.
type Paths struct {
	DataDir          string `toml:"data_dir"`
	PhotoDir         string `toml:"photo_dir"`
	FallbackPhotoDir string `toml:"fallback_photo_dir"`
	TransientDir     string `toml:"transient_dir"`
	ExportDir        string `toml:"export_dir"`
	LogDir           string `toml:"log_dir"`
}

// Photos contains configuration for the managed photo album.
type Photos struct {
	Album string `toml:"album"`
}

// Export contains timing for transient bundle cleanup.
type Export struct {
	CleanupGraceSeconds int `toml:"cleanup_grace_seconds"`
	CleanupRetrySeconds int `toml:"cleanup_retry_seconds"`
	StaleTransientHours int `toml:"stale_transient_hours"`
}

// Share contains configuration for delivering export archives.
type Share struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for winenotes.
//
// Configuration sections by subsystem:
//   - Paths: record file, photo album, transient bundles, exports, logs
//   - Photos: managed album naming
//   - Export: transient cleanup grace and retry delays
//   - Share: optional ntfy topic that receives export archives
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Photos  Photos  `toml:"photos"`
	Export  Export  `toml:"export"`
	Share   Share   `toml:"share"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath is ~/.config/winenotes/config.toml.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/winenotes/config.toml")
}

// Load reads the config at path, or searches the default locations when path
// is empty. A missing file is not an error: defaults are used and found is
// false. The returned path is where the file was, or would be, read from.
func Load(path string) (cfg *Config, resolved string, found bool, err error) {
	resolved, found, err = locate(path)
	if err != nil {
		return nil, "", false, err
	}

	loaded := Default()
	if found {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, "", false, fmt.Errorf("parse %s: %w", resolved, err)
		}
	}
	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolved, found, nil
}

// locate picks the config file: an explicit path wins, then the user config,
// then winenotes.toml in the working directory.
func locate(path string) (string, bool, error) {
	candidates := []string{path}
	if path == "" {
		user, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidates = []string{user, "winenotes.toml"}
	}
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	fallback, err := expandPath(candidates[0])
	return fallback, false, err
}

// EnsureDirectories creates the directories every command needs. The photo
// directory is left to the photo manager, which falls back to
// FallbackPhotoDir when the primary location cannot be created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.TransientDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RecordsPath returns the flat JSON file backing the record store.
func (c *Config) RecordsPath() string {
	return filepath.Join(c.Paths.DataDir, RecordsFileName)
}

// HistoryPath returns the SQLite database holding the export/import journal.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// CleanupGrace is the delay before an export directory is removed.
func (c *Config) CleanupGrace() time.Duration {
	return time.Duration(c.Export.CleanupGraceSeconds) * time.Second
}

// ShareTimeout returns the request timeout for the ntfy share surface.
func (c *Config) ShareTimeout() time.Duration {
	return time.Duration(c.Share.RequestTimeoutSeconds) * time.Second
}

// CleanupRetry is the delay before the single retry of a failed cleanup.
func (c *Config) CleanupRetry() time.Duration {
	return time.Duration(c.Export.CleanupRetrySeconds) * time.Second
}

// StaleTransientAge is the age after which leftover transient directories
// are swept at startup.
func (c *Config) StaleTransientAge() time.Duration {
	return time.Duration(c.Export.StaleTransientHours) * time.Hour
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
// The empty string stays empty.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return abs, nil
}

// CreateSample writes the commented sample config to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
