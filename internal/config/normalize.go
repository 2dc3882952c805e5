package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePhotos()
	c.normalizeExport()
	c.normalizeShare()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("WINENOTES_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PhotoDir) == "" {
		c.Paths.PhotoDir = defaultPhotoDir
	}
	if c.Paths.PhotoDir, err = expandPath(c.Paths.PhotoDir); err != nil {
		return fmt.Errorf("paths.photo_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.FallbackPhotoDir) == "" {
		c.Paths.FallbackPhotoDir = filepath.Join(c.Paths.DataDir, defaultAlbum)
	}
	if c.Paths.FallbackPhotoDir, err = expandPath(c.Paths.FallbackPhotoDir); err != nil {
		return fmt.Errorf("paths.fallback_photo_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TransientDir) == "" {
		c.Paths.TransientDir = defaultTransientDir
	}
	if c.Paths.TransientDir, err = expandPath(c.Paths.TransientDir); err != nil {
		return fmt.Errorf("paths.transient_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePhotos() {
	c.Photos.Album = strings.TrimSpace(c.Photos.Album)
	if c.Photos.Album == "" {
		c.Photos.Album = defaultAlbum
	}
}

func (c *Config) normalizeExport() {
	if c.Export.CleanupGraceSeconds < 0 {
		c.Export.CleanupGraceSeconds = 0
	}
	if c.Export.CleanupRetrySeconds <= 0 {
		c.Export.CleanupRetrySeconds = defaultCleanupRetrySeconds
	}
	if c.Export.StaleTransientHours <= 0 {
		c.Export.StaleTransientHours = defaultStaleTransientHours
	}
}

func (c *Config) normalizeShare() {
	c.Share.NtfyTopic = strings.TrimSpace(c.Share.NtfyTopic)
	if c.Share.RequestTimeoutSeconds <= 0 {
		c.Share.RequestTimeoutSeconds = defaultShareTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
