package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePhotos(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateShare(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.PhotoDir == "" {
		return errors.New("paths.photo_dir must be set")
	}
	if c.Paths.TransientDir == "" {
		return errors.New("paths.transient_dir must be set")
	}
	if within(c.Paths.PhotoDir, c.Paths.TransientDir) {
		return fmt.Errorf("paths.photo_dir %q must not live inside paths.transient_dir", c.Paths.PhotoDir)
	}
	if within(c.Paths.FallbackPhotoDir, c.Paths.TransientDir) {
		return fmt.Errorf("paths.fallback_photo_dir %q must not live inside paths.transient_dir", c.Paths.FallbackPhotoDir)
	}
	return nil
}

func (c *Config) validatePhotos() error {
	if strings.ContainsAny(c.Photos.Album, `/\`) {
		return fmt.Errorf("photos.album %q must be a plain name", c.Photos.Album)
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.CleanupRetrySeconds <= c.Export.CleanupGraceSeconds {
		return errors.New("export.cleanup_retry_seconds must be longer than export.cleanup_grace_seconds")
	}
	return nil
}

func (c *Config) validateShare() error {
	topic := c.Share.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("share.ntfy_topic %q must be a full http(s) URL", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func within(path, root string) bool {
	if path == "" || root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
