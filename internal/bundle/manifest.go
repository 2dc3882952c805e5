package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"winenotes/internal/fileutil"
)

const (
	// Format identifies a winenotes export directory.
	Format = "winenotes-bundle"
	// FormatVersion is bumped when the bundle layout changes.
	FormatVersion = 1
)

// Artifact describes one file produced by an export.
type Artifact struct {
	Name    string `json:"name"`
	SHA256  string `json:"sha256,omitempty"`
	Size    int64  `json:"size"`
	Entries int    `json:"entries,omitempty"`
}

// Manifest summarizes an export directory.
type Manifest struct {
	Format       string     `json:"format"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	RecordCount  int        `json:"record_count"`
	ImageCount   int        `json:"image_count"`
	FailedImages int        `json:"failed_images"`
	Archive      Artifact   `json:"archive"`
	Artifacts    []Artifact `json:"artifacts"`
}

// DescribeFile digests the file at path into an Artifact named name.
func DescribeFile(name, path string) (Artifact, error) {
	sum, size, err := fileutil.Digest(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("digest %s: %w", name, err)
	}
	return Artifact{Name: name, SHA256: sum, Size: size}, nil
}

// WriteManifest stores m as indented JSON at path.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Format != Format {
		return m, fmt.Errorf("unexpected manifest format %q", m.Format)
	}
	return m, nil
}
