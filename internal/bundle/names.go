package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"winenotes/internal/records"
)

const (
	// JSONFile is the records array inside a bundle.
	JSONFile = "WineTastingData.json"
	// ArchiveFile is the compressed form of a bundle.
	ArchiveFile = "WineTastingExport.zip"
	// ManifestFile describes the artifacts of an export directory.
	ManifestFile = "manifest.json"
	// ReadmeFile is the human-readable companion of the manifest.
	ReadmeFile = "README.html"

	// ImagesDir holds the photos referenced by the records.
	ImagesDir = "images"
	// LegacyImagesDir is the images folder name used by older exports.
	LegacyImagesDir = "exported_images"

	// ExportDirPrefix names export working directories.
	ExportDirPrefix = "WineTasting_"
	// ImportDirPrefix names archive extraction directories.
	ImportDirPrefix = "WineTasting_Import_"

	// DefaultImageExt is used when a source photo has no extension.
	DefaultImageExt = ".jpg"
)

// ImageDirs lists the accepted images folder names, preferred first.
var ImageDirs = []string{ImagesDir, LegacyImagesDir}

// ImageName builds the file name of a photo inside a bundle. index is the
// 1-based position of the record in the exported set.
func ImageName(kind records.PhotoKind, index int, stamp int64, ext string) string {
	if ext == "" {
		ext = DefaultImageExt
	}
	return string(kind) + "_" + strconv.Itoa(index) + "_" + strconv.FormatInt(stamp, 10) + ext
}

// ImageRef returns the bundle-relative reference for an image name.
func ImageRef(name string) string {
	return ImagesDir + "/" + name
}

// SplitRef reports whether ref is bundle-relative and returns the images
// folder and file name it points at. References that would escape the
// images folder are rejected.
func SplitRef(ref string) (dir, name string, ok bool) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "\\", "/")
	for _, candidate := range ImageDirs {
		rest, found := strings.CutPrefix(ref, candidate+"/")
		if !found {
			continue
		}
		if !cleanName(rest) {
			return "", "", false
		}
		return candidate, rest, true
	}
	return "", "", false
}

// HasRelativePrefix reports whether ref starts with an images folder name,
// whether or not the rest of it is a usable file name.
func HasRelativePrefix(ref string) bool {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "\\", "/")
	for _, candidate := range ImageDirs {
		if strings.HasPrefix(ref, candidate+"/") {
			return true
		}
	}
	return false
}

// IsRelative reports whether ref points inside a bundle.
func IsRelative(ref string) bool {
	_, _, ok := SplitRef(ref)
	return ok
}

// EntryTarget maps a zip entry name onto the relative path it is extracted
// to. Only the records file and flat files inside an images folder are
// accepted; everything else, including entries that try to leave the
// extraction directory, is skipped.
func EntryTarget(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return "", false
	}
	if name == JSONFile {
		return JSONFile, true
	}
	dir, file, ok := SplitRef(name)
	if !ok {
		return "", false
	}
	return path.Join(dir, file), true
}

func cleanName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\:") && path.Clean(name) == name
}

const maxWorkDirAttempts = 100

// MakeWorkDir creates a fresh directory named prefix+stamp under root,
// appending -1, -2, ... when the name is taken.
func MakeWorkDir(root, prefix string, stamp int64) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", root, err)
	}
	base := prefix + strconv.FormatInt(stamp, 10)
	for attempt := 0; attempt < maxWorkDirAttempts; attempt++ {
		name := base
		if attempt > 0 {
			name = base + "-" + strconv.Itoa(attempt)
		}
		dir := filepath.Join(root, name)
		err := os.Mkdir(dir, 0o755)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
		return dir, nil
	}
	return "", fmt.Errorf("no free directory name for %s in %s", base, root)
}
