package fileutil

import (
	"net/url"
	"path/filepath"
	"strings"
)

// FileScheme is the URI scheme used for photo references.
const FileScheme = "file://"

// ToURI renders an absolute path as a file:// URI.
func ToURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// FromURI strips a file:// prefix and returns a local path. Values without
// the prefix are returned cleaned but otherwise unchanged.
func FromURI(ref string) string {
	if !strings.HasPrefix(ref, FileScheme) {
		if ref == "" {
			return ""
		}
		return filepath.Clean(ref)
	}
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		return filepath.Clean(filepath.FromSlash(u.Path))
	}
	return filepath.Clean(strings.TrimPrefix(ref, FileScheme))
}

// Within reports whether path resolves inside root (root itself excluded).
// Both are made absolute first; symlinks are not followed.
func Within(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || filepath.IsAbs(rel) {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Ext returns the lowercase extension of name, or fallback when name has none.
func Ext(name, fallback string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == "." || strings.ContainsAny(ext, `/\`) {
		return fallback
	}
	return ext
}
