package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bottle.jpg")
	dst := filepath.Join(dir, "copy.jpg")

	content := []byte("jpeg bytes")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst, true); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q", got)
	}

	err = CopyFileVerified(src, dst, true)
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist for exclusive copy onto existing file, got %v", err)
	}
	if err := CopyFileVerified(src, dst, false); err != nil {
		t.Fatalf("overwrite copy: %v", err)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileVerified(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"), false)
	if !IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "dst")); !os.IsNotExist(statErr) {
		t.Fatal("destination should not be created")
	}
}

func TestDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, size, err := Digest(path)
	if err != nil {
		t.Fatal(err)
	}
	if size != 3 {
		t.Fatalf("size = %d", size)
	}
	if sum != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected digest %s", sum)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.json")
	if err := WriteFileAtomic(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("[1]"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[1]" {
		t.Fatalf("got %q", got)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winetastenote 1.jpg")
	uri := ToURI(path)
	if uri[:len(FileScheme)] != FileScheme {
		t.Fatalf("expected file scheme, got %q", uri)
	}
	if got := FromURI(uri); got != path {
		t.Fatalf("FromURI = %q want %q", got, path)
	}
	if got := FromURI(path); got != path {
		t.Fatalf("plain path should pass through, got %q", got)
	}
	if FromURI("") != "" {
		t.Fatal("empty ref should stay empty")
	}
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	cases := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "a.jpg"), true},
		{filepath.Join(root, "sub", "a.jpg"), true},
		{root, false},
		{filepath.Join(root, "..", "a.jpg"), false},
		{filepath.Join(root+"x", "a.jpg"), false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Within(root, tc.path); got != tc.want {
			t.Fatalf("Within(%q, %q) = %v want %v", root, tc.path, got, tc.want)
		}
	}
}

func TestExt(t *testing.T) {
	if got := Ext("/a/b/photo.PNG", ".jpg"); got != ".png" {
		t.Fatalf("got %q", got)
	}
	if got := Ext("/a/b/photo", ".jpg"); got != ".jpg" {
		t.Fatalf("got %q", got)
	}
}
