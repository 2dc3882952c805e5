package photos_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"winenotes/internal/config"
	"winenotes/internal/fileutil"
	"winenotes/internal/logging"
	"winenotes/internal/photos"
	"winenotes/internal/preflight"
	"winenotes/internal/testsupport"
)

type stubCamera struct {
	path string
	err  error
}

func (c stubCamera) Capture(context.Context) (string, error) { return c.path, c.err }

func newManager(t *testing.T, opts photos.Options) *photos.Manager {
	t.Helper()
	base := t.TempDir()
	if opts.Dir == "" {
		opts.Dir = filepath.Join(base, "photos")
	}
	if opts.FallbackDir == "" {
		opts.FallbackDir = filepath.Join(base, "fallback")
	}
	if opts.Access == nil {
		opts.Access = preflight.Static(true)
	}
	if opts.Clock == nil {
		opts.Clock = testsupport.NewFakeClock(time.UnixMilli(1700000000123))
	}
	return photos.New(opts, logging.NewNop())
}

func TestCaptureCommitsAndRemovesTemp(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "IMG_0001.PNG")
	testsupport.WriteBytes(t, tmp, []byte("png bytes"))

	m := newManager(t, photos.Options{Camera: stubCamera{path: fileutil.ToURI(tmp)}})
	ref, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !strings.HasPrefix(ref, "file://") {
		t.Fatalf("expected file URI, got %q", ref)
	}
	path := m.Path(ref)
	if filepath.Base(path) != "winetastenote_1700000000123.png" {
		t.Fatalf("unexpected name %q", filepath.Base(path))
	}
	if filepath.Dir(path) != m.Dir() {
		t.Fatalf("photo outside managed dir: %s", path)
	}
	if string(testsupport.ReadFile(t, path)) != "png bytes" {
		t.Fatal("content mismatch")
	}
	testsupport.AssertMissing(t, tmp)
	if !m.Owns(ref) {
		t.Fatal("manager should own captured photo")
	}
}

func TestCaptureCollisionGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, photos.Options{})
	var names []string
	for i := 0; i < 3; i++ {
		src := filepath.Join(dir, "shot.jpg")
		testsupport.WriteBytes(t, src, []byte{byte(i)})
		ref, err := m.Adopt(context.Background(), src, "")
		if err != nil {
			t.Fatalf("Adopt: %v", err)
		}
		names = append(names, filepath.Base(m.Path(ref)))
	}
	want := []string{"winetastenote_1700000000123.jpg", "winetastenote_1700000000123-1.jpg", "winetastenote_1700000000123-2.jpg"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v want %v", names, want)
		}
	}
}

func TestCaptureCancelAndErrorHaveNoSideEffects(t *testing.T) {
	for name, cam := range map[string]stubCamera{
		"cancel": {},
		"error":  {err: errors.New("camera unavailable")},
	} {
		t.Run(name, func(t *testing.T) {
			m := newManager(t, photos.Options{Camera: cam})
			ref, err := m.Capture(context.Background())
			if err != nil || ref != "" {
				t.Fatalf("expected empty result, got %q %v", ref, err)
			}
			if _, err := os.Stat(m.Dir()); !os.IsNotExist(err) {
				t.Fatal("managed dir should not be created")
			}
		})
	}
}

func TestCaptureDeniedAccess(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "a.jpg")
	testsupport.WriteBytes(t, tmp, []byte("x"))
	m := newManager(t, photos.Options{Camera: stubCamera{path: tmp}, Access: preflight.Static(false)})

	ref, err := m.Capture(context.Background())
	if !errors.Is(err, photos.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if ref != "" {
		t.Fatalf("expected empty ref, got %q", ref)
	}
	if _, err := os.Stat(tmp); err != nil {
		t.Fatal("temp file should be untouched on denial")
	}
}

func TestFallbackDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	testsupport.WriteBytes(t, blocker, []byte("file"))
	fallback := filepath.Join(base, "fallback")

	m := newManager(t, photos.Options{Dir: filepath.Join(blocker, "photos"), FallbackDir: fallback})
	src := filepath.Join(base, "a.jpg")
	testsupport.WriteBytes(t, src, []byte("x"))

	ref, err := m.Adopt(context.Background(), src, "bottle_1_1.jpg")
	if err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	path := m.Path(ref)
	if filepath.Dir(path) != fallback {
		t.Fatalf("expected fallback dir, got %s", path)
	}
	if filepath.Base(path) != "winetastenote_1700000000123_bottle_1_1.jpg" {
		t.Fatalf("unexpected adopted name %q", filepath.Base(path))
	}
	if !m.Owns(ref) {
		t.Fatal("fallback photos are managed too")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("adopt must not consume its source")
	}
}

func TestDeleteIsIdempotentAndGuarded(t *testing.T) {
	m := newManager(t, photos.Options{})
	src := filepath.Join(t.TempDir(), "a.jpg")
	testsupport.WriteBytes(t, src, []byte("x"))
	ref, err := m.Adopt(context.Background(), src, "")
	if err != nil {
		t.Fatal(err)
	}

	m.Delete("")
	m.Delete(ref)
	m.Delete(ref)
	testsupport.AssertMissing(t, m.Path(ref))

	outside := filepath.Join(t.TempDir(), "keep.jpg")
	testsupport.WriteBytes(t, outside, []byte("keep"))
	m.Delete(fileutil.ToURI(outside))
	m.Delete(filepath.Join(m.Dir(), "..", "..", filepath.Base(outside)))
	if _, err := os.Stat(outside); err != nil {
		t.Fatal("file outside managed dir was deleted")
	}
}

func TestDeleteTempGuardedByRoot(t *testing.T) {
	m := newManager(t, photos.Options{})
	root := t.TempDir()
	inside := filepath.Join(root, "images", "a.jpg")
	testsupport.WriteBytes(t, inside, []byte("x"))
	outside := filepath.Join(t.TempDir(), "b.jpg")
	testsupport.WriteBytes(t, outside, []byte("y"))

	m.DeleteTemp(outside, root)
	if _, err := os.Stat(outside); err != nil {
		t.Fatal("DeleteTemp removed a file outside the temp root")
	}
	m.DeleteTemp(inside, root)
	testsupport.AssertMissing(t, inside)
	m.DeleteTemp(inside, root)
}

func TestFileCameraStagesCopy(t *testing.T) {
	src := filepath.Join(t.TempDir(), "label.jpeg")
	testsupport.WriteBytes(t, src, []byte("label"))
	staging := t.TempDir()

	m := newManager(t, photos.Options{Camera: photos.FileCamera{Source: src, StagingDir: staging}})
	ref, err := m.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if string(testsupport.ReadFile(t, m.Path(ref))) != "label" {
		t.Fatal("content mismatch")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("user's original must remain")
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging copy should be consumed, found %d entries", len(entries))
	}
}

func TestAlbumNameFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, func(c *config.Config) { c.Photos.Album = "cellar" })
	m := testsupport.NewPhotoManager(t, cfg, testsupport.NewFakeClock(time.UnixMilli(1700000000123)))

	src := filepath.Join(t.TempDir(), "shot.JPG")
	testsupport.WriteBytes(t, src, []byte("jpeg"))
	ref, err := m.Adopt(context.Background(), src, "")
	if err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	if got := filepath.Base(m.Path(ref)); got != "cellar_1700000000123.jpg" {
		t.Fatalf("unexpected name %q", got)
	}
	if filepath.Dir(m.Path(ref)) != cfg.Paths.PhotoDir {
		t.Fatalf("photo written outside %s", cfg.Paths.PhotoDir)
	}
}
