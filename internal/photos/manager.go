package photos

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"winenotes/internal/fileutil"
	"winenotes/internal/logging"
	"winenotes/internal/preflight"
	"winenotes/internal/records"
)

var (
	// ErrAccessDenied reports that the user refused storage access.
	ErrAccessDenied = preflight.ErrAccessDenied
	// ErrCommit reports that a photo could not be written to the managed directory.
	ErrCommit = records.NewError(records.CategoryFatal, "photo could not be saved")
)

const maxNameAttempts = 1000

// Clock supplies capture timestamps.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Options configures a Manager.
type Options struct {
	Dir         string
	FallbackDir string
	Album       string
	Access      preflight.StorageAccess
	Camera      Camera
	Clock       Clock
}

// Manager owns the managed photo directory.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	activeDir string
}

// New constructs a Manager. The directory is created lazily on first write.
func New(opts Options, logger *slog.Logger) *Manager {
	if opts.Album == "" {
		opts.Album = "winetastenote"
	}
	if opts.Clock == nil {
		opts.Clock = wallClock{}
	}
	if opts.Access == nil {
		opts.Access = preflight.DirAccess{}
	}
	return &Manager{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "photos"),
	}
}

// Dir returns the directory new photos are written to.
func (m *Manager) Dir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeDir != "" {
		return m.activeDir
	}
	return m.opts.Dir
}

// Path converts a photo reference into a local path.
func (m *Manager) Path(ref string) string {
	return fileutil.FromURI(ref)
}

// Owns reports whether ref points inside the managed or fallback directory.
func (m *Manager) Owns(ref string) bool {
	if ref == "" {
		return false
	}
	path := fileutil.FromURI(ref)
	return fileutil.Within(m.opts.Dir, path) || fileutil.Within(m.opts.FallbackDir, path)
}

// RequestAccess asks the storage-access collaborator for the managed directory.
func (m *Manager) RequestAccess(ctx context.Context) error {
	return preflight.Require(ctx, m.opts.Access, m.opts.Dir)
}

// Capture asks the configured camera for a photo and commits it to the
// managed directory. Cancellation and camera errors yield "" with no side
// effects.
func (m *Manager) Capture(ctx context.Context) (string, error) {
	return m.CaptureWith(ctx, m.opts.Camera)
}

// CaptureWith is Capture with an explicit camera.
func (m *Manager) CaptureWith(ctx context.Context, camera Camera) (string, error) {
	if err := m.RequestAccess(ctx); err != nil {
		return "", err
	}
	if camera == nil {
		return "", nil
	}
	tmp, err := camera.Capture(ctx)
	if err != nil {
		m.logger.Info("capture returned no photo",
			logging.Error(err),
			logging.String(logging.FieldEventType, "photo_capture_failed"),
		)
		return "", nil
	}
	if tmp == "" {
		m.logger.Debug("capture canceled", logging.String(logging.FieldEventType, "photo_capture_canceled"))
		return "", nil
	}
	src := fileutil.FromURI(tmp)

	dst, err := m.commit(src, "")
	if err != nil {
		return "", err
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(m.logger, "capture temp file not removed", "photo_temp_remove_failed",
			logging.String(logging.FieldPath, src),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stray temp image remains"),
		)
	}
	m.logger.Info("photo captured",
		logging.String(logging.FieldPath, dst),
		logging.String(logging.FieldEventType, "photo_captured"),
	)
	return fileutil.ToURI(dst), nil
}

// Adopt copies an external file into the managed directory under a name
// derived from hint and returns its URI. The source is left untouched.
func (m *Manager) Adopt(ctx context.Context, src, hint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := m.commit(fileutil.FromURI(src), hint)
	if err != nil {
		return "", err
	}
	m.logger.Debug("photo adopted",
		logging.String("source", src),
		logging.String(logging.FieldPath, dst),
		logging.String(logging.FieldEventType, "photo_adopted"),
	)
	return fileutil.ToURI(dst), nil
}

// Delete removes a managed photo. Empty references and missing files are
// fine; references outside the managed directory are refused. Failures are
// logged, never returned.
func (m *Manager) Delete(ref string) {
	if strings.TrimSpace(ref) == "" {
		return
	}
	path := fileutil.FromURI(ref)
	if !m.Owns(path) {
		logging.WarnWithContext(m.logger, "refusing to delete photo outside managed directory", "photo_delete_refused",
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldImpact, "file left in place"),
		)
		return
	}
	m.remove(path)
}

// DeleteTemp removes an import-time temporary copy. The path must lie inside
// tempRoot.
func (m *Manager) DeleteTemp(path, tempRoot string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	path = fileutil.FromURI(path)
	if !fileutil.Within(tempRoot, path) {
		logging.WarnWithContext(m.logger, "refusing to delete temp file outside temp root", "photo_delete_refused",
			logging.String(logging.FieldPath, path),
			logging.String("temp_root", tempRoot),
			logging.String(logging.FieldImpact, "file left in place"),
		)
		return
	}
	m.remove(path)
}

func (m *Manager) remove(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		m.logger.Debug("photo deleted",
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldEventType, "photo_deleted"),
		)
	case errors.Is(err, fs.ErrNotExist):
	default:
		logging.WarnWithContext(m.logger, "photo delete failed", "photo_delete_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check photo_dir permissions"),
			logging.String(logging.FieldImpact, "orphaned photo remains on disk"),
		)
	}
}

// ensureDir creates the managed directory, falling back to FallbackDir when
// the primary location cannot be created.
func (m *Manager) ensureDir() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeDir != "" {
		if err := os.MkdirAll(m.activeDir, 0o755); err == nil {
			return m.activeDir, nil
		}
	}
	primaryErr := os.MkdirAll(m.opts.Dir, 0o755)
	if primaryErr == nil {
		m.activeDir = m.opts.Dir
		return m.activeDir, nil
	}
	if m.opts.FallbackDir == "" {
		return "", fmt.Errorf("%w: create %s: %w", ErrCommit, m.opts.Dir, primaryErr)
	}
	if err := os.MkdirAll(m.opts.FallbackDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrCommit, m.opts.FallbackDir, err)
	}
	logging.WarnWithContext(m.logger, "photo directory unavailable; using fallback", "photo_dir_fallback",
		logging.String(logging.FieldPath, m.opts.Dir),
		logging.String("fallback", m.opts.FallbackDir),
		logging.Error(primaryErr),
		logging.String(logging.FieldErrorHint, "check paths.photo_dir"),
		logging.String(logging.FieldImpact, "photos are stored in the app-private fallback directory"),
	)
	m.activeDir = m.opts.FallbackDir
	return m.activeDir, nil
}

func (m *Manager) commit(src, hint string) (string, error) {
	dir, err := m.ensureDir()
	if err != nil {
		return "", err
	}
	ts := strconv.FormatInt(m.opts.Clock.Now().UnixMilli(), 10)
	stem := m.opts.Album + "_" + ts
	ext := fileutil.Ext(src, ".jpg")
	if hint = strings.TrimSpace(filepath.Base(hint)); hint != "" && hint != "." && hint != string(filepath.Separator) {
		ext = fileutil.Ext(hint, ext)
		stem += "_" + strings.TrimSuffix(hint, filepath.Ext(hint))
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := stem + ext
		if attempt > 0 {
			name = stem + "-" + strconv.Itoa(attempt) + ext
		}
		dst := filepath.Join(dir, name)
		err := fileutil.CopyFileVerified(src, dst, true)
		if err == nil {
			return dst, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", fmt.Errorf("%w: copy %s: %w", ErrCommit, filepath.Base(src), err)
	}
	return "", fmt.Errorf("%w: no free name for %s in %s", ErrCommit, stem, dir)
}
