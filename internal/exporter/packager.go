package exporter

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"winenotes/internal/bundle"
	"winenotes/internal/fileutil"
	"winenotes/internal/janitor"
	"winenotes/internal/logging"
	"winenotes/internal/preflight"
	"winenotes/internal/records"
)

var (
	// ErrNothingToExport reports an empty record selection.
	ErrNothingToExport = records.NewError(records.CategoryFatal, "no records to export")
	// ErrExport wraps failures that abort an export: the working directory,
	// the records JSON, the archive or the manifest could not be written.
	ErrExport = records.NewError(records.CategoryFatal, "export failed")
	// ErrPartialExport reports that some photos were left out of the archive.
	ErrPartialExport = records.NewError(records.CategoryDegraded, "some photos could not be exported")
	// ErrAccessDenied reports that storage access for the export root was refused.
	ErrAccessDenied = preflight.ErrAccessDenied
)

const copyConcurrency = 4

// Clock supplies the export timestamp.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Scheduler takes ownership of the export directory once packaging is done.
type Scheduler interface {
	Schedule(path string, grace time.Duration) *janitor.Task
}

// Options configures a Packager.
type Options struct {
	// Root is the transient directory export working directories live in.
	Root   string
	Access preflight.StorageAccess
	// Janitor removes the working directory after Grace. Nil keeps it.
	Janitor Scheduler
	Grace   time.Duration
	Clock   Clock
}

// Packager builds export bundles.
type Packager struct {
	opts   Options
	logger *slog.Logger
}

// Result describes a finished export.
type Result struct {
	ExportDir    string
	ArchivePath  string
	JSONPath     string
	ManifestPath string
	ReadmePath   string
	Records      int
	TotalImages  int
	FailedImages int
	Manifest     bundle.Manifest
	// Cleanup is the janitor task owning ExportDir, nil when none was scheduled.
	Cleanup *janitor.Task
}

// Summary renders the outcome for the user.
func (r *Result) Summary() string {
	if r == nil {
		return ""
	}
	noun := "records"
	if r.Records == 1 {
		noun = "record"
	}
	if r.FailedImages == 0 {
		return fmt.Sprintf("exported %d %s with %d images", r.Records, noun, r.TotalImages)
	}
	return fmt.Sprintf("exported %d %s; could not copy %d of %d images", r.Records, noun, r.FailedImages, r.TotalImages)
}

// Err returns ErrPartialExport when photos were left out, nil otherwise.
func (r *Result) Err() error {
	if r == nil || r.FailedImages == 0 {
		return nil
	}
	return fmt.Errorf("%w: could not copy %d of %d images", ErrPartialExport, r.FailedImages, r.TotalImages)
}

type copyTask struct {
	record int
	kind   records.PhotoKind
	src    string
	name   string
	size   int64
}

// New constructs a Packager.
func New(opts Options, logger *slog.Logger) *Packager {
	if opts.Clock == nil {
		opts.Clock = wallClock{}
	}
	if opts.Access == nil {
		opts.Access = preflight.DirAccess{}
	}
	return &Packager{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "exporter"),
	}
}

// Export packages recs. The caller's records are never modified. Photo copy
// failures only reduce the archive's completeness and are reported through
// Result.FailedImages; the affected fields keep their bundle-relative path.
func (p *Packager) Export(ctx context.Context, recs []records.WineRecord) (*Result, error) {
	if len(recs) == 0 {
		return nil, ErrNothingToExport
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	created := p.opts.Clock.Now()
	stamp := created.UnixMilli()

	out := records.CloneAll(recs)
	tasks := planCopies(out, stamp)

	if err := preflight.Require(ctx, p.opts.Access, p.opts.Root); err != nil {
		return nil, err
	}
	dir, err := p.createDir(stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}

	result := &Result{
		ExportDir:    dir,
		ArchivePath:  filepath.Join(dir, bundle.ArchiveFile),
		JSONPath:     filepath.Join(dir, bundle.JSONFile),
		ManifestPath: filepath.Join(dir, bundle.ManifestFile),
		ReadmePath:   filepath.Join(dir, bundle.ReadmeFile),
		Records:      len(out),
		TotalImages:  len(tasks),
	}
	finished := false
	defer func() {
		if !finished {
			p.discard(dir)
		}
	}()

	copied := p.copyImages(ctx, dir, tasks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.FailedImages = len(tasks) - len(copied)

	data, err := encodeRecords(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := fileutil.WriteFileAtomic(result.JSONPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: write %s: %w", ErrExport, bundle.JSONFile, err)
	}
	if err := writeArchive(result.ArchivePath, data, dir, copied, created); err != nil {
		return nil, fmt.Errorf("%w: write %s: %w", ErrExport, bundle.ArchiveFile, err)
	}

	manifest, err := buildManifest(result, copied, created)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := bundle.WriteManifest(result.ManifestPath, manifest); err != nil {
		return nil, fmt.Errorf("%w: write %s: %w", ErrExport, bundle.ManifestFile, err)
	}
	result.Manifest = manifest

	if err := writeReadme(result.ReadmePath, created, result.Records, result.TotalImages, result.FailedImages); err != nil {
		logging.WarnWithContext(p.logger, "export readme not written", "export_readme_failed",
			logging.String(logging.FieldPath, result.ReadmePath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the bundle has no readme"),
		)
		result.ReadmePath = ""
	}

	finished = true
	if p.opts.Janitor != nil {
		result.Cleanup = p.opts.Janitor.Schedule(dir, p.opts.Grace)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldPath, result.ArchivePath),
		logging.Int("record_count", result.Records),
		logging.Int("image_count", result.TotalImages),
		logging.Int("failed_images", result.FailedImages),
		logging.String(logging.FieldEventType, "export_completed"),
	}
	if result.FailedImages > 0 {
		logging.WarnWithContext(p.logger, "export completed with missing photos", "export_partial", attrs...)
	} else {
		p.logger.Info("export completed", logging.Args(attrs...)...)
	}
	return result, nil
}

// ExportJSON writes recs without photo references to dst. When dst is an
// existing directory the records file name is appended. The written path is
// returned.
func (p *Packager) ExportJSON(ctx context.Context, recs []records.WineRecord, dst string) (string, error) {
	if len(recs) == 0 {
		return "", ErrNothingToExport
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, bundle.JSONFile)
	}
	if err := preflight.Require(ctx, p.opts.Access, filepath.Dir(dst)); err != nil {
		return "", err
	}
	out := records.CloneAll(recs)
	for i := range out {
		out[i].ClearPhotos()
	}
	data, err := encodeRecords(out)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := fileutil.WriteFileAtomic(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", ErrExport, dst, err)
	}
	p.logger.Info("records exported as json",
		logging.String(logging.FieldPath, dst),
		logging.Int("record_count", len(out)),
		logging.String(logging.FieldEventType, "export_json_completed"),
	)
	return dst, nil
}

// planCopies rewrites every photo field to its bundle-relative path and
// returns the copies needed to populate the images folder.
func planCopies(recs []records.WineRecord, stamp int64) []copyTask {
	var tasks []copyTask
	for i := range recs {
		for _, kind := range records.PhotoKinds {
			ref := recs[i].Photo(kind)
			if ref == "" {
				continue
			}
			src := fileutil.FromURI(ref)
			name := bundle.ImageName(kind, i+1, stamp, fileutil.Ext(src, bundle.DefaultImageExt))
			tasks = append(tasks, copyTask{record: i, kind: kind, src: src, name: name})
			recs[i].SetPhoto(kind, bundle.ImageRef(name))
		}
	}
	return tasks
}

func (p *Packager) createDir(stamp int64) (string, error) {
	dir, err := bundle.MakeWorkDir(p.opts.Root, bundle.ExportDirPrefix, stamp)
	if err != nil {
		return "", err
	}
	if err := os.Mkdir(filepath.Join(dir, bundle.ImagesDir), 0o755); err != nil {
		_ = os.Remove(dir)
		return "", fmt.Errorf("create images folder: %w", err)
	}
	return dir, nil
}

// copyImages copies the planned photos into the images folder, a few at a
// time. The returned tasks keep plan order; failed copies are left out.
func (p *Packager) copyImages(ctx context.Context, dir string, tasks []copyTask) []copyTask {
	done := make([]bool, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for i := range tasks {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			done[i] = p.copyImage(dir, &tasks[i])
			return nil
		})
	}
	_ = g.Wait()

	copied := make([]copyTask, 0, len(tasks))
	for i, task := range tasks {
		if done[i] {
			copied = append(copied, task)
		}
	}
	return copied
}

func (p *Packager) copyImage(dir string, task *copyTask) bool {
	dst := filepath.Join(dir, bundle.ImagesDir, task.name)
	if err := fileutil.CopyFileVerified(task.src, dst, true); err != nil {
		hint := "check that the photo file still exists"
		if !fileutil.IsNotExist(err) {
			hint = "check permissions on the photo and transient directories"
		}
		logging.WarnWithContext(p.logger, "photo not exported", "export_photo_failed",
			logging.Int(logging.FieldRecordIndex, task.record+1),
			logging.String(logging.FieldPhotoKind, string(task.kind)),
			logging.String(logging.FieldPath, task.src),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "the archive lacks this photo"),
		)
		return false
	}
	if info, err := os.Stat(dst); err == nil {
		task.size = info.Size()
	}
	return true
}

// discard hands a failed export directory to the janitor without delay.
func (p *Packager) discard(dir string) {
	if p.opts.Janitor == nil {
		return
	}
	p.opts.Janitor.Schedule(dir, 0)
}

func encodeRecords(recs []records.WineRecord) ([]byte, error) {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return append(data, '\n'), nil
}

func writeArchive(path string, data []byte, dir string, copied []copyTask, modified time.Time) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	zw := bundle.NewZipWriter(f)
	add := func(name string, r io.Reader) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return err
		}
		_, err = io.Copy(w, r)
		return err
	}

	if err := add(bundle.JSONFile, bytes.NewReader(data)); err != nil {
		return err
	}
	if _, err := zw.CreateHeader(&zip.FileHeader{Name: bundle.ImagesDir + "/", Method: zip.Store, Modified: modified}); err != nil {
		return err
	}
	for _, task := range copied {
		img, err := os.Open(filepath.Join(dir, bundle.ImagesDir, task.name))
		if err != nil {
			return err
		}
		err = add(bundle.ImageRef(task.name), img)
		_ = img.Close()
		if err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}

func buildManifest(result *Result, copied []copyTask, created time.Time) (bundle.Manifest, error) {
	archive, err := bundle.DescribeFile(bundle.ArchiveFile, result.ArchivePath)
	if err != nil {
		return bundle.Manifest{}, err
	}
	data, err := bundle.DescribeFile(bundle.JSONFile, result.JSONPath)
	if err != nil {
		return bundle.Manifest{}, err
	}
	images := bundle.Artifact{Name: bundle.ImagesDir + "/", Entries: len(copied)}
	for _, task := range copied {
		images.Size += task.size
	}
	return bundle.Manifest{
		Format:       bundle.Format,
		Version:      bundle.FormatVersion,
		CreatedAt:    created.UTC(),
		RecordCount:  result.Records,
		ImageCount:   len(copied),
		FailedImages: result.FailedImages,
		Archive:      archive,
		Artifacts:    []bundle.Artifact{data, images},
	}, nil
}
