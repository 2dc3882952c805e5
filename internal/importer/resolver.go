package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"winenotes/internal/bundle"
	"winenotes/internal/fileutil"
	"winenotes/internal/janitor"
	"winenotes/internal/logging"
	"winenotes/internal/records"
)

const maxEntrySize = 256 << 20

// PhotoStore is the managed photo directory as seen by an import.
type PhotoStore interface {
	RequestAccess(ctx context.Context) error
	Adopt(ctx context.Context, src, hint string) (string, error)
	Owns(ref string) bool
	Delete(ref string)
	DeleteTemp(path, tempRoot string)
}

// Scheduler removes extraction directories.
type Scheduler interface {
	Schedule(path string, grace time.Duration) *janitor.Task
}

// Clock supplies the extraction directory timestamp.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Options configures a Resolver.
type Options struct {
	// TempRoot is the transient directory archives are extracted into.
	TempRoot string
	Photos   PhotoStore
	Janitor  Scheduler
	Clock    Clock
}

// Resolver loads import files.
type Resolver struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a Resolver.
func New(opts Options, logger *slog.Logger) *Resolver {
	if opts.Clock == nil {
		opts.Clock = wallClock{}
	}
	return &Resolver{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "importer"),
	}
}

// Load reads path, a bundle archive or a loose records file, and resolves
// its photos into the managed directory. Nothing reaches the store until
// Import.Apply. The returned Import must be closed; on error Load has
// already cleaned up after itself.
func (r *Resolver) Load(ctx context.Context, path string) (_ *Import, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".zip" && ext != ".json" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}
	if err := r.opts.Photos.RequestAccess(ctx); err != nil {
		return nil, err
	}

	imp := &Import{Source: path, r: r}
	defer func() {
		if err != nil {
			imp.Close()
		}
	}()

	dataPath, imagesRoot := path, filepath.Dir(path)
	if ext == ".zip" {
		if err := r.extract(ctx, path, imp); err != nil {
			return nil, err
		}
		dataPath, imagesRoot = filepath.Join(imp.tempDir, bundle.JSONFile), imp.tempDir
	}

	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	recs, err := decodeRecords(data)
	if err != nil {
		return nil, err
	}
	imp.Records = recs
	if err := r.resolvePhotos(ctx, imp, imagesRoot); err != nil {
		return nil, err
	}
	for i := range imp.Records {
		imp.Records[i].Normalize()
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldPath, path),
		logging.Int("record_count", len(imp.Records)),
		logging.Int("adopted_photos", imp.AdoptedPhotos),
		logging.Int("cleared_photos", imp.ClearedPhotos),
		logging.String(logging.FieldEventType, "import_loaded"),
	}
	if imp.ClearedPhotos > 0 {
		logging.WarnWithContext(r.logger, "import loaded with missing photos", "import_partial", attrs...)
	} else {
		r.logger.Info("import loaded", logging.Args(attrs...)...)
	}
	return imp, nil
}

// extract materializes the records file and images of an archive into a
// fresh directory under TempRoot.
func (r *Resolver) extract(ctx context.Context, path string, imp *Import) error {
	zr, err := bundle.OpenZip(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchive, err)
	}
	defer zr.Close()

	dir, err := bundle.MakeWorkDir(r.opts.TempRoot, bundle.ImportDirPrefix, r.opts.Clock.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWorkDir, err)
	}
	imp.tempDir = dir

	found := false
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		rel, ok := bundle.EntryTarget(f.Name)
		if !ok {
			r.logger.Debug("archive entry skipped",
				logging.String("entry", f.Name),
				logging.String(logging.FieldEventType, "import_entry_skipped"),
			)
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if !fileutil.Within(dir, target) {
			continue
		}
		err := extractFile(f, target)
		if rel == bundle.JSONFile {
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrArchive, f.Name, err)
			}
			found = true
			continue
		}
		if err != nil {
			logging.WarnWithContext(r.logger, "archive image not extracted", "import_entry_failed",
				logging.String("entry", f.Name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "records referencing this image lose the photo"),
			)
		}
	}
	if !found {
		return ErrMissingData
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if f.UncompressedSize64 > maxEntrySize {
		return fmt.Errorf("entry larger than %d bytes", maxEntrySize)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if err == nil && n > maxEntrySize {
		err = fmt.Errorf("entry larger than %d bytes", maxEntrySize)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
	}
	return err
}

// resolvePhotos re-homes bundle-relative photo references. Missing files and
// failed copies clear the field; other references pass through unchanged.
// Extracted images are removed only after every record is resolved, since
// several records may share one bundle image.
func (r *Resolver) resolvePhotos(ctx context.Context, imp *Import, imagesRoot string) error {
	adoptedFrom := make(map[string]struct{})
	defer func() {
		if imp.tempDir == "" {
			return
		}
		for src := range adoptedFrom {
			r.opts.Photos.DeleteTemp(src, imp.tempDir)
		}
	}()

	for i := range imp.Records {
		rec := &imp.Records[i]
		for _, kind := range records.PhotoKinds {
			ref := rec.Photo(kind)
			dir, name, ok := bundle.SplitRef(ref)
			if !ok {
				if bundle.HasRelativePrefix(ref) {
					logging.WarnWithContext(r.logger, "bundle photo reference rejected", "import_photo_rejected",
						logging.Int(logging.FieldRecordIndex, i+1),
						logging.String(logging.FieldPhotoKind, string(kind)),
						logging.String(logging.FieldPath, ref),
						logging.String(logging.FieldImpact, "photo field cleared"),
					)
					rec.SetPhoto(kind, "")
					imp.ClearedPhotos++
				}
				continue
			}
			src, found := locateImage(imagesRoot, dir, name)
			if !found {
				logging.WarnWithContext(r.logger, "bundle photo missing", "import_photo_missing",
					logging.Int(logging.FieldRecordIndex, i+1),
					logging.String(logging.FieldPhotoKind, string(kind)),
					logging.String(logging.FieldPath, ref),
					logging.String(logging.FieldImpact, "photo field cleared"),
				)
				rec.SetPhoto(kind, "")
				imp.ClearedPhotos++
				continue
			}
			uri, err := r.opts.Photos.Adopt(ctx, src, name)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logging.WarnWithContext(r.logger, "bundle photo not copied", "import_photo_failed",
					logging.Int(logging.FieldRecordIndex, i+1),
					logging.String(logging.FieldPhotoKind, string(kind)),
					logging.String(logging.FieldPath, src),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check photo_dir permissions and free space"),
					logging.String(logging.FieldImpact, "photo field cleared"),
				)
				rec.SetPhoto(kind, "")
				imp.ClearedPhotos++
				continue
			}
			rec.SetPhoto(kind, uri)
			imp.adopted = append(imp.adopted, uri)
			imp.AdoptedPhotos++
			adoptedFrom[src] = struct{}{}
		}
	}
	return nil
}

// locateImage looks for name in the folder the reference names, then in the
// other accepted images folder.
func locateImage(root, dir, name string) (string, bool) {
	candidates := []string{dir}
	for _, alt := range bundle.ImageDirs {
		if alt != dir {
			candidates = append(candidates, alt)
		}
	}
	for _, candidate := range candidates {
		path := filepath.Join(root, candidate, name)
		if fileutil.Exists(path) {
			return path, true
		}
	}
	return "", false
}

func isSilent(err error) bool {
	return records.Classify(err) == records.CategorySilent
}
