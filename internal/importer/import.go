package importer

import (
	"context"
	"fmt"
	"sync"

	"winenotes/internal/fileutil"
	"winenotes/internal/logging"
	"winenotes/internal/records"
)

// Target is the record collection an import merges into.
type Target interface {
	Snapshot() []records.WineRecord
	ReplaceAll(ctx context.Context, recs []records.WineRecord) error
	Append(ctx context.Context, recs []records.WineRecord) error
}

// Import is a loaded file waiting for the caller's merge decision.
type Import struct {
	Source  string
	Records []records.WineRecord
	// AdoptedPhotos counts photos copied into the managed directory.
	AdoptedPhotos int
	// ClearedPhotos counts bundle references that could not be resolved.
	ClearedPhotos int

	r       *Resolver
	tempDir string
	adopted []string

	mu      sync.Mutex
	applied bool
	closed  bool
}

// Summary renders the loaded content for the user.
func (imp *Import) Summary() string {
	msg := fmt.Sprintf("found %d records with %d photos", len(imp.Records), imp.AdoptedPhotos)
	if imp.ClearedPhotos > 0 {
		msg += fmt.Sprintf("; %d photo references could not be resolved and were cleared", imp.ClearedPhotos)
	}
	return msg
}

// Apply merges the imported records into target. Replace also deletes the
// managed photos of the replaced records that the import does not reuse.
// A persist failure of the store is returned but the merge stays applied.
func (imp *Import) Apply(ctx context.Context, target Target, strategy Strategy) error {
	if err := strategy.validate(); err != nil {
		return err
	}
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if imp.closed {
		return ErrClosed
	}
	if imp.applied {
		return ErrApplied
	}

	var (
		previous []records.WineRecord
		err      error
	)
	switch strategy {
	case StrategyReplace:
		previous = target.Snapshot()
		err = target.ReplaceAll(ctx, imp.Records)
	case StrategyAppend:
		err = target.Append(ctx, imp.Records)
	}
	if err != nil && !isSilent(err) {
		return err
	}
	imp.applied = true
	if strategy == StrategyReplace {
		imp.releasePhotos(previous)
	}

	imp.r.logger.Info("import applied",
		logging.String(logging.FieldPath, imp.Source),
		logging.String("strategy", string(strategy)),
		logging.Int("record_count", len(imp.Records)),
		logging.String(logging.FieldEventType, "import_applied"),
	)
	return err
}

// Close hands the extraction directory to the janitor and, when the import
// was never applied, deletes the photos it adopted. It is safe to call more
// than once.
func (imp *Import) Close() {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if imp.closed {
		return
	}
	imp.closed = true

	if !imp.applied {
		for _, ref := range imp.adopted {
			imp.r.opts.Photos.Delete(ref)
		}
		imp.adopted = nil
	}
	if imp.tempDir != "" && imp.r.opts.Janitor != nil {
		imp.r.opts.Janitor.Schedule(imp.tempDir, 0)
	}
}

func (imp *Import) releasePhotos(previous []records.WineRecord) {
	keep := make(map[string]struct{})
	for i := range imp.Records {
		for _, ref := range imp.Records[i].Photos() {
			keep[fileutil.FromURI(ref)] = struct{}{}
		}
	}
	photos := imp.r.opts.Photos
	for i := range previous {
		for _, ref := range previous[i].Photos() {
			if _, ok := keep[fileutil.FromURI(ref)]; ok {
				continue
			}
			if photos.Owns(ref) {
				photos.Delete(ref)
			}
		}
	}
}
