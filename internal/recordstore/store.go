package recordstore

import (
	"context"
	"encoding/json"
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

	"github.com/gofrs/flock"

	"winenotes/internal/fileutil"
	"winenotes/internal/logging"
	"winenotes/internal/records"
)

var (
	// ErrPersist reports that the backing file could not be written. The
	// in-memory mutation already happened and stays in effect.
	ErrPersist = records.NewError(records.CategorySilent, "records not saved to disk")
	// ErrIndexOutOfRange reports a position outside the collection.
	ErrIndexOutOfRange = records.NewError(records.CategoryFatal, "record index out of range")
	// ErrNotFound reports an unknown record reference.
	ErrNotFound = records.NewError(records.CategoryFatal, "record not found")
	// ErrAmbiguous reports an id prefix matching more than one record.
	ErrAmbiguous = records.NewError(records.CategoryFatal, "record reference is ambiguous")
	// ErrLocked reports that another process holds the store.
	ErrLocked = records.NewError(records.CategoryFatal, "record store is locked by another process")
)

const (
	lockRetryInterval = 100 * time.Millisecond
	minIDPrefix       = 4
)

// PhotoOwner deletes photos the store no longer references.
type PhotoOwner interface {
	Owns(ref string) bool
	Delete(ref string)
}

// Store is the single in-memory source of truth for the record collection.
type Store struct {
	path   string
	photos PhotoOwner
	logger *slog.Logger
	lock   *flock.Flock

	mu   sync.RWMutex
	recs []records.WineRecord
}

// Open locks and loads the store at path. An empty path yields a store that
// never touches disk. Only a lock failure is returned as an error.
func Open(ctx context.Context, path string, photos PhotoOwner, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		photos: photos,
		logger: logging.NewComponentLogger(logger, "recordstore"),
		recs:   []records.WineRecord{},
	}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s.lock = flock.New(path + ".lock")
	locked, err := s.lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocked, err)
	}
	if !locked {
		return nil, ErrLocked
	}

	s.load()
	return s, nil
}

// Close releases the cross-process lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// All returns the live ordered collection. Callers must not modify it.
func (s *Store) All() []records.WineRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recs
}

// Snapshot returns a deep copy of the collection.
func (s *Store) Snapshot() []records.WineRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return records.CloneAll(s.recs)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

// At returns a copy of the record at the 0-based index.
func (s *Store) At(index int) (records.WineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.recs) {
		return records.WineRecord{}, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index+1, len(s.recs))
	}
	return s.recs[index].Clone(), nil
}

// IndexOf returns the 0-based position of id, or -1.
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfLocked(id)
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (records.WineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		return records.WineRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.recs[idx].Clone(), nil
}

// Resolve turns a user reference into a 0-based index. A reference is a
// 1-based list number, a full id, or an id prefix of at least four characters
// that matches exactly one record.
func (s *Store) Resolve(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(s.recs) {
			return -1, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, n, len(s.recs))
		}
		return n - 1, nil
	}
	if idx := s.indexOfLocked(ref); idx >= 0 {
		return idx, nil
	}
	if len(ref) < minIDPrefix {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	match := -1
	for i := range s.recs {
		if strings.HasPrefix(s.recs[i].ID, ref) {
			if match >= 0 {
				return -1, fmt.Errorf("%w: %s", ErrAmbiguous, ref)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return match, nil
}

// Add appends a record and persists the collection. It returns the record's id.
func (s *Store) Add(ctx context.Context, rec records.WineRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec = rec.Clone()
	s.assignIDLocked(&rec)
	s.recs = append(s.recs, rec)
	s.logger.Info("record added",
		logging.String(logging.FieldRecordID, rec.ID),
		logging.Int(logging.FieldRecordIndex, len(s.recs)),
		logging.String(logging.FieldEventType, "record_added"),
	)
	return rec.ID, s.saveLocked()
}

// ReplaceAt swaps the record at index, keeping its id, and deletes managed
// photos the new version no longer references.
func (s *Store) ReplaceAt(ctx context.Context, index int, rec records.WineRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.recs) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index+1, len(s.recs))
	}
	old := s.recs[index]
	rec = rec.Clone()
	rec.ID = old.ID
	s.recs[index] = rec

	keep := make(map[string]struct{})
	for _, ref := range rec.Photos() {
		keep[ref] = struct{}{}
	}
	for _, ref := range old.Photos() {
		if _, still := keep[ref]; !still {
			s.deletePhoto(ref)
		}
	}
	s.logger.Info("record replaced",
		logging.String(logging.FieldRecordID, rec.ID),
		logging.Int(logging.FieldRecordIndex, index+1),
		logging.String(logging.FieldEventType, "record_replaced"),
	)
	return s.saveLocked()
}

// Replace is ReplaceAt addressed by id.
func (s *Store) Replace(ctx context.Context, id string, rec records.WineRecord) error {
	idx := s.IndexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.ReplaceAt(ctx, idx, rec)
}

// RemoveAt deletes the record's managed photos, then drops the record.
// Photo deletion failures are logged; the record is always removed.
func (s *Store) RemoveAt(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.recs) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index+1, len(s.recs))
	}
	removed := s.recs[index]
	for _, ref := range removed.Photos() {
		s.deletePhoto(ref)
	}
	s.recs = append(s.recs[:index:index], s.recs[index+1:]...)
	s.logger.Info("record removed",
		logging.String(logging.FieldRecordID, removed.ID),
		logging.Int(logging.FieldRecordIndex, index+1),
		logging.String(logging.FieldEventType, "record_removed"),
	)
	return s.saveLocked()
}

// Remove is RemoveAt addressed by id.
func (s *Store) Remove(ctx context.Context, id string) error {
	idx := s.IndexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.RemoveAt(ctx, idx)
}

// RemoveAll deletes every managed photo and empties the store.
func (s *Store) RemoveAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.recs)
	for i := range s.recs {
		for _, ref := range s.recs[i].Photos() {
			s.deletePhoto(ref)
		}
	}
	s.recs = []records.WineRecord{}
	s.logger.Info("all records removed",
		logging.Int("record_count", count),
		logging.String(logging.FieldEventType, "records_cleared"),
	)
	return s.saveLocked()
}

// ReplaceAll swaps the whole collection without touching photos. The caller
// is responsible for photo ownership of both the old and new records.
func (s *Store) ReplaceAll(ctx context.Context, recs []records.WineRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs = make([]records.WineRecord, 0, len(recs))
	for _, rec := range recs {
		rec = rec.Clone()
		s.assignIDLocked(&rec)
		s.recs = append(s.recs, rec)
	}
	s.logger.Info("records replaced",
		logging.Int("record_count", len(s.recs)),
		logging.String(logging.FieldEventType, "records_replaced"),
	)
	return s.saveLocked()
}

// Append adds recs after the existing records, in order. Ids that collide
// with stored records are regenerated.
func (s *Store) Append(ctx context.Context, recs []records.WineRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range recs {
		rec = rec.Clone()
		s.assignIDLocked(&rec)
		s.recs = append(s.recs, rec)
	}
	s.logger.Info("records appended",
		logging.Int("appended", len(recs)),
		logging.Int("record_count", len(s.recs)),
		logging.String(logging.FieldEventType, "records_appended"),
	)
	return s.saveLocked()
}

func (s *Store) indexOfLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.recs {
		if s.recs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) assignIDLocked(rec *records.WineRecord) {
	rec.EnsureID()
	for s.indexOfLocked(rec.ID) >= 0 {
		rec.ID = records.NewID()
	}
}

func (s *Store) deletePhoto(ref string) {
	if s.photos == nil || ref == "" {
		return
	}
	if !s.photos.Owns(ref) {
		s.logger.Debug("photo not managed; left in place",
			logging.String(logging.FieldPath, ref),
			logging.String(logging.FieldEventType, "photo_delete_skipped"),
		)
		return
	}
	s.photos.Delete(ref)
}

// load reads the backing file into memory. Failures leave the store empty.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "failed to read records file", "records_load_failed",
				logging.String(logging.FieldPath, s.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check data_dir permissions"),
				logging.String(logging.FieldImpact, "store starts empty"),
			)
		}
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return
	}

	var recs []records.WineRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixMilli())
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			backup = ""
		}
		logging.WarnWithContext(s.logger, "records file unreadable; starting empty", "records_parse_failed",
			logging.String(logging.FieldPath, s.path),
			logging.String("backup", backup),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the backup copy or import a previous export"),
			logging.String(logging.FieldImpact, "store starts empty"),
		)
		return
	}

	assigned := 0
	seen := make(map[string]struct{}, len(recs))
	for i := range recs {
		if recs[i].EnsureID() {
			assigned++
		}
		if _, dup := seen[recs[i].ID]; dup {
			recs[i].ID = records.NewID()
			assigned++
		}
		seen[recs[i].ID] = struct{}{}
		recs[i].Normalize()
	}
	if recs == nil {
		recs = []records.WineRecord{}
	}
	s.recs = recs
	s.logger.Debug("loaded records",
		logging.Int("record_count", len(recs)),
		logging.String(logging.FieldPath, s.path),
	)

	if assigned > 0 {
		if err := s.saveLocked(); err != nil {
			logging.WarnWithContext(s.logger, "could not persist assigned record ids", "records_id_persist_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "ids will be reassigned on next start"),
			)
		}
	}
}

// saveLocked rewrites the backing file. The in-memory state stays
// authoritative when the write fails.
func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.recs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPersist, err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		logging.WarnWithContext(s.logger, "records not saved", "records_persist_failed",
			logging.String(logging.FieldPath, s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and data_dir permissions"),
			logging.String(logging.FieldImpact, "changes live only until the process exits"),
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
