package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// journalVersion is stored in PRAGMA user_version.
const journalVersion = 2

// ErrSchemaMismatch reports a journal written by a newer winenotes.
var ErrSchemaMismatch = errors.New("journal schema is newer than this build")

// initSchema creates the journal on first use. A journal from an older build
// only holds advisory entries, so it is rebuilt instead of migrated; one from
// a newer build is left alone.
func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	switch {
	case version == journalVersion:
		return nil
	case version > journalVersion:
		return fmt.Errorf("%w: %s has version %d, this build writes %d",
			ErrSchemaMismatch, s.path, version, journalVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if version > 0 {
		for _, stmt := range []string{
			"DROP TABLE IF EXISTS operations",
			"DROP TABLE IF EXISTS schema_version",
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("drop old journal: %w", err)
			}
		}
		s.rebuilt = true
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", journalVersion)); err != nil {
		return fmt.Errorf("record journal version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Rebuilt reports whether Open discarded a journal written by an older build.
func (s *Store) Rebuilt() bool {
	return s.rebuilt
}
