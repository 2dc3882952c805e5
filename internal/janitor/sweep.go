package janitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"winenotes/internal/logging"
)

// TransientPrefix marks directories the janitor is allowed to sweep.
const TransientPrefix = "WineTasting_"

// SweepResult contains the outcome of a sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a directory path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// DirInfo contains metadata about a transient directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// Sweep removes transient directories under root older than maxAge. A zero
// maxAge removes every transient directory. Directories that belong to a
// still-pending task of this janitor are left alone.
func (j *Janitor) Sweep(ctx context.Context, root string, maxAge time.Duration) SweepResult {
	result := SweepResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: root, Error: err})
		}
		return result
	}

	active := j.activePaths()
	cutoff := j.clock.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), TransientPrefix) {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		if _, busy := active[dirPath]; busy {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Error: err})
			continue
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}

		if err := j.remove(dirPath); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Error: err})
			logging.WarnWithContext(j.logger, "failed to remove stale transient directory", "transient_sweep_failed",
				logging.String(logging.FieldPath, dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check transient_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		j.logger.Info("removed stale transient directory",
			logging.String(logging.FieldPath, dirPath),
			logging.Duration("age", j.clock.Now().Sub(info.ModTime())),
			logging.String(logging.FieldEventType, "transient_sweep"),
		)
	}

	return result
}

func (j *Janitor) activePaths() map[string]struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	paths := make(map[string]struct{}, len(j.tasks))
	for task := range j.tasks {
		paths[filepath.Clean(task.Path)] = struct{}{}
	}
	return paths
}

// List returns the transient directories under root with their metadata.
func List(root string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), TransientPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    dirSize(dirPath),
		})
	}
	return dirs, nil
}

// dirSize calculates the total size of a directory recursively, best effort.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
