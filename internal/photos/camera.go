package photos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"winenotes/internal/fileutil"
)

// Camera produces a temporary image file. An empty path with a nil error
// means the user canceled.
type Camera interface {
	Capture(ctx context.Context) (string, error)
}

// FileCamera "captures" an existing image file: it stages a private copy in
// StagingDir so the manager can consume and delete it like a camera temp file
// without touching the user's original.
type FileCamera struct {
	Source     string
	StagingDir string
}

func (c FileCamera) Capture(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src := strings.TrimSpace(c.Source)
	if src == "" {
		return "", nil
	}
	src = fileutil.FromURI(src)
	if !fileutil.Exists(src) {
		return "", fmt.Errorf("capture source %s: not a readable file", src)
	}
	stagingDir := c.StagingDir
	if stagingDir == "" {
		stagingDir = os.TempDir()
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	tmp, err := os.CreateTemp(stagingDir, "capture-*"+fileutil.Ext(src, ".jpg"))
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	if err := fileutil.CopyFileVerified(src, tmpPath, false); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("stage capture: %w", err)
	}
	return filepath.Clean(tmpPath), nil
}
