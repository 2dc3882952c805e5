package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"winenotes/internal/records"
)

// ErrAccessDenied reports that storage access was refused.
var ErrAccessDenied = records.NewError(records.CategoryFatal, "storage access denied")

// Require asks access for dir and converts a refusal into ErrAccessDenied.
func Require(ctx context.Context, access StorageAccess, dir string) error {
	if access == nil {
		access = DirAccess{}
	}
	if !access.RequestStorageAccess(ctx, dir) {
		return fmt.Errorf("%w: %s", ErrAccessDenied, dir)
	}
	return nil
}

// StorageAccess is consulted before writes outside app-private storage.
// A false answer aborts the operation with a user-facing message.
type StorageAccess interface {
	RequestStorageAccess(ctx context.Context, dir string) bool
}

// DirAccess grants access when dir, or the nearest ancestor that exists, is
// writable by the current user.
type DirAccess struct{}

func (DirAccess) RequestStorageAccess(ctx context.Context, dir string) bool {
	if ctx.Err() != nil {
		return false
	}
	target, err := nearestExisting(dir)
	if err != nil {
		return false
	}
	return unix.Access(target, unix.W_OK|unix.X_OK) == nil
}

// Static answers every request with the same value.
type Static bool

func (s Static) RequestStorageAccess(context.Context, string) bool { return bool(s) }

func nearestExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for current := abs; ; {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", current)
			}
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing parent for %s", path)
		}
		current = parent
	}
}
