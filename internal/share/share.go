package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"winenotes/internal/config"
	"winenotes/internal/fileutil"
	"winenotes/internal/records"
)

const (
	userAgent = "winenotes/0.1.0"
	// MimeZip is the content type of export archives.
	MimeZip = "application/zip"

	maxNameAttempts = 1000
)

// ErrShare reports that an archive was produced but not delivered.
var ErrShare = records.NewError(records.CategoryDegraded, "archive could not be shared")

// Surface receives a finished file.
type Surface interface {
	Share(ctx context.Context, filePath, mimeType, title string) error
}

// NewSurface returns the ntfy surface when a topic is configured and a no-op
// surface otherwise.
func NewSurface(cfg *config.Config) Surface {
	if cfg == nil || strings.TrimSpace(cfg.Share.NtfyTopic) == "" {
		return noopSurface{}
	}
	timeout := cfg.ShareTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ntfySurface{
		endpoint: strings.TrimSpace(cfg.Share.NtfyTopic),
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether s delivers anywhere.
func Enabled(s Surface) bool {
	_, noop := s.(noopSurface)
	return s != nil && !noop
}

type ntfySurface struct {
	endpoint string
	client   *http.Client
}

// Share uploads filePath as an ntfy attachment.
func (n *ntfySurface) Share(ctx context.Context, filePath, mimeType, title string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShare, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShare, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, n.endpoint, f)
	if err != nil {
		return fmt.Errorf("%w: build ntfy request: %w", ErrShare, err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Filename", filepath.Base(filePath))
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}
	if title = strings.TrimSpace(title); title != "" {
		req.Header.Set("Title", title)
	}
	req.Header.Set("Tags", "wine_glass,winenotes,export")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send to ntfy: %w", ErrShare, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: ntfy returned %d: %s", ErrShare, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// DirSurface copies shared files into Dir, never overwriting an existing file.
type DirSurface struct {
	Dir string

	mu   sync.Mutex
	last string
}

// Share copies filePath into the directory. A taken name gets a numeric
// suffix.
func (d *DirSurface) Share(ctx context.Context, filePath, _, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrShare, d.Dir, err)
	}
	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := base
		if attempt > 0 {
			name = stem + "-" + strconv.Itoa(attempt) + ext
		}
		dst := filepath.Join(d.Dir, name)
		err := fileutil.CopyFileVerified(filePath, dst, true)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: copy to %s: %w", ErrShare, d.Dir, err)
		}
		d.mu.Lock()
		d.last = dst
		d.mu.Unlock()
		return nil
	}
	return fmt.Errorf("%w: no free name for %s in %s", ErrShare, base, d.Dir)
}

// Last returns the destination of the most recent successful Share.
func (d *DirSurface) Last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

type noopSurface struct{}

func (noopSurface) Share(context.Context, string, string, string) error { return nil }
