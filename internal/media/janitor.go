package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Janitor periodically deletes media files older than maxAge.
type Janitor struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewJanitor creates a Janitor for dir.
func NewJanitor(dir string, maxAge, interval time.Duration) *Janitor {
	return &Janitor{dir: dir, maxAge: maxAge, interval: interval, now: time.Now}
}

// Start runs the cleanup loop. It blocks until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	slog.Info("media janitor started", "dir", j.dir, "maxAge", j.maxAge.String(), "interval", j.interval.String())
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("media janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep removes expired files once and returns how many were deleted.
func (j *Janitor) Sweep(ctx context.Context) int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("media janitor: failed to read directory", "dir", j.dir, "error", err)
		}
		return 0
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed
		}
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, e.Name())); err != nil {
			slog.Warn("media janitor: failed to remove file", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("media janitor: removed expired files", "count", removed)
	}
	return removed
}
