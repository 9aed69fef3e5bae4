// Package seedwatch reloads category seeds when the seed file changes on disk.
package seedwatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"expensepie/internal/core"
	"expensepie/internal/store"
)

// Reseeder receives freshly parsed seeds.
type Reseeder interface {
	Reseed(seeds []core.Category)
}

// Watcher watches a data directory for changes to the seed file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	target   Reseeder
	debounce time.Duration
}

// New creates a watcher for dir/categories.yaml. The directory is watched
// rather than the file so that editors replacing the file are noticed.
func New(dir string, target Reseeder) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{watcher: w, dir: dir, target: target, debounce: 200 * time.Millisecond}, nil
}

// Run blocks until ctx is cancelled, reseeding the target after each burst
// of writes to the seed file. Invalid files are logged and ignored.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	path := filepath.Join(w.dir, store.SeedFile)
	var timer *time.Timer
	var fire <-chan time.Time

	slog.InfoContext(ctx, "Watching seed file", "path", path)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != store.SeedFile {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(ctx, path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Seed watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context, path string) {
	seeds, err := store.LoadSeeds(path)
	if err != nil {
		slog.WarnContext(ctx, "Ignoring seed file change", "path", path, "error", err)
		return
	}
	w.target.Reseed(seeds)
	slog.InfoContext(ctx, "Categories reseeded", "path", path, "count", len(seeds))
}
