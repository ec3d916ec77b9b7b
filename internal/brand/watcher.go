package brand

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the store when the brand document changes on disk.
// Editors tend to fire several events per save, so writes are debounced.
type Watcher struct {
	store    *Store
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	onReload func()
}

// NewWatcher creates a watcher for the store's document. onReload is called
// after each successful reload; pass nil if nothing needs to observe it.
func NewWatcher(store *Store, logger *slog.Logger, onReload func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: many editors replace the file on
	// save, which drops a watch registered on the path itself.
	if err := fw.Add(filepath.Dir(store.path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{store: store, logger: logger, watcher: fw, onReload: onReload}, nil
}

// Run blocks until ctx is cancelled, reloading on relevant events.
func (w *Watcher) Run(ctx context.Context) {
	const debounce = 500 * time.Millisecond

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.store.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			snap, err := w.store.Reload()
			if err != nil {
				w.logger.Warn("brand document reload failed, keeping previous snapshot", "error", err)
				continue
			}
			w.logger.Info("brand document reloaded", "path", snap.Path, "chars", len(snap.Text))
			if w.onReload != nil {
				w.onReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("brand watcher error", "error", err)
		}
	}
}
