// Package watcher re-selects an archive on an inspector whenever the file
// changes on disk.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/virtuscloud/virtus/pkg/virtus/logging"
	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Selector receives freshly opened handles. *archive.Inspector satisfies it.
type Selector interface {
	Select(ctx context.Context, handles ...types.Handle)
}

// Watcher watches a single archive file.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu     sync.Mutex
	closed bool
}

// New watches the file at path. The parent directory is watched so that
// editors and tools that replace the file by rename are still observed.
func New(path string, debounce time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{path: absPath, debounce: debounce, watcher: fsw}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run delivers a new selection to sel after each settled change. It blocks
// until ctx is canceled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, sel Selector) error {
	log := logging.Get("watcher")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Debug("archive moved away", "path", w.path, "op", event.Op.String())
				}
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			h, err := types.OpenFile(w.path)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					log.Warn("failed to reopen archive", "path", w.path, "error", err)
				}
				continue
			}
			log.Info("archive changed", "path", w.path, "size", h.Size())
			sel.Select(ctx, h)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", err)
		}
	}
}

// Close stops watching. Run returns once its channels drain.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}
