// Package watch re-runs a callback whenever a configuration file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultDebounce collapses the write bursts editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches the directory holding a file so that atomic
// rename-over saves are seen as well as in-place writes.
type Watcher struct {
	path     string
	onChange func(context.Context) error
	logger   *zap.Logger
	debounce time.Duration

	group singleflight.Group
	mu    sync.Mutex
	timer *time.Timer
	wg    sync.WaitGroup
}

func New(path string, onChange func(context.Context) error, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger,
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run blocks until ctx is done. Callback errors are logged and do not stop
// the watch.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching configuration", zap.String("path", w.path))

	defer func() {
		w.mu.Lock()
		if w.timer != nil && w.timer.Stop() {
			w.wg.Done()
		}
		w.mu.Unlock()
		w.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("config event", zap.Stringer("op", event.Op))
				w.schedule(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fsnotify error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil && w.timer.Stop() {
		// The pending fire was cancelled and will not call wg.Done itself.
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.fire(ctx)
	})
}

// fire runs the callback, sharing one execution among overlapping fires.
func (w *Watcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err, shared := w.group.Do(w.path, func() (any, error) {
		return nil, w.onChange(ctx)
	})
	if err != nil {
		w.logger.Error("reload failed", zap.Error(err), zap.Bool("shared", shared))
	}
}
