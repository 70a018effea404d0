package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store when its file is edited outside the process.
type Watcher struct {
	store   *Store
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	delay   time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches the directory of the store's file. Watching the
// directory rather than the file survives editors that replace files on
// save.
func NewWatcher(store *Store, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(store.Dir()); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config directory %s: %w", store.Dir(), err)
	}
	return &Watcher{
		store:   store,
		logger:  logger,
		watcher: fsWatcher,
		delay:   500 * time.Millisecond,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start processes events in a goroutine until Stop is called.
func (w *Watcher) Start() {
	go w.processEvents()
}

// Stop ends event processing and releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.debounce()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "err", err)
		case <-w.stopCh:
			return
		}
	}
}

// debounce collapses bursts of events into one reload.
func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}
	changed, err := w.store.Reload()
	if err != nil {
		w.logger.Error("failed to reload configuration", "path", w.store.Path(), "err", err)
		return
	}
	if changed {
		w.logger.Info("configuration reloaded", "path", w.store.Path())
	}
}
