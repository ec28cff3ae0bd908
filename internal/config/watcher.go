package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadFunc is invoked with the changed file's path after its contents
// settle. Returning an error keeps the previous state in effect.
type ReloadFunc func(path string) error

// FileWatcher hot-reloads a single configuration file, used for the
// preference profiles so operators can edit them without a restart.
// Events are debounced because editors fire several writes per save.
type FileWatcher struct {
	path     string
	reload   ReloadFunc
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
}

// NewFileWatcher watches path and calls reload on changes.
func NewFileWatcher(path string, reload ReloadFunc, logger *zap.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors that rename-and-replace
	// would otherwise detach the watch on the first save.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &FileWatcher{
		path:     path,
		reload:   reload,
		watcher:  watcher,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins delivering reloads. Idempotent.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.loop()
}

// Stop terminates the watch loop and releases the watcher.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		w.watcher.Close()
		return
	}
	close(w.stopCh)
	w.started = false
}

func (w *FileWatcher) loop() {
	var timer *time.Timer
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.fire)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watch error", zap.Error(err))

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *FileWatcher) fire() {
	if err := w.reload(w.path); err != nil {
		w.logger.Error("Config reload failed, keeping previous state",
			zap.String("file", w.path),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("Config reloaded", zap.String("file", w.path))
}
