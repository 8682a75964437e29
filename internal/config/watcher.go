package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces bursts of file events into one reload.
const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a configuration file when it changes and hands each
// successfully loaded Config to a callback. Invalid files are logged and
// skipped, so the last good configuration stays in effect.
type Watcher struct {
	path     string
	onReload func(*Config)
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Debounce rapid file changes
	debounce     time.Duration
	pendingTimer *time.Timer
	timerMu      sync.Mutex

	// reloadMu is held for the whole of a reload. Stop takes it so that no
	// onReload call runs after Stop returns.
	reloadMu sync.Mutex
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, logger *slog.Logger, onReload func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     abs,
		onReload: onReload,
		logger:   logger,
		watcher:  fsWatcher,
		stopChan: make(chan struct{}),
		debounce: defaultDebounce,
	}, nil
}

// Start begins watching. The parent directory is watched rather than the
// file so that editors which replace the file on save are handled.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.run()
	w.logger.Info("watching config file", "path", w.path)
	return nil
}

// Stop stops the watcher and cancels any pending reload. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()

		w.timerMu.Lock()
		if w.pendingTimer != nil {
			w.pendingTimer.Stop()
		}
		w.timerMu.Unlock()

		// Wait for a reload already in flight; later ones see stopChan closed.
		w.reloadMu.Lock()
		w.reloadMu.Unlock() //nolint:staticcheck // empty section is a barrier

		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debug("config file changed", "op", event.Op.String())
	w.scheduleReload()
}

func (w *Watcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
	}
	w.pendingTimer = time.AfterFunc(w.debounce, w.doReload)
}

func (w *Watcher) doReload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	select {
	case <-w.stopChan:
		return
	default:
	}

	cfg, err := Load(w.path, w.logger)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	w.onReload(cfg)
}
