package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moolen/depscope/internal/logging"
)

// ReloadCallback is called when the config file is successfully
// reloaded. A callback error is logged but the watcher keeps watching.
type ReloadCallback func(cfg *Config) error

// WatcherOptions holds configuration for the config file watcher.
type WatcherOptions struct {
	// FilePath is the path to the YAML config file to watch
	FilePath string

	// Debounce coalesces bursts of file change events (editor save
	// sequences, atomic writes) into a single reload. Default: 500ms.
	Debounce time.Duration
}

// Watcher watches the config file and triggers reload callbacks with
// debouncing. An invalid file during reload is logged and skipped; the
// previous valid config stays in effect.
type Watcher struct {
	opts     WatcherOptions
	callback ReloadCallback
	logger   *logging.Logger

	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}
	mu      sync.Mutex

	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(opts WatcherOptions, callback ReloadCallback) (*Watcher, error) {
	if opts.FilePath == "" {
		return nil, NewConfigError("watcher FilePath cannot be empty")
	}
	if callback == nil {
		return nil, NewConfigError("watcher callback cannot be nil")
	}
	if opts.Debounce == 0 {
		opts.Debounce = 500 * time.Millisecond
	}

	return &Watcher{
		opts:     opts,
		callback: callback,
		logger:   logging.GetLogger("config.watcher"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Name implements lifecycle.Component.
func (w *Watcher) Name() string { return "config-watcher" }

// Start loads the initial config, invokes the callback, and begins
// watching for changes. It returns once the file watch is established;
// the watch loop runs in the background until Stop.
func (w *Watcher) Start(ctx context.Context) error {
	initial, err := Load(w.opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}
	if err := w.callback(initial); err != nil {
		return fmt.Errorf("initial config callback failed: %w", err)
	}
	w.logger.Info("loaded initial config from %s", w.opts.FilePath)

	watchCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.watchLoop(watchCtx)

	// Wait until fsnotify is registered so changes right after Start
	// are not missed.
	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-time.After(5 * time.Second):
		cancel()
		return NewConfigError("timeout waiting for file watcher to initialize")
	}
}

// signalReady closes the ready channel exactly once.
func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.ErrorWithErr("failed to create file watcher", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.opts.FilePath); err != nil {
		w.logger.ErrorWithErr(fmt.Sprintf("failed to watch %s", w.opts.FilePath), err)
		return
	}

	w.logger.Debug("watching %s for changes (debounce: %s)", w.opts.FilePath, w.opts.Debounce)
	w.signalReady()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 {
				continue
			}
			// Atomic writes unlink the watched inode before renaming
			// the replacement into place; re-add the watch.
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(50 * time.Millisecond)
				if err := watcher.Add(w.opts.FilePath); err != nil {
					w.logger.Warn("failed to re-add watch after %s: %v", event.Op, err)
				}
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error: %v", err)
		}
	}
}

// scheduleReload resets the debounce timer on each change event.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, w.reload)
}

// reload re-parses the file and invokes the callback. Failures keep the
// previous config in effect.
func (w *Watcher) reload() {
	cfg, err := Load(w.opts.FilePath)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config: %v", err)
		return
	}
	if err := w.callback(cfg); err != nil {
		w.logger.Warn("config reload callback failed: %v", err)
		return
	}
	w.logger.Info("config reloaded from %s", w.opts.FilePath)
}

// Stop terminates the watch loop and waits for it to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for config watcher to stop: %w", ctx.Err())
	}
}
