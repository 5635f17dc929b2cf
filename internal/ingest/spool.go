package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moolen/depscope/internal/logging"
)

// doneSuffix marks spool files that have been ingested.
const doneSuffix = ".done"

// SpoolWatcher watches a spool directory and feeds dropped evidence
// files through the ingestion pool. Successfully ingested files are
// renamed with a .done suffix so restarts do not re-ingest them. It
// implements the lifecycle Component contract.
type SpoolWatcher struct {
	dir      string
	pool     *Pool
	debounce time.Duration
	logger   *logging.Logger

	cancel  context.CancelFunc
	stopped chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewSpoolWatcher creates a watcher over the given directory.
func NewSpoolWatcher(dir string, pool *Pool) *SpoolWatcher {
	return &SpoolWatcher{
		dir:      dir,
		pool:     pool,
		debounce: 500 * time.Millisecond,
		logger:   logging.GetLogger("ingest.spool"),
		timers:   make(map[string]*time.Timer),
	}
}

// Name implements lifecycle.Component.
func (s *SpoolWatcher) Name() string { return "spool-watcher" }

// Start ingests files already in the spool directory, then watches for
// new ones. The watch loop runs in the background until Stop.
func (s *SpoolWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("creating spool directory %s: %w", s.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating spool watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close() //nolint:errcheck
		return fmt.Errorf("watching spool directory %s: %w", s.dir, err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopped = make(chan struct{})

	// Pick up files dropped while we were not running.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		watcher.Close() //nolint:errcheck
		cancel()
		return fmt.Errorf("scanning spool directory %s: %w", s.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !spoolFile(entry.Name()) {
			continue
		}
		s.scheduleIngest(watchCtx, filepath.Join(s.dir, entry.Name()))
	}

	go s.watchLoop(watchCtx, watcher)
	s.logger.Info("watching spool directory %s", s.dir)
	return nil
}

func (s *SpoolWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(s.stopped)
	defer watcher.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !spoolFile(filepath.Base(event.Name)) {
				continue
			}
			s.scheduleIngest(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("spool watcher error: %v", err)
		}
	}
}

// spoolFile filters out processed and hidden files.
func spoolFile(name string) bool {
	return !strings.HasSuffix(name, doneSuffix) && !strings.HasPrefix(name, ".")
}

// scheduleIngest debounces per path so a file still being written is
// ingested once, after the writes settle.
func (s *SpoolWatcher) scheduleIngest(ctx context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[path]; ok {
		timer.Stop()
	}
	s.timers[path] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, path)
		s.mu.Unlock()
		s.ingestFile(ctx, path)
	})
}

func (s *SpoolWatcher) ingestFile(ctx context.Context, path string) {
	done, err := s.pool.Submit(ctx, Request{FilePath: path})
	if err != nil {
		s.logger.Warn("could not submit spool file %s: %v", path, err)
		return
	}

	select {
	case outcome := <-done:
		if outcome.Err != nil {
			s.logger.ErrorWithErr(fmt.Sprintf("ingesting spool file %s", path), outcome.Err)
			return
		}
		r := outcome.Result
		s.logger.InfoWithFields("spool file ingested",
			logging.Field("file", path),
			logging.Field("source_type", r.SourceType),
			logging.Field("saved", r.ClaimsSaved),
			logging.Field("errors", r.ErrorCount),
		)
		if err := os.Rename(path, path+doneSuffix); err != nil {
			s.logger.Warn("could not mark %s as processed: %v", path, err)
		}
	case <-ctx.Done():
	}
}

// Stop terminates the watch loop and pending debounce timers.
func (s *SpoolWatcher) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	s.mu.Lock()
	for path, timer := range s.timers {
		timer.Stop()
		delete(s.timers, path)
	}
	s.mu.Unlock()

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for spool watcher to stop: %w", ctx.Err())
	}
}
