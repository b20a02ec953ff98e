// Package watch notifies callers when a single trace file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"tracekit/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc is called once per settled burst of changes to the watched file.
type ChangeFunc func(ctx context.Context, path string)

// FileWatcher watches one file for changes and calls OnChange after the
// changes have settled for the debounce duration.
// The parent directory is watched so files replaced by rename (editors,
// trace producers writing a temp file) keep being tracked.
type FileWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onChange    ChangeFunc
	debounceDur time.Duration
	pending     bool
	lastEvent   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats tracks watcher activity.
type Stats struct {
	Writes        int
	Creates       int
	Removes       int
	Notifications int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// New creates a FileWatcher for path. A zero debounce fires on the next tick.
func New(path string, debounce time.Duration, onChange ChangeFunc) (*FileWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("watch: nil change callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:     watcher,
		path:        abs,
		onChange:    onChange,
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (fw *FileWatcher) Path() string {
	return fw.path
}

// Start begins watching. It is non-blocking; events are handled in a goroutine.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}
	logging.Watch("watching %s", fw.path)

	go fw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
// Safe to call after the context passed to Start has been cancelled.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	wasRunning := fw.running
	fw.running = false
	fw.mu.Unlock()

	if wasRunning {
		close(fw.stopCh)
		<-fw.doneCh
	}

	if err := fw.watcher.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}
	logging.Watch("stopped watching %s", fw.path)
}

// Stats returns a snapshot of the watcher counters.
func (fw *FileWatcher) Stats() Stats {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.stats
}

func (fw *FileWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	tick := fw.debounceDur / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return

		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("watcher error: %v", err)
			fw.mu.Lock()
			fw.stats.Errors++
			fw.mu.Unlock()

		case <-ticker.C:
			fw.fireIfSettled(ctx)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != fw.path {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Write != 0:
		eventType = "write"
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		eventType = "remove"
	default:
		return // chmod
	}
	logging.WatchDebug("%s event for %s", eventType, event.Name)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.stats.LastEventTime = time.Now()
	fw.stats.LastEventType = eventType
	switch eventType {
	case "write":
		fw.stats.Writes++
	case "create":
		fw.stats.Creates++
	case "remove":
		fw.stats.Removes++
		return // nothing to read until it is created again
	}
	fw.pending = true
	fw.lastEvent = time.Now()
}

func (fw *FileWatcher) fireIfSettled(ctx context.Context) {
	fw.mu.Lock()
	if !fw.pending || time.Since(fw.lastEvent) < fw.debounceDur {
		fw.mu.Unlock()
		return
	}
	fw.pending = false
	fw.stats.Notifications++
	fw.mu.Unlock()

	fw.onChange(ctx, fw.path)
}
