package watcher

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

// DefaultDebounceWindow is the default time window for debouncing file events.
const DefaultDebounceWindow = 50 * time.Millisecond

const eventChannelBuffer = 100

// Watcher implements recursive file system watching using fsnotify.
type Watcher struct {
	logger    ports.Logger
	window    time.Duration
	fsWatcher *fsnotify.Watcher
	exclude   []string
	events    chan ports.WatchEvent
	batches   chan []ports.WatchEvent
	done      chan struct{}
	stopOnce  sync.Once
}

// NewWatcher creates a file system watcher batching events over window.
// The operating system watch is only acquired by Start.
func NewWatcher(logger ports.Logger, window time.Duration) *Watcher {
	return &Watcher{
		logger:  logger,
		window:  window,
		events:  make(chan ports.WatchEvent, eventChannelBuffer),
		batches: make(chan []ports.WatchEvent),
		done:    make(chan struct{}),
	}
}

// Start begins watching root recursively. Directories in exclude, version control metadata,
// node_modules and the kiln state directory are not watched.
func (w *Watcher) Start(ctx context.Context, root string, exclude []string) error {
	if w.fsWatcher != nil {
		return zerr.With(domain.ErrWatcherStartFailed, "reason", "already started")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return zerr.Wrap(err, domain.ErrWatcherStartFailed.Error())
	}
	w.fsWatcher = fsWatcher

	w.exclude = make([]string, len(exclude))
	for i, dir := range exclude {
		w.exclude[i] = filepath.Clean(dir)
	}

	for dir := range w.watchRecursively(root) {
		if err := w.fsWatcher.Add(dir); err != nil {
			_ = w.Stop()
			return zerr.With(zerr.Wrap(err, domain.ErrWatcherStartFailed.Error()), "path", dir)
		}
	}

	debouncer := NewDebouncer(w.window, func(batch []ports.WatchEvent) {
		select {
		case w.batches <- batch:
		case <-w.done:
		}
	})

	go w.processEvents(ctx, debouncer)

	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	if w.fsWatcher == nil {
		return nil
	}
	var err error
	w.stopOnce.Do(func() {
		err = w.fsWatcher.Close()
	})
	return err
}

// Events returns an iterator of debounced file system events. It ends when the watcher stops.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// watchRecursively walks the directory tree and yields all watchable directories.
func (w *Watcher) watchRecursively(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // This is intentional - we want to skip problematic directories
			}
			if d.IsDir() {
				if w.shouldSkip(path) {
					return fs.SkipDir
				}
				if !yield(path) {
					return filepath.SkipAll
				}
			}
			return nil
		})
	}
}

// shouldSkip reports whether the directory at path must not be watched.
func (w *Watcher) shouldSkip(path string) bool {
	return slices.Contains(domain.SkippedDirs(), filepath.Base(path)) || slices.Contains(w.exclude, filepath.Clean(path))
}

// excluded reports whether path lies in an excluded or skipped directory.
func (w *Watcher) excluded(path string) bool {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if w.shouldSkip(dir) {
			return true
		}
		if parent := filepath.Dir(dir); parent == dir {
			return false
		}
	}
}

// processEvents converts raw fsnotify events, feeds them through the debouncer and forwards
// the resulting batches.
func (w *Watcher) processEvents(ctx context.Context, debouncer *Debouncer) {
	defer close(w.events)
	defer close(w.done)
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case batch := <-w.batches:
			for _, event := range batch {
				select {
				case w.events <- event:
				case <-ctx.Done():
					return
				}
			}
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event, debouncer)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher: " + err.Error())
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, debouncer *Debouncer) {
	watchEvent, ok := convertEvent(event)
	if !ok || w.excluded(event.Name) {
		return
	}

	if watchEvent.Operation == ports.OpCreate {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.shouldSkip(event.Name) {
				return
			}
			for dir := range w.watchRecursively(event.Name) {
				_ = w.fsWatcher.Add(dir)
			}
		}
	}

	debouncer.Add(watchEvent)
}

// convertEvent converts an fsnotify event to a ports.WatchEvent. Chmod-only events are dropped.
func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	switch {
	case event.Has(fsnotify.Create):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpCreate}, true
	case event.Has(fsnotify.Remove):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpRemove}, true
	case event.Has(fsnotify.Rename):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpRename}, true
	case event.Has(fsnotify.Write):
		return ports.WatchEvent{Path: event.Name, Operation: ports.OpWrite}, true
	default:
		return ports.WatchEvent{}, false
	}
}
