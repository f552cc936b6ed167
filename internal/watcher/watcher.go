// Package watcher watches files with fsnotify and delivers debounced change
// batches to handlers. LayoutWatcher builds on it to hot-reload a layout file.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/techviz/internal/logging"
)

// FileWatcher watches paths and hands debounced change batches to handlers.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	mutex     sync.RWMutex
	logger    logging.Logger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter determines if a file should be watched
type FileFilter func(path string) bool

// ChangeHandler handles file change events
type ChangeHandler func(events []ChangeEvent) error

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &FileWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(debounceDelay),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a file filter. An event must pass every filter.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath adds a file or directory to watch.
func (fw *FileWatcher) AddPath(path string) error {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := fw.watcher.Add(abs); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	return nil
}

// Start runs the watch loop, the debouncer and the handler loop until ctx is
// done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	ctx, fw.cancel = context.WithCancel(ctx)

	fw.wg.Add(3)
	go func() {
		defer fw.wg.Done()
		fw.debouncer.Run(ctx)
	}()
	go func() {
		defer fw.wg.Done()
		fw.processEvents(ctx)
	}()
	go func() {
		defer fw.wg.Done()
		fw.watchLoop(ctx)
	}()

	return nil
}

// Stop stops the goroutines and closes the fsnotify watcher. It is safe to
// call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
		}
		err = fw.watcher.Close()
		fw.wg.Wait()
		fw.debouncer.Stop()
	})
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	var modTime time.Time
	var size int64
	if info, err := os.Stat(event.Name); err == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventTypeCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventTypeModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventTypeDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	fw.debouncer.Add(ChangeEvent{
		Type:    eventType,
		Path:    event.Name,
		ModTime: modTime,
		Size:    size,
	})
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.Output():
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil {
					fw.logger.Warn(ctx, err, "File watcher handler failed", "events", len(events))
				}
			}
		}
	}
}

// Debouncer groups rapid file changes together. A batch is emitted once no
// new event has arrived for the delay; each path appears once per batch,
// carrying its latest event.
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:  delay,
		events: make(chan ChangeEvent, 100),
		output: make(chan []ChangeEvent, 10),
	}
}

// Add queues an event. Events are dropped when the queue is full.
func (d *Debouncer) Add(event ChangeEvent) {
	select {
	case d.events <- event:
	default:
	}
}

// Output delivers debounced batches.
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}

// Run consumes queued events until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

// Stop cancels a pending flush.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	latest := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		latest[event.Path] = event
	}
	events := make([]ChangeEvent, 0, len(latest))
	for _, event := range latest {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

// BaseNameFilter passes only events for files named name in any directory.
func BaseNameFilter(name string) FileFilter {
	return func(path string) bool {
		return filepath.Base(path) == name
	}
}
