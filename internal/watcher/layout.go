package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/conneroisu/techviz/internal/logging"
	"github.com/conneroisu/techviz/internal/topology"
)

// ReloadFunc receives a freshly parsed, valid layout.
type ReloadFunc func(layout topology.Layout) error

// LayoutWatcher reloads a layout file whenever it changes. The parent
// directory is watched so editors that save by rename are still seen.
type LayoutWatcher struct {
	path   string
	fw     *FileWatcher
	reload ReloadFunc
	logger logging.Logger
}

// NewLayoutWatcher prepares a watcher for path. Nothing is watched until
// Start.
func NewLayoutWatcher(path string, debounce time.Duration, reload ReloadFunc, logger logging.Logger) (*LayoutWatcher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := NewFileWatcher(debounce, logger)
	if err != nil {
		return nil, err
	}

	lw := &LayoutWatcher{
		path:   abs,
		fw:     fw,
		reload: reload,
		logger: logger.WithComponent("layout-watcher"),
	}
	fw.AddFilter(BaseNameFilter(filepath.Base(abs)))
	fw.AddHandler(lw.handle)
	return lw, nil
}

// Path returns the absolute path being watched.
func (lw *LayoutWatcher) Path() string {
	return lw.path
}

// Start begins watching.
func (lw *LayoutWatcher) Start(ctx context.Context) error {
	if err := lw.fw.AddPath(filepath.Dir(lw.path)); err != nil {
		return err
	}
	lw.logger.Info(ctx, "Watching layout file", "path", lw.path)
	return lw.fw.Start(ctx)
}

// Stop stops watching.
func (lw *LayoutWatcher) Stop() error {
	return lw.fw.Stop()
}

// handle reloads the layout once per batch. A deleted file or a layout that
// fails to parse or validate keeps the current layout running.
func (lw *LayoutWatcher) handle(events []ChangeEvent) error {
	ctx := context.Background()
	last := events[len(events)-1]
	if last.Type == EventTypeDeleted {
		lw.logger.Warn(ctx, nil, "Layout file removed; keeping current layout", "path", lw.path)
		return nil
	}

	layout, err := topology.LoadLayout(lw.path)
	if err != nil {
		lw.logger.Warn(ctx, err, "Layout reload rejected; keeping current layout", "path", lw.path)
		return nil
	}
	if err := lw.reload(layout); err != nil {
		return err
	}
	lw.logger.Info(ctx, "Layout reloaded", "path", lw.path, "components", len(layout.Components))
	return nil
}
