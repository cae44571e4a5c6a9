package domains

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrNoFile is returned by NewWatcher when the source has no list file.
var ErrNoFile = errors.New("domain source has no list file")

// Watcher reloads Lists whenever the source's TOML file changes.
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename are picked up.
type Watcher struct {
	lists   *Lists
	source  Source
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	onReload func(error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReloadHook registers fn to be called after every reload attempt with
// the build error, or nil when the lists were swapped.
func WithReloadHook(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher for the source's list file.
func NewWatcher(lists *Lists, source Source, logger *zap.Logger, opts ...WatcherOption) (*Watcher, error) {
	if source.File == "" {
		return nil, ErrNoFile
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(source.File)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", source.File, err)
	}
	w := &Watcher{
		lists:   lists,
		source:  source,
		watcher: fw,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()

	target := filepath.Clean(w.source.File)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("domain list watcher error", zap.Error(err))
		}
	}
}

// reload rebuilds the lists from the source and reapplies runtime edits.
// A file that fails to parse leaves the current lists in place.
func (w *Watcher) reload() {
	black, white, err := w.source.Build()
	if err != nil {
		w.logger.Warn("domain list reload failed, keeping current lists",
			zap.String("file", w.source.File),
			zap.Error(err))
	} else {
		w.lists.Reload(black, white)
		w.logger.Info("domain lists reloaded",
			zap.String("file", w.source.File),
			zap.Int("blacklist", len(black)),
			zap.Int("whitelist", len(white)))
	}

	if w.onReload != nil {
		w.onReload(err)
	}
}
