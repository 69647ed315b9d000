package ranking

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads a Source eagerly when its file changes on disk.
// The directory is watched so that editors replacing the file by rename are seen.
type Watcher struct {
	source   *Source
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a watcher for source. Call Start to begin watching.
func NewWatcher(source *Source, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		source:   source,
		debounce: defaultDebounce,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins watching. It runs until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if w.source.Path() == "" {
		return fmt.Errorf("ranking watcher: config path is not set")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ranking watcher: %w", err)
	}
	dir := filepath.Dir(w.source.Path())
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("ranking watcher: watch %s: %w", dir, err)
	}
	w.watcher = fw
	w.logger.Info("Watching ranking config", zap.String("path", w.source.Path()))
	go w.run(ctx)
	return nil
}

// Done is closed once the watcher has stopped.
func (w *Watcher) Done() <-chan struct{} { return w.done }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	target := filepath.Clean(w.source.Path())
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Ranking config event", zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if _, err := w.source.Reload(); err != nil {
				w.logger.Warn("Ranking config reload failed, keeping previous", zap.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Ranking watcher error", zap.Error(err))
		}
	}
}
