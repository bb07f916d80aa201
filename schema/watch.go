package schema

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultWatchDebounce = 200 * time.Millisecond

// Watcher reloads a Store when files below root change. A failed reload keeps
// the previous snapshot.
type Watcher struct {
	store    *Store
	root     string
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
	reloads chan error
}

func NewWatcher(store *Store, root string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{store: store, root: root, debounce: debounce, logger: logger}
}

// Reloads reports the outcome of every reload. It is only non-nil after
// Start.
func (w *Watcher) Reloads() <-chan error {
	return w.reloads
}

func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	err = filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
	if err != nil {
		_ = fsw.Close()
		return err
	}
	w.mu.Lock()
	w.fsw = fsw
	w.done = make(chan struct{})
	w.reloads = make(chan error, 1)
	w.mu.Unlock()
	go w.loop(fsw, w.done)
	w.logger.Info("watching route metadata", zap.String("root", w.root))
	return nil
}

func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	err := w.fsw.Close()
	w.fsw = nil
	return err
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				_ = fsw.Add(ev.Name)
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("route metadata watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	err := w.store.Reload()
	if err != nil {
		w.logger.Error("reloading route metadata failed, keeping previous snapshot", zap.Error(err))
	}
	select {
	case w.reloads <- err:
	default:
	}
}
