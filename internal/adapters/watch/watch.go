// Package watch invalidates the dataset when CSV files in the data directory
// change outside of a sync.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/nutrimon/pkg/logger"
)

const defaultDebounce = 500 * time.Millisecond

// ErrRunning is returned by Start on a watcher that is already running.
var ErrRunning = errors.New("watcher already running")

// Watcher reports bursts of .csv changes in one directory as a single call.
type Watcher struct {
	dir      string
	onChange func(paths []string)
	debounce time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	running bool
	fsw     *fsnotify.Watcher
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before onChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher for dir. onChange receives the distinct changed paths
// of one burst.
func New(dir string, onChange func(paths []string), opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   logger.Get().Named("watch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching in the background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrRunning
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.fsw = fsw
	w.done = make(chan struct{})
	w.running = true
	go w.run(ctx, fsw, w.done)
	w.logger.Info(ctx, "watching data dir", logger.String("dir", w.dir))
	return nil
}

// Stop closes the watcher and waits for the loop to exit. Pending changes
// are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	fsw, done := w.fsw, w.done
	w.mu.Unlock()

	err := fsw.Close()
	<-done
	return err
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			_ = fsw.Close()
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "watch error", logger.Error(err))
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			w.logger.Debug(ctx, "data dir changed", logger.Int("files", len(paths)))
			w.onChange(paths)
		}
	}
}

// relevant keeps create, write, remove and rename events on visible .csv
// files. Temp files written during an atomic sync are hidden and ignored.
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".csv")
}
