// Package watcher monitors the dataset file for changes so --watch mode can
// re-run the analysis. It uses fsnotify with a polling fallback for
// filesystems that do not deliver events (network mounts, some containers).
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/decarb/pkg/debug"
)

// DefaultPollInterval is the polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// DefaultDebounce coalesces bursts of write events into one change.
const DefaultDebounce = 250 * time.Millisecond

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// Watcher monitors a single file and delivers debounced change
// notifications on Changes.
type Watcher struct {
	path         string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool

	changes chan struct{}
	errs    chan error

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	lastMtime time.Time
	lastSize  int64
}

// New creates a watcher for the given file path.
func New(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:         absPath,
		debounce:     DefaultDebounce,
		pollInterval: DefaultPollInterval,
		changes:      make(chan struct{}, 1),
		errs:         make(chan error, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Changes delivers one value per debounced file change.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Errors delivers watch errors, including ErrFileRemoved.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Start begins watching until the context is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	if info, err := os.Stat(w.path); err == nil {
		w.lastMtime = info.ModTime()
		w.lastSize = info.Size()
	}

	if !w.forcePoll {
		fw, err := fsnotify.NewWatcher()
		if err == nil {
			// Watch the parent directory: editors and atomic renames replace
			// the file inode, which a direct watch would lose.
			if err := fw.Add(filepath.Dir(w.path)); err == nil {
				go w.runFsnotify(ctx, fw)
				return nil
			}
			fw.Close()
		}
		debug.Log("watcher: fsnotify unavailable, falling back to polling")
	}

	go w.runPoll(ctx)
	return nil
}

// Stop cancels the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watcher) runFsnotify(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()

	var timer *time.Timer
	fire := func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Remove) {
				if _, err := os.Stat(w.path); err != nil {
					w.reportError(ErrFileRemoved)
					continue
				}
			}
			debug.Log("watcher: event %s", ev)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, fire)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) runPoll(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				w.reportError(ErrFileRemoved)
				continue
			}
			if info.ModTime().Equal(w.lastMtime) && info.Size() == w.lastSize {
				continue
			}
			w.lastMtime = info.ModTime()
			w.lastSize = info.Size()
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
