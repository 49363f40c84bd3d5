// Package watch implements corpus-change watching for the `watch`
// build subcommand: fsnotify events on the input JSONL file (or its
// containing directory, for editors that write-then-rename) debounced
// into coalesced rebuild triggers. Grounded on the teacher's
// internal/watcher package (fsnotify primary watcher + Debouncer
// coalescing rules), narrowed from that package's full gitignore-aware
// recursive tree watcher down to this tool's single-file-or-directory
// corpus watch.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of write+rename events a single
// editor save produces into one rebuild trigger.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one corpus path and emits a debounced rebuild
// trigger on Changes whenever it's modified, created, or replaced via
// rename (the save pattern many editors use: write a temp file, then
// rename over the original).
type Watcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher

	changes chan struct{}
	errors  chan error

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// New creates a Watcher for path with the given debounce window (0
// uses DefaultDebounce).
func New(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	// Watch the containing directory rather than the file itself: a
	// rename-based save replaces the inode, which would silently stop
	// delivering events to a watch on the old file handle.
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		path:     path,
		debounce: debounce,
		fsw:      fsw,
		changes:  make(chan struct{}, 1),
		errors:   make(chan error, 1),
	}, nil
}

// Changes returns a channel that receives one signal per debounced
// burst of changes to the watched path. The channel is buffered with
// capacity 1 and never blocks a send: a pending unread signal already
// means "rebuild", so a second one in the same window is redundant.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Errors returns non-fatal watch errors (the watcher keeps running).
func (w *Watcher) Errors() <-chan error { return w.errors }

// Run processes fsnotify events until ctx is cancelled or Stop is
// called. Call it in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleSignal()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) scheduleSignal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}

// Stop releases the underlying fsnotify watcher and cancels any
// pending debounce timer. Safe to call once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
