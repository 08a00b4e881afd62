// Package watch re-runs tasks when the source files they depend on change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/routes"
	"git.home.luguber.info/inful/sitepipe/internal/task"
)

// DefaultDebounce is how long a binding waits for further changes before
// dispatching its tasks.
const DefaultDebounce = 300 * time.Millisecond

// Binding re-runs Tasks whenever a file selected by one of Routes changes.
type Binding struct {
	Routes []routes.Route
	Tasks  []task.Runnable
}

func (b Binding) matches(rel string) bool {
	for _, rt := range b.Routes {
		if rt.Matches(rel) {
			return true
		}
	}
	return false
}

// Watcher registers source directories with fsnotify and dispatches bound
// tasks, debounced per binding. Each dispatch runs its tasks concurrently on
// their own goroutines.
type Watcher struct {
	root     string
	bindings []Binding
	debounce time.Duration
	recorder metrics.Recorder

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	ctx      context.Context
	timers   map[int]*time.Timer
	inflight sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the per-binding debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(w *Watcher) {
		if r != nil {
			w.recorder = r
		}
	}
}

// New creates a watcher over the project rooted at root.
func New(root string, bindings []Binding, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		bindings: bindings,
		debounce: DefaultDebounce,
		recorder: metrics.NoopRecorder{},
		timers:   make(map[int]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start registers every directory the bindings read from. Directories that
// do not exist yet are skipped with a warning.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	for _, dir := range w.watchDirs() {
		abs := filepath.Join(w.root, filepath.FromSlash(dir))
		if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
			slog.Warn("Watch directory missing; skipping", "dir", dir)
			continue
		}
		addDirsRecursive(fsw, abs)
	}
	w.fsw = fsw
	return nil
}

func (w *Watcher) watchDirs() []string {
	var dirs []string
	for _, b := range w.bindings {
		for _, rt := range b.Routes {
			dirs = append(dirs, rt.Base())
		}
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

// Run processes filesystem events until ctx is done, then closes the
// underlying watcher. Start must have been called.
func (w *Watcher) Run(ctx context.Context) error {
	if w.fsw == nil {
		return fmt.Errorf("watcher not started")
	}
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	for i, t := range w.timers {
		t.Stop()
		delete(w.timers, i)
	}
	w.mu.Unlock()
	if err := w.fsw.Close(); err != nil {
		slog.Debug("watcher close", logfields.Error(err))
	}
}

// Wait blocks until every dispatched task has returned.
func (w *Watcher) Wait() {
	w.inflight.Wait()
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			addDirsRecursive(w.fsw, ev.Name)
			return
		}
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	slog.Debug("File change detected", logfields.File(rel), "op", ev.Op.String())
	for i, b := range w.bindings {
		if b.matches(rel) {
			w.trigger(i)
		}
	}
}

// trigger (re)starts binding i's debounce timer.
func (w *Watcher) trigger(i int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[i]; ok {
		t.Stop()
	}
	w.timers[i] = time.AfterFunc(w.debounce, func() { w.dispatch(i) })
}

func (w *Watcher) dispatch(i int) {
	w.mu.Lock()
	ctx := w.ctx
	delete(w.timers, i)
	w.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	for _, t := range w.bindings[i].Tasks {
		w.recorder.IncWatchTrigger(t.Name())
		w.inflight.Add(1)
		go func() {
			defer w.inflight.Done()
			if err := t.Run(ctx); err != nil {
				slog.Warn("Watched task failed; waiting for next change", logfields.Task(t.Name()), logfields.Error(err))
			}
		}()
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger tasks.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
