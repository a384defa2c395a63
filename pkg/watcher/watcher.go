// Package watcher reports changes to a set of script files. Events are debounced so an
// editor saving several includes at once causes a single rebuild.
package watcher

import (
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher observes script files through their parent directories and calls onChange
// with the changed paths once no further event arrived for the debounce interval.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	exclude    []glob.Glob
	onChange   func([]string)
	log        *slog.Logger
	callbackMu sync.Mutex
	start      sync.Once

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	pending map[string]bool
	timer   *time.Timer
}

// New creates a watcher. exclude holds glob patterns matched against file base names;
// matching files never trigger onChange.
func New(debounce time.Duration, exclude []string, log *slog.Logger, onChange func([]string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		onChange:  onChange,
		log:       log,
		files:     make(map[string]bool),
		dirs:      make(map[string]bool),
		pending:   make(map[string]bool),
	}
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.exclude = append(w.exclude, g)
	}
	return w, nil
}

// Watch replaces the set of observed files. It may be called again after every
// rebuild, since includes can change.
func (w *Watcher) Watch(files []string) error {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		set[abs] = true

		// directories, not files: editors replace files on save
		dir := filepath.Dir(abs)
		w.mu.Lock()
		known := w.dirs[dir]
		w.dirs[dir] = true
		w.mu.Unlock()
		if !known {
			if err := w.fsWatcher.Add(dir); err != nil {
				return err
			}
		}
	}

	w.mu.Lock()
	w.files = set
	w.mu.Unlock()

	w.start.Do(func() { go w.run() })
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.observes(event.Name) {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) observes(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	base := filepath.Base(abs)
	for _, g := range w.exclude {
		if g.Match(base) {
			return false
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

func (w *Watcher) scheduleChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.log.Debug("script files changed", "files", paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// Close stops watching. A pending change is dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}
