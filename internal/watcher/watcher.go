package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents a file change detected by the watcher.
type Event struct {
	Path string // Absolute path of the changed file
	Kind string // "script", "style" or "shell"
}

// DefaultDebounce is how long the watcher waits for more changes before
// delivering a batch.
const DefaultDebounce = 100 * time.Millisecond

// Watcher monitors a project directory for source changes and delivers
// them in debounced batches.
type Watcher struct {
	root     string
	ignore   []string
	debounce time.Duration
	onChange func([]Event)
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

// New creates a Watcher that monitors root for file changes. Directories
// whose base name is in ignore (e.g. the build output) are skipped, as are
// hidden directories and node_modules. onChange receives each batch.
func New(root string, ignore []string, onChange func([]Event)) *Watcher {
	return &Watcher{
		root:     root,
		ignore:   ignore,
		debounce: DefaultDebounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}
}

// Start begins watching the directory tree. It walks root to add all
// non-ignored directories, then starts a goroutine to process events.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return err
	}

	go w.loop()
	return nil
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	if w.fsw != nil {
		w.fsw.Close()
	}
	<-w.done
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if !d.IsDir() {
			return nil
		}
		if w.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pending []Event
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if e, keep := w.handleEvent(ev); keep {
				pending = append(pending, e)
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			if len(pending) > 0 {
				w.onChange(pending)
				pending = nil
			}

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Ignore watcher errors, not much we can do during dev.
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) (Event, bool) {
	// Only care about writes, creates, and renames (which may create new files).
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return Event{}, false
	}

	// If a new directory was created, watch it and all its subdirectories.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addTree(ev.Name)
			return Event{}, false
		}
	}

	kind := fileKind(ev.Name)
	if kind == "" {
		return Event{}, false
	}
	return Event{Path: ev.Name, Kind: kind}, true
}

// fileKind classifies watched extensions, returning "" for everything else.
func fileKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".ts", ".tsx", ".md", ".svg":
		return "script"
	case ".css", ".scss", ".sass":
		return "style"
	case ".html":
		return "shell"
	}
	return ""
}

// shouldIgnoreDir returns true if the directory should not be watched.
func (w *Watcher) shouldIgnoreDir(path string) bool {
	name := filepath.Base(path)

	// Hidden directories (.git, .ssrshim, etc.)
	if strings.HasPrefix(name, ".") && path != w.root {
		return true
	}

	if name == "node_modules" {
		return true
	}

	for _, ig := range w.ignore {
		if name == ig {
			return true
		}
	}
	return false
}
