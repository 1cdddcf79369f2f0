// Package watch notifies a deck that project files changed. It only signals;
// the reload itself always runs on the deck's own loop.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

var (
	// ErrRunning is returned by Watch when the watcher is already running.
	ErrRunning = errors.New("watcher already running")

	// ErrStopped is returned by Watch after Stop.
	ErrStopped = errors.New("watcher stopped")
)

// Config contains configuration for the watcher.
type Config struct {
	// Path is the project directory (or a single file) to watch.
	Path string

	// Debounce is the quiet period after the last event before the
	// callback fires (default: 150ms).
	Debounce time.Duration

	// Extensions limits events to these file extensions. Empty watches
	// every file.
	Extensions []string

	// Ignore holds base-name glob patterns that never trigger a change.
	Ignore []string

	// SkipHidden skips dot files and dot directories.
	SkipHidden bool
}

// DefaultConfig watches every content file under path, ignoring editor swap
// files and the deck's own database and log files.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		Debounce:   150 * time.Millisecond,
		Ignore:     []string{"*.db", "*.db-journal", "*.db-wal", "*.log", "*.swp", "*.swx", "*~", "4913"},
		SkipHidden: true,
	}
}

// Watcher watches project files and reports batches of changed paths.
type Watcher struct {
	watcher  *fsnotify.Watcher
	log      *log.Logger
	config   Config
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	stopped bool
	pending map[string]struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a watcher. Nothing is watched until Watch is called.
func New(config Config, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig(config.Path).Debounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		log:      logger,
		config:   config,
		debounce: NewDebouncer(config.Debounce),
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called. After each burst of
// events onChange receives the sorted set of changed paths. onChange runs on
// a timer goroutine and must hand off to the caller's loop.
func (w *Watcher) Watch(ctx context.Context, onChange func(paths []string)) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	if w.running {
		w.mu.Unlock()
		return ErrRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.addPath(w.config.Path); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	w.log.Info("file watcher started", "path", w.config.Path, "debounce", w.config.Debounce)

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("file watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.log.Debug("file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			w.handle(event, onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, onChange func([]string)) {
	// New directories are watched as they appear.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.skipName(event.Name) {
			if err := w.addDirectory(event.Name); err != nil {
				w.log.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !w.ShouldProcess(event) {
		return
	}
	w.log.Debug("file event", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()

	w.debounce.Trigger(func() {
		w.mu.Lock()
		paths := make([]string, 0, len(w.pending))
		for p := range w.pending {
			paths = append(paths, p)
		}
		w.pending = make(map[string]struct{})
		w.mu.Unlock()

		if len(paths) == 0 {
			return
		}
		sort.Strings(paths)
		onChange(paths)
	})
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	running := w.running
	w.mu.Unlock()

	close(w.stopCh)
	if running {
		<-w.doneCh
	}
	w.debounce.Stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.addDirectory(path)
	}
	return w.watcher.Add(path)
}

// addDirectory watches dir and all its subdirectories.
func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipName(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		w.log.Debug("watching directory", "path", path)
		return nil
	})
}

// ShouldProcess reports whether an event may change project content.
func (w *Watcher) ShouldProcess(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.skipName(event.Name) {
		return false
	}
	if len(w.config.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, valid := range w.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

func (w *Watcher) skipName(path string) bool {
	base := filepath.Base(path)
	if w.config.SkipHidden && strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range w.config.Ignore {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
