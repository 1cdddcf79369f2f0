package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

func quiet() *log.Logger {
	return log.New(io.Discard)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("/games/demo")

	if config.Path != "/games/demo" {
		t.Errorf("config.Path = %q, want /games/demo", config.Path)
	}
	if config.Debounce != 150*time.Millisecond {
		t.Errorf("config.Debounce = %v, want 150ms", config.Debounce)
	}
	if !config.SkipHidden {
		t.Error("config.SkipHidden = false, want true")
	}
}

func TestShouldProcess(t *testing.T) {
	w, err := New(DefaultConfig(t.TempDir()), quiet())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write yaml", fsnotify.Event{Name: "/p/settings.yaml", Op: fsnotify.Write}, true},
		{"create texture", fsnotify.Event{Name: "/p/textures/a.txt", Op: fsnotify.Create}, true},
		{"remove sound", fsnotify.Event{Name: "/p/sounds/a.wav", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "/p/settings.yaml", Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: "/p/.settings.yaml.swp", Op: fsnotify.Write}, false},
		{"database", fsnotify.Event{Name: "/p/reloads.db", Op: fsnotify.Write}, false},
		{"log file", fsnotify.Event{Name: "/p/deck.log", Op: fsnotify.Write}, false},
		{"backup file", fsnotify.Event{Name: "/p/main.yaml~", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.ShouldProcess(tt.event); got != tt.want {
				t.Errorf("ShouldProcess(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestShouldProcessExtensions(t *testing.T) {
	config := DefaultConfig(t.TempDir())
	config.Extensions = []string{".YAML"}
	w, err := New(config, quiet())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	if !w.ShouldProcess(fsnotify.Event{Name: "a.yaml", Op: fsnotify.Write}) {
		t.Error("Expected .yaml to match case-insensitively")
	}
	if w.ShouldProcess(fsnotify.Event{Name: "a.txt", Op: fsnotify.Write}) {
		t.Error("Expected .txt to be filtered out")
	}
}

// startWatcher runs Watch in the background and returns a channel of
// reported batches.
func startWatcher(t *testing.T, dir string) (*Watcher, <-chan []string) {
	t.Helper()
	config := DefaultConfig(dir)
	config.Debounce = 50 * time.Millisecond
	w, err := New(config, quiet())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	batches := make(chan []string, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(paths []string) { batches <- paths })
	}()
	t.Cleanup(func() {
		cancel()
		w.Stop()
		if err := <-done; err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	})

	// Let the watcher register its directories.
	time.Sleep(100 * time.Millisecond)
	return w, batches
}

func TestWatchReportsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "textures"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, batches := startWatcher(t, dir)

	// A burst of writes is reported as one batch.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(dir, "textures", "ship.txt"), []byte("<>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte("scripts: {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-batches:
		if len(paths) != 2 {
			t.Fatalf("Expected 2 paths in the batch, got %v", paths)
		}
		if filepath.Base(paths[0]) != "manifest.yaml" || filepath.Base(paths[1]) != "ship.txt" {
			t.Errorf("Unexpected paths: %v", paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for change batch")
	}
}

func TestWatchIgnoresDatabaseWrites(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "reloads.db"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-batches:
		t.Errorf("Expected no batch for ignored files, got %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, dir)

	sub := filepath.Join(dir, "fonts")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "block.yaml"), []byte("height: 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case paths := <-batches:
			for _, p := range paths {
				if filepath.Base(p) == "block.yaml" {
					return
				}
			}
		case <-deadline:
			t.Fatal("Timed out waiting for a change in the new directory")
		}
	}
}

func TestWatchTwice(t *testing.T) {
	w, _ := startWatcher(t, t.TempDir())

	err := w.Watch(context.Background(), func([]string) {})
	if !errors.Is(err, ErrRunning) {
		t.Errorf("Expected ErrRunning, got %v", err)
	}
}

func TestWatchAfterStop(t *testing.T) {
	w, err := New(DefaultConfig(t.TempDir()), quiet())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if err := w.Watch(context.Background(), func([]string) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	var mu sync.Mutex
	last := 0
	for i := 1; i <= 5; i++ {
		i := i
		d.Trigger(func() {
			calls.Add(1)
			mu.Lock()
			last = i
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", calls.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	if last != 5 {
		t.Errorf("Expected the latest callback to run, got %d", last)
	}
}

func TestDebouncerStopCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(80 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("Expected no calls after Stop, got %d", calls.Load())
	}
}
