package redirects

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNewFileWatcher_RequiresPath(t *testing.T) {
	if _, err := NewFileWatcher(&FileWatcherConfig{}, nil); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestFileWatcher_ReloadsOnChange(t *testing.T) {
	path := writeRedirects(t, "redirects:\n  - old_url: /a\n    new_url: /b\n")
	store := NewFileStore(path, nil)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultFileWatcherConfig(path)
	cfg.DebounceInterval = 50 * time.Millisecond
	fw, err := NewFileWatcher(cfg, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = fw.Watch(ctx, func() error {
			reloads.Add(1)
			return store.Load()
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("redirects:\n  - old_url: /a\n    new_url: /c\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec := store.Find(mustParse(t, "/a")); rec != nil && rec.NewURL == "/c" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if rec := store.Find(mustParse(t, "/a")); rec == nil || rec.NewURL != "/c" {
		t.Fatalf("expected reloaded target /c, got %+v", rec)
	}
	if reloads.Load() == 0 {
		t.Error("expected at least one reload")
	}

	if err := fw.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestFileWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redirects.yaml")
	if err := os.WriteFile(path, []byte("redirects: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(DefaultFileWatcherConfig(path), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Stop()

	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := fw.shouldProcessEvent(tt.event); got != tt.want {
			t.Errorf("shouldProcessEvent(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestFileWatcher_DoubleStart(t *testing.T) {
	path := writeRedirects(t, "redirects: []\n")
	fw, err := NewFileWatcher(DefaultFileWatcherConfig(path), nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fw.Watch(ctx, func() error { return nil }) }()
	time.Sleep(50 * time.Millisecond)

	if err := fw.Watch(ctx, func() error { return nil }); err == nil {
		t.Error("expected error on second Watch")
	}
	if err := fw.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call after burst, got %d", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("expected no calls after Stop, got %d", got)
	}
}
