package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func watcherTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherNotifiesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("preferred_device = \"a\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var mu sync.Mutex
	var got []Settings

	w := NewConfigWatcher(path, LoadSettings, watcherTestLogger(),
		WithDebounce[Settings](50*time.Millisecond))
	w.OnReload(func(s Settings) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("preferred_device = \"b\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 {
		t.Fatal("expected at least one reload notification")
	}
	if got[len(got)-1].PreferredDevice != "b" {
		t.Errorf("expected fresh settings, got %+v", got[len(got)-1])
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w := NewConfigWatcher(path, LoadSettings, watcherTestLogger(),
		WithDebounce[Settings](10*time.Millisecond))

	called := false
	unsub := w.OnReload(func(Settings) { called = true })
	unsub()

	// Deliver directly; the handler slot is nil after unsubscribe.
	w.loadAndNotify()

	if called {
		t.Error("expected unsubscribed handler not to be called")
	}
}

func TestWatcherStartMissingFile(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "absent.toml"), LoadSettings, watcherTestLogger())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Error("expected error watching a missing file")
	}
}
