package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[Runtime]) *Watcher[Runtime] {
	t.Helper()
	opts = append([]WatcherOption[Runtime]{WithDebounce[Runtime](20 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, LoadRuntime, quietLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() = %v", err)
		}
	})
	return w
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeTOML(t, "[runtime]\ntcp_enabled = false\n")
	w := startWatcher(t, path)

	got := make(chan Runtime, 4)
	w.OnReload(func(rt Runtime) { got <- rt })

	if err := os.WriteFile(path, []byte("[runtime]\ntcp_enabled = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case rt := <-got:
		if rt.TCPEnabled == nil || !*rt.TCPEnabled {
			t.Errorf("TCPEnabled = %v, want true", rt.TCPEnabled)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload")
	}
}

func TestWatcherSeesRenameReplace(t *testing.T) {
	path := writeTOML(t, "[runtime]\ndisplay_enabled = true\n")
	w := startWatcher(t, path)

	got := make(chan Runtime, 4)
	w.OnReload(func(rt Runtime) { got <- rt })

	tmp := filepath.Join(filepath.Dir(path), ".config.toml.swp")
	if err := os.WriteFile(tmp, []byte("[runtime]\ndisplay_enabled = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case rt := <-got:
		if rt.DisplayEnabled == nil || *rt.DisplayEnabled {
			t.Errorf("DisplayEnabled = %v, want false", rt.DisplayEnabled)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("rename not seen")
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	path := writeTOML(t, "")
	w := NewConfigWatcher(path, LoadRuntime, quietLogger(), WithDebounce[Runtime](200*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	got := make(chan Runtime, 10)
	w.OnReload(func(rt Runtime) { got <- rt })

	for range 5 {
		_ = os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload")
	}
	select {
	case <-got:
		t.Error("burst produced more than one reload")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherUnsubscribeAndErrors(t *testing.T) {
	path := writeTOML(t, "")
	errs := make(chan error, 4)
	w := startWatcher(t, path, WithErrorHandler[Runtime](func(err error) { errs <- err }))

	called := make(chan struct{}, 4)
	unsub := w.OnReload(func(Runtime) { called <- struct{}{} })
	unsub()

	if err := os.WriteFile(path, []byte("[runtime\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errs:
		if err == nil {
			t.Error("nil error reported")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("parse error not reported")
	}

	if err := os.WriteFile(path, []byte("[runtime]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-called:
		t.Error("unsubscribed handler was called")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	path := writeTOML(t, "")
	w := startWatcher(t, path)
	got := make(chan Runtime, 1)
	w.OnReload(func(rt Runtime) { got <- rt })

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.toml"), []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-got:
		t.Error("sibling file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherStartMissingDir(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "nope", "config.toml"), LoadRuntime, quietLogger())
	if err := w.Start(); err == nil {
		_ = w.Stop()
		t.Fatal("Start() on a missing directory succeeded")
	} else if !errors.Is(err, os.ErrNotExist) {
		t.Logf("Start() = %v", err)
	}
}
