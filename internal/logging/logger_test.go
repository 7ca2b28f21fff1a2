package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logBuffer = nil
	logCallback = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"capture":   "debug",
			"streaming": "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"capture", true, true, true},
		{"streaming", false, false, true},
		{"display", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			h := GetLogger(tt.module).Handler()
			ctx := context.Background()
			if got := h.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := h.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestApplyLevelsChangesExistingLoggers(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})
	logger := GetLogger("display")
	ctx := context.Background()

	if logger.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug enabled before reload")
	}

	ApplyLevels(Config{Level: "info", Modules: map[string]string{"display": "debug"}})
	if !logger.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Error("debug not enabled after reload")
	}
	if GetLogger("display") != logger {
		t.Error("reload replaced the logger")
	}

	ApplyLevels(Config{Level: "error"})
	if logger.Handler().Enabled(ctx, slog.LevelWarn) {
		t.Error("warn still enabled after raising global level")
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()
	logger := GetLogger("early")
	if !logger.Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("early logger should default to info")
	}
	// No buffer yet; logging must not panic.
	logger.Info("before init")

	Initialize(Config{Level: "debug"})
	if !GetLogger("early").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("early logger not updated by Initialize")
	}
}

func TestBufferAndCallback(t *testing.T) {
	resetState()
	Initialize(Config{Level: "debug"})

	var mu sync.Mutex
	var seen []LogEntry
	SetLogCallback(func(e LogEntry) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})
	defer SetLogCallback(nil)

	GetLogger("photo").Warn("disk nearly full", "free_mb", 12, "error", errors.New("ENOSPC"))

	entries := GetBuffer().ReadAll()
	if len(entries) == 0 {
		t.Fatal("no entries buffered")
	}
	last := entries[len(entries)-1]
	if last.Module != "photo" || last.Level != "warn" || last.Message != "disk nearly full" {
		t.Errorf("unexpected entry %+v", last)
	}
	if last.Attributes["error"] != "ENOSPC" {
		t.Errorf("error attribute = %v", last.Attributes["error"])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[len(seen)-1].Seq != last.Seq {
		t.Errorf("callback did not receive the buffered entry")
	}
}

func TestRingBufferWrapAndSince(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := range 5 {
		rb.Write(LogEntry{Message: string(rune('a' + i))})
	}

	all := rb.ReadAll()
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if all[0].Message != "c" || all[2].Message != "e" {
		t.Errorf("order = %s%s%s, want cde", all[0].Message, all[1].Message, all[2].Message)
	}

	since := rb.Since(4)
	if len(since) != 1 || since[0].Message != "e" {
		t.Errorf("Since(4) = %+v", since)
	}
	if rb.Count() != 3 {
		t.Errorf("Count() = %d", rb.Count())
	}
}

func TestFanoutFiltersPerHandler(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(h).With("module", "test")

	logger.Debug("debug message")
	logger.Warn("warn message")

	if !strings.Contains(debugBuf.String(), "debug message") || !strings.Contains(debugBuf.String(), "warn message") {
		t.Errorf("debug handler output: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "debug message") {
		t.Error("warn handler received debug record")
	}
	if !strings.Contains(warnBuf.String(), "module=test") {
		t.Error("attrs not propagated")
	}
}

func TestBufferHandlerGroups(t *testing.T) {
	resetState()
	Initialize(Config{Level: "debug"})

	logger := slog.New(NewBufferHandler(slog.LevelDebug)).
		With("module", "streaming").
		WithGroup("client").
		With("addr", "10.0.0.2:5000")
	logger.Info("connected", "since", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), slog.Group("tx", "frames", 3))

	entries := GetBuffer().ReadAll()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Module != "streaming" {
		t.Errorf("module = %q", e.Module)
	}
	want := map[string]any{
		"client.addr":      "10.0.0.2:5000",
		"client.since":     "2025-01-02T03:04:05Z",
		"client.tx.frames": int64(3),
	}
	for k, v := range want {
		if e.Attributes[k] != v {
			t.Errorf("attr %s = %#v, want %#v", k, e.Attributes[k], v)
		}
	}
}

func TestJournalFieldNames(t *testing.T) {
	tests := []struct {
		path []string
		key  string
		want string
	}{
		{nil, "module", "MODULE"},
		{nil, "frame-id", "FRAME_ID"},
		{[]string{"client"}, "remote.addr", "CLIENT_REMOTE_ADDR"},
	}
	for _, tt := range tests {
		if got := journalField(tt.path, tt.key); got != tt.want {
			t.Errorf("journalField(%v, %q) = %q, want %q", tt.path, tt.key, got, tt.want)
		}
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn + 1, "warn"},
		{slog.LevelError + 4, "error"},
	}
	for _, tt := range tests {
		if got, _ := severity(tt.level); got != tt.want {
			t.Errorf("severity(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{" error ", slog.LevelError, true},
		{"verbose", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
