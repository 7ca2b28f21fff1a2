package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// LogCallback is called for every entry stored in the ring buffer.
type LogCallback func(entry LogEntry)

// BufferHandler records into the package ring buffer and hands each entry
// to the registered callback. Both are looked up per record so loggers
// created before Initialize start buffering once it runs.
type BufferHandler struct {
	state handlerState
}

// NewBufferHandler creates a buffer handler.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{state: handlerState{level: level}}
}

func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.state.enabled(level)
}

func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	buffer := GetBuffer()
	if buffer == nil {
		return nil
	}

	module := "app"
	attrs := make(map[string]any)
	h.state.walk(r, func(path []string, a slog.Attr) {
		if len(path) == 0 && a.Key == "module" {
			module = a.Value.String()
			return
		}
		attrs[dotted(path, a.Key)] = bufferValue(a.Value)
	})

	level, _ := severity(r.Level)
	entry := buffer.Write(LogEntry{
		Timestamp:  r.Time,
		Level:      level,
		Module:     module,
		Message:    r.Message,
		Attributes: attrs,
	})
	if cb := currentCallback(); cb != nil {
		cb(entry)
	}
	return nil
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{state: h.state.withAttrs(attrs)}
}

func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &BufferHandler{state: h.state.withGroup(name)}
}

func dotted(path []string, key string) string {
	if len(path) == 0 {
		return key
	}
	return strings.Join(path, ".") + "." + key
}

// bufferValue converts v into something encoding/json renders readably.
func bufferValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}
