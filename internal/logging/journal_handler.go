package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

var journalKey = strings.NewReplacer(".", "_", "-", "_")

// JournalHandler sends records to the systemd journal as structured fields.
// Attribute keys become upper-case fields, so
// `journalctl -t mxcamera MODULE=capture` filters by module.
type JournalHandler struct {
	state handlerState
}

// NewJournalHandler creates a journal handler. Passing a *slog.LevelVar
// lets the level change at runtime.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{state: handlerState{level: level}}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.state.enabled(level)
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := map[string]string{"SYSLOG_IDENTIFIER": syslogIdentifier}
	h.state.walk(r, func(path []string, a slog.Attr) {
		fields[journalField(path, a.Key)] = journalValue(a.Value)
	})

	_, priority := severity(r.Level)
	if err := journal.Send(r.Message, priority, fields); err != nil {
		fmt.Fprintf(os.Stderr, "journal send failed: %v\n", err)
		return err
	}
	return nil
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JournalHandler{state: h.state.withAttrs(attrs)}
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{state: h.state.withGroup(name)}
}

// journalField builds a field name journald accepts: upper case letters,
// digits and underscores.
func journalField(path []string, key string) string {
	if len(path) > 0 {
		key = strings.Join(path, "_") + "_" + key
	}
	return strings.ToUpper(journalKey.Replace(key))
}

func journalValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindTime:
		return v.Time().Format("2006-01-02T15:04:05.000Z07:00")
	default:
		return v.String()
	}
}

// IsJournalAvailable reports whether the journald socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
