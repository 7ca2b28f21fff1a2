package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/coreos/go-systemd/v22/journal"
)

// severities maps slog levels to the names stored in the ring buffer and
// the journal priorities. Ordered from the most severe.
var severities = []struct {
	min      slog.Level
	name     string
	priority journal.Priority
}{
	{slog.LevelError, "error", journal.PriErr},
	{slog.LevelWarn, "warn", journal.PriWarning},
	{slog.LevelInfo, "info", journal.PriInfo},
}

func severity(level slog.Level) (string, journal.Priority) {
	for _, s := range severities {
		if level >= s.min {
			return s.name, s.priority
		}
	}
	return "debug", journal.PriDebug
}

// handlerState is the part of a slog.Handler that WithAttrs and WithGroup
// derive new handlers from.
type handlerState struct {
	level  slog.Leveler
	attrs  []scopedAttr
	groups []string
}

// scopedAttr remembers which groups were open when the attr was added.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

func (s handlerState) enabled(level slog.Level) bool {
	return level >= s.level.Level()
}

func (s handlerState) withAttrs(attrs []slog.Attr) handlerState {
	next := s
	next.attrs = slices.Clip(s.attrs)
	for _, a := range attrs {
		next.attrs = append(next.attrs, scopedAttr{groups: s.groups, attr: a})
	}
	return next
}

func (s handlerState) withGroup(name string) handlerState {
	next := s
	next.groups = append(slices.Clip(s.groups), name)
	return next
}

// walk calls visit for every leaf attribute of the handler and the record,
// with nested groups expanded into the path.
func (s handlerState) walk(r slog.Record, visit func(path []string, a slog.Attr)) {
	for _, sa := range s.attrs {
		walkAttr(sa.groups, sa.attr, visit)
	}
	r.Attrs(func(a slog.Attr) bool {
		walkAttr(s.groups, a, visit)
		return true
	})
}

func walkAttr(path []string, a slog.Attr, visit func(path []string, a slog.Attr)) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() != slog.KindGroup {
		visit(path, a)
		return
	}
	sub := path
	if a.Key != "" {
		sub = append(slices.Clip(path), a.Key)
	}
	for _, ga := range a.Value.Group() {
		walkAttr(sub, ga, visit)
	}
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(f, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

// Handle keeps going after a failing handler so one broken sink does not
// silence the others.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
