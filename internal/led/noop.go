package led

import "log/slog"

// noop is used on boards without a known status LED.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(role string, enabled bool, pattern string) error {
	n.logger.Debug("No LED for role", "role", role, "enabled", enabled, "pattern", pattern)
	return nil
}

func (n *noop) Available() []string { return []string{} }

func (n *noop) Patterns() []string { return []string{} }
