// Package systemd reports readiness and watchdog keepalives to the service
// manager. Outside systemd every call is a no-op.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier talks to systemd over $NOTIFY_SOCKET.
type Notifier struct {
	logger   *slog.Logger
	watchdog time.Duration
}

// NewNotifier reads the watchdog interval from the environment.
func NewNotifier(logger *slog.Logger) *Notifier {
	n := &Notifier{logger: logger}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("Invalid systemd watchdog settings", "error", err)
	}
	n.watchdog = interval
	return n
}

// WatchdogInterval is zero when the watchdog is off.
func (n *Notifier) WatchdogInterval() time.Duration { return n.watchdog }

func (n *Notifier) notify(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Debug("sd_notify failed", "state", state, "error", err)
	}
	return sent
}

// Ready tells systemd startup finished.
func (n *Notifier) Ready() bool {
	sent := n.notify(daemon.SdNotifyReady)
	if sent {
		n.logger.Debug("Notified systemd: ready")
	}
	return sent
}

// Stopping tells systemd shutdown began.
func (n *Notifier) Stopping() bool {
	return n.notify(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) bool {
	return n.notify("STATUS=" + fmt.Sprintf(format, args...))
}

// RunWatchdog pings the watchdog at half its interval for as long as
// healthy reports true. A stalled pipeline stops the pings and systemd
// restarts the service. Returns when ctx is done.
func (n *Notifier) RunWatchdog(ctx context.Context, healthy func() bool) {
	if n.watchdog <= 0 {
		return
	}
	ticker := time.NewTicker(n.watchdog / 2)
	defer ticker.Stop()

	warned := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !healthy() {
				if !warned {
					n.logger.Warn("Pipeline unhealthy, withholding watchdog ping")
					warned = true
				}
				continue
			}
			warned = false
			n.notify(daemon.SdNotifyWatchdog)
		}
	}
}
