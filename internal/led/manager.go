package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/mxcamera/internal/events"
)

// Manager keeps the status LED in step with the pipeline: solid while a
// client is streaming, heartbeat while only capturing and blinking after a
// capture error until the next client change.
type Manager struct {
	controller Controller
	bus        *events.Bus
	logger     *slog.Logger

	mu        sync.Mutex
	streaming bool
	faulted   bool
	pattern   string
	unsubs    []func()
}

// NewManager creates a manager. Call Start to begin reacting to events.
func NewManager(controller Controller, bus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{controller: controller, bus: bus, logger: logger}
}

// Start subscribes to the bus and lights the LED for the idle state.
func (m *Manager) Start() {
	m.mu.Lock()
	m.unsubs = append(m.unsubs,
		m.bus.Subscribe(func(events.ClientConnectedEvent) { m.update(true, false) }),
		m.bus.Subscribe(func(events.ClientDisconnectedEvent) { m.update(false, false) }),
		m.bus.Subscribe(func(events.CaptureErrorEvent) { m.fault() }),
	)
	m.apply()
	m.mu.Unlock()
	m.logger.Info("LED manager started")
}

// Stop unsubscribes and switches the LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.controller.Set(RoleStatus, false, ""); err != nil {
		m.logger.Debug("Failed to switch status LED off", "error", err)
	}
	m.pattern = ""
}

// Controller returns the underlying controller.
func (m *Manager) Controller() Controller { return m.controller }

func (m *Manager) update(streaming, faulted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaming = streaming
	m.faulted = faulted
	m.apply()
}

func (m *Manager) fault() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faulted = true
	m.apply()
}

// apply must be called with mu held.
func (m *Manager) apply() {
	pattern := PatternHeartbeat
	switch {
	case m.faulted:
		pattern = PatternBlink
	case m.streaming:
		pattern = PatternSolid
	}
	if pattern == m.pattern {
		return
	}
	if err := m.controller.Set(RoleStatus, true, pattern); err != nil {
		m.logger.Warn("Failed to set status LED", "pattern", pattern, "error", err)
		return
	}
	m.pattern = pattern
	m.logger.Debug("Status LED updated", "pattern", pattern)
}
