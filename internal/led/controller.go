// Package led drives a board status LED from pipeline events.
package led

// Patterns understood by every controller.
const (
	PatternSolid     = "solid"
	PatternHeartbeat = "heartbeat"
	PatternBlink     = "blink"
)

// RoleStatus is the LED that reflects streaming state.
const RoleStatus = "status"

// Controller drives board LEDs by role.
type Controller interface {
	// Set switches the LED for role on or off. A non-empty pattern also
	// selects how it lights.
	Set(role string, enabled bool, pattern string) error

	// Available lists the roles this board has an LED for.
	Available() []string

	// Patterns lists the supported patterns.
	Patterns() []string
}
