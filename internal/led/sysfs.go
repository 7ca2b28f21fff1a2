package led

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives LEDs through /sys/class/leds/<name>/{trigger,brightness}.
type sysfs struct {
	root string
	leds map[string]string // role -> sysfs LED name
}

func newSysfs(root string, leds map[string]string) *sysfs {
	return &sysfs{root: root, leds: leds}
}

// triggerFor maps a pattern to a kernel LED trigger.
func triggerFor(pattern string) string {
	switch pattern {
	case PatternSolid:
		return "none"
	case PatternBlink:
		return "timer"
	case PatternHeartbeat:
		return "heartbeat"
	default:
		return pattern
	}
}

func (s *sysfs) Set(role string, enabled bool, pattern string) error {
	name, ok := s.leds[role]
	if !ok {
		return fmt.Errorf("no LED for role %q on this board", role)
	}
	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("LED %q: %w", name, err)
	}

	if pattern != "" && enabled {
		if err := os.WriteFile(filepath.Join(dir, "trigger"), []byte(triggerFor(pattern)), 0o644); err != nil {
			return fmt.Errorf("set LED trigger: %w", err)
		}
	}
	if !enabled {
		// A running trigger would switch the LED back on.
		_ = os.WriteFile(filepath.Join(dir, "trigger"), []byte("none"), 0o644)
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	if pattern == PatternSolid || !enabled {
		if err := os.WriteFile(filepath.Join(dir, "brightness"), []byte(brightness), 0o644); err != nil {
			return fmt.Errorf("set LED brightness: %w", err)
		}
	}
	return nil
}

func (s *sysfs) Available() []string {
	roles := make([]string, 0, len(s.leds))
	for role := range s.leds {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}

func (s *sysfs) Patterns() []string {
	return []string{PatternSolid, PatternBlink, PatternHeartbeat}
}
