package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// New returns a controller for this board. A non-empty name selects that
// /sys/class/leds entry as the status LED and skips board detection.
// Unknown boards get a no-op controller.
func New(logger *slog.Logger, name string) Controller {
	if name != "" {
		logger.Info("Using configured status LED", "led", name)
		return newSysfs(sysfsLEDPath, map[string]string{RoleStatus: name})
	}

	model := detectBoard()
	if led, ok := boardStatusLED(model); ok {
		logger.Info("Detected board status LED", "board_model", model, "led", led)
		return newSysfs(sysfsLEDPath, map[string]string{RoleStatus: led})
	}

	logger.Info("No status LED known for board, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// boardStatusLED maps a device tree model to its user LED.
func boardStatusLED(model string) (string, bool) {
	switch {
	case strings.Contains(model, "Luckfox"):
		return "work", true
	case strings.Contains(model, "NanoPC-T6"):
		return "usr_led", true
	case strings.Contains(model, "Orange Pi"):
		return "green_led", true
	case strings.Contains(model, "Raspberry Pi"):
		return "ACT", true
	}
	return "", false
}

// detectBoard reads the device tree model, "unknown" when absent.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
