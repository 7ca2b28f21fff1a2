// Package logging provides structured logging with per-module levels.
//
// Records go to stdout when it is attached, to the systemd journal when
// running under journald, and always to an in-memory ring buffer that the
// HTTP API serves and streams.
//
// Initialize once at startup, then ask for a module logger:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture":   "debug",
//			"streaming": "warn",
//		},
//	})
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Capture started", "device", "/dev/video0")
//
// Levels can be changed at runtime with ApplyLevels, which the config
// watcher calls when the TOML file changes.
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	capture = "debug"
//	display = "warn"
//
// Viewing logs on the device:
//
//	journalctl -t mxcamera -f
//	journalctl -t mxcamera MODULE=streaming
package logging
