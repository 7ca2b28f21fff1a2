package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Device    string   `toml:"camera.device" env:"CAMERA_DEVICE"`
	Width     int      `toml:"camera.width" env:"CAMERA_WIDTH"`
	SimFPS    float64  `toml:"camera.sim_fps" env:"CAMERA_SIM_FPS"`
	TCPEnable bool     `toml:"runtime.tcp_enabled" env:"RUNTIME_TCP_ENABLED"`
	Modules   []string `toml:"logging.modules" env:"LOGGING_MODULES"`
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleTOML = `
[camera]
device = "/dev/video11"
width = 1280
sim_fps = 15

[runtime]
tcp_enabled = true

[logging]
modules = ["capture", "display"]
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeTOML(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}

	want := testOptions{
		Config:    opts.Config,
		Device:    "/dev/video11",
		Width:     1280,
		SimFPS:    15,
		TCPEnable: true,
		Modules:   []string{"capture", "display"},
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("got %+v, want %+v", *opts, want)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeTOML(t, sampleTOML)
	t.Setenv(EnvPrefix+"CAMERA_DEVICE", "/dev/video0")
	t.Setenv(EnvPrefix+"CAMERA_WIDTH", "640")

	cmd := &cobra.Command{Use: "test"}
	opts := &testOptions{Config: path}
	cmd.Flags().IntVar(&opts.Width, "width", 1920, "")
	if err := cmd.Flags().Set("width", "320"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatal(err)
	}
	if opts.Device != "/dev/video0" {
		t.Errorf("Device = %q, env should override the file", opts.Device)
	}
	if opts.Width != 320 {
		t.Errorf("Width = %d, the CLI flag should win", opts.Width)
	}
	if opts.SimFPS != 15 {
		t.Errorf("SimFPS = %v, file value lost", opts.SimFPS)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Width: 1920}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}
	if opts.Width != 1920 {
		t.Errorf("default lost: %d", opts.Width)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{"invalid toml", "[camera\nwidth = ", nil},
		{"type mismatch", "[camera]\nwidth = \"wide\"\n", nil},
		{"bad env int", "", map[string]string{"CAMERA_WIDTH": "wide"}},
		{"bad env bool", "", map[string]string{"RUNTIME_TCP_ENABLED": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(EnvPrefix+k, v)
			}
			opts := &testOptions{Config: writeTOML(t, tt.toml)}
			if err := LoadConfig(opts, nil); err == nil {
				t.Error("LoadConfig() succeeded, want error")
			}
		})
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":            "port",
		"LoggingLevel":    "logging-level",
		"DisplayInterval": "display-interval",
		"TCPPort":         "tcp-port",
		"CameraSimFPS":    "camera-sim-fps",
		"LoggingAPI":      "logging-api",
		"LEDName":         "led-name",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	tree := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}, "top": "x"}
	if v := getNestedValue(tree, "a.b.c"); v != 1 {
		t.Errorf("a.b.c = %v", v)
	}
	if v := getNestedValue(tree, "top"); v != "x" {
		t.Errorf("top = %v", v)
	}
	if v := getNestedValue(tree, "top.missing"); v != nil {
		t.Errorf("top.missing = %v", v)
	}
}

func TestLoadRuntime(t *testing.T) {
	path := writeTOML(t, `
[runtime]
display_enabled = false

[logging]
level = "warn"
format = "json"
capture = "debug"
`)
	rt, err := LoadRuntime(path)
	if err != nil {
		t.Fatal(err)
	}
	if rt.DisplayEnabled == nil || *rt.DisplayEnabled {
		t.Errorf("DisplayEnabled = %v, want false", rt.DisplayEnabled)
	}
	if rt.TCPEnabled != nil {
		t.Errorf("TCPEnabled = %v, want unset", *rt.TCPEnabled)
	}
	if rt.Logging.Level != "warn" || rt.Logging.Format != "json" || rt.Logging.Modules["capture"] != "debug" {
		t.Errorf("Logging = %+v", rt.Logging)
	}
}

func TestLoadRuntimeDefaultsLogging(t *testing.T) {
	rt, err := LoadRuntime(writeTOML(t, "[runtime]\ntcp_enabled = true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if rt.Logging.Level != "info" || rt.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text defaults", rt.Logging)
	}
}
