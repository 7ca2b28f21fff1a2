package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/mxcamera/cmd"
	"github.com/smazurov/mxcamera/internal/api"
	"github.com/smazurov/mxcamera/internal/capture"
	"github.com/smazurov/mxcamera/internal/config"
	"github.com/smazurov/mxcamera/internal/display"
	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/led"
	"github.com/smazurov/mxcamera/internal/logging"
	"github.com/smazurov/mxcamera/internal/metrics"
	"github.com/smazurov/mxcamera/internal/metrics/collectors"
	"github.com/smazurov/mxcamera/internal/metrics/exporters"
	"github.com/smazurov/mxcamera/internal/photo"
	"github.com/smazurov/mxcamera/internal/pipeline"
	"github.com/smazurov/mxcamera/internal/pixel"
	"github.com/smazurov/mxcamera/internal/state"
	"github.com/smazurov/mxcamera/internal/streaming"
	"github.com/smazurov/mxcamera/internal/systemd"
	"github.com/smazurov/mxcamera/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Camera settings
	CameraSource           string `help:"Frame source (v4l2, sim)" default:"v4l2" toml:"camera.source" env:"CAMERA_SOURCE"`
	CameraDevice           string `help:"V4L2 capture device" default:"/dev/video0" toml:"camera.device" env:"CAMERA_DEVICE"`
	CameraWidth            int    `help:"Sensor width in pixels" default:"1920" toml:"camera.width" env:"CAMERA_WIDTH"`
	CameraHeight           int    `help:"Sensor height in pixels" default:"1080" toml:"camera.height" env:"CAMERA_HEIGHT"`
	CameraBuffers          int    `help:"Driver buffer count" default:"2" toml:"camera.buffers" env:"CAMERA_BUFFERS"`
	CameraTimeoutMs        int    `help:"Capture poll timeout in milliseconds" default:"25" toml:"camera.timeout_ms" env:"CAMERA_TIMEOUT_MS"`
	CameraSimFPS           int    `help:"Frame rate of the simulated sensor" default:"30" toml:"camera.sim_fps" env:"CAMERA_SIM_FPS"`
	CameraRealtimePriority int    `help:"SCHED_FIFO priority for the capture thread (0 disables)" default:"0" toml:"camera.realtime_priority" env:"CAMERA_REALTIME_PRIORITY"`

	// Display settings
	DisplayEnabled       bool   `help:"Render frames to the LCD" default:"true" toml:"runtime.display_enabled" env:"DISPLAY_ENABLED"`
	DisplayDevice        string `help:"Framebuffer device" default:"/dev/fb0" toml:"display.device" env:"DISPLAY_DEVICE"`
	DisplayWidth         int    `help:"LCD width" default:"320" toml:"display.width" env:"DISPLAY_WIDTH"`
	DisplayHeight        int    `help:"LCD height" default:"240" toml:"display.height" env:"DISPLAY_HEIGHT"`
	DisplayIntervalMs    int    `help:"Render interval in milliseconds" default:"33" toml:"display.interval_ms" env:"DISPLAY_INTERVAL_MS"`
	DisplayPauseOnClient bool   `help:"Blank the LCD while a TCP client streams" default:"false" toml:"display.pause_on_client" env:"DISPLAY_PAUSE_ON_CLIENT"`

	// Raw TCP streaming settings
	TCPEnabled   bool   `help:"Serve raw frames over TCP" default:"true" toml:"runtime.tcp_enabled" env:"TCP_ENABLED"`
	TCPHost      string `help:"TCP listen address (empty for all)" default:"" toml:"tcp.host" env:"TCP_HOST"`
	TCPPort      int    `help:"TCP listen port" default:"8888" toml:"tcp.port" env:"TCP_PORT"`
	TCPChunkSize int    `help:"Largest single payload write in bytes" default:"1048576" toml:"tcp.chunk_size" env:"TCP_CHUNK_SIZE"`

	// Photo settings
	PhotoDir string `help:"Directory for full resolution photos" default:"/mnt/ums/images" toml:"photo.dir" env:"PHOTO_DIR"`

	// Server settings
	Port string `help:"HTTP API listen address" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Observability settings
	MetricsPrometheusEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSEEnabled        bool `help:"Publish pipeline stats to SSE clients" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`

	// Features settings
	FeaturesLEDControl bool   `help:"Drive the board status LED" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`
	LEDName            string `help:"sysfs LED to use instead of board detection" default:"" toml:"features.led_name" env:"FEATURES_LED_NAME"`

	ShutdownTimeoutMs int `help:"How long to wait for pipeline stages on shutdown" default:"2000" toml:"shutdown.timeout_ms" env:"SHUTDOWN_TIMEOUT_MS"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture   string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingDisplay   string `help:"Display logging level" default:"info" toml:"logging.display" env:"LOGGING_DISPLAY"`
	LoggingStreaming string `help:"TCP streaming logging level" default:"info" toml:"logging.streaming" env:"LOGGING_STREAMING"`
	LoggingPhoto     string `help:"Photo logging level" default:"info" toml:"logging.photo" env:"LOGGING_PHOTO"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingConfig    string `help:"Config reload logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
	LoggingLED       string `help:"LED logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
}

func (o *Options) validate() error {
	var errs []error
	if o.CameraSource != "v4l2" && o.CameraSource != "sim" {
		errs = append(errs, fmt.Errorf("camera source %q: want v4l2 or sim", o.CameraSource))
	}
	if o.CameraWidth < 1 || o.CameraWidth > 4096 {
		errs = append(errs, fmt.Errorf("camera width %d: must be between 1 and 4096", o.CameraWidth))
	}
	if o.CameraHeight < 1 || o.CameraHeight > 4096 {
		errs = append(errs, fmt.Errorf("camera height %d: must be between 1 and 4096", o.CameraHeight))
	}
	if o.DisplayWidth < 1 || o.DisplayHeight < 1 {
		errs = append(errs, fmt.Errorf("display size %dx%d: must be positive", o.DisplayWidth, o.DisplayHeight))
	}
	if o.TCPPort < 1 || o.TCPPort > 65535 {
		errs = append(errs, fmt.Errorf("tcp port %d: must be between 1 and 65535", o.TCPPort))
	}
	if o.TCPChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("tcp chunk size %d: must be positive", o.TCPChunkSize))
	}
	if o.TCPHost != "" && net.ParseIP(o.TCPHost) == nil {
		errs = append(errs, fmt.Errorf("tcp host %q: not an IP address", o.TCPHost))
	}
	return errors.Join(errs...)
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"capture":   o.LoggingCapture,
			"display":   o.LoggingDisplay,
			"streaming": o.LoggingStreaming,
			"photo":     o.LoggingPhoto,
			"api":       o.LoggingAPI,
			"config":    o.LoggingConfig,
			"led":       o.LoggingLED,
		},
	}
}

func openDevice(opts *Options) (capture.Device, error) {
	if opts.CameraSource == "sim" {
		sim, err := capture.NewSim(capture.SimConfig{
			Width:   opts.CameraWidth,
			Height:  opts.CameraHeight,
			FPS:     float64(opts.CameraSimFPS),
			Buffers: opts.CameraBuffers,
		})
		if err != nil {
			return nil, err
		}
		return sim, nil
	}
	dev, err := capture.OpenV4L2(capture.V4L2Config{
		Path:        opts.CameraDevice,
		Width:       opts.CameraWidth,
		Height:      opts.CameraHeight,
		PixelFormat: capture.PixFmtSBGGR10,
		Buffers:     opts.CameraBuffers,
	})
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// openDisplay returns the surface chain and canvas size. Without a usable
// framebuffer the preview snapshot is the only surface.
func openDisplay(opts *Options, snapshot *display.Snapshot, logger *slog.Logger) (display.Surface, pixel.Size, func()) {
	canvas := pixel.Size{Width: opts.DisplayWidth, Height: opts.DisplayHeight}
	fb, err := display.OpenFramebuffer(opts.DisplayDevice)
	if err != nil {
		logger.Warn("Framebuffer unavailable, preview only", "device", opts.DisplayDevice, "error", err)
		return snapshot, canvas, func() {}
	}
	if w, h := fb.Size(); w != canvas.Width || h != canvas.Height {
		logger.Warn("Framebuffer size differs from configuration, using framebuffer size",
			"configured", fmt.Sprintf("%dx%d", canvas.Width, canvas.Height),
			"framebuffer", fmt.Sprintf("%dx%d", w, h))
		canvas = pixel.Size{Width: w, Height: h}
	}
	return display.Multi{fb, snapshot}, canvas, func() { _ = fb.Close() }
}

// pipelineHealthy reports false once the pipeline has stopped or no frame
// has been captured for stall.
func pipelineHealthy(p *pipeline.Pipeline, stall time.Duration) func() bool {
	last := metrics.Snapshot().FramesCaptured
	lastChange := time.Now()
	return func() bool {
		select {
		case <-p.Done():
			return false
		default:
		}
		if n := metrics.Snapshot().FramesCaptured; n != last {
			last, lastChange = n, time.Now()
		}
		return time.Since(lastChange) < stall
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		var (
			ctx, cancel = context.WithCancel(context.Background())
			server      *api.Server
			pipe        *pipeline.Pipeline
			device      capture.Device
			closeFB     = func() {}
			ledManager  *led.Manager
			watcher     *config.Watcher[config.Runtime]
			sseExporter *exporters.SSEExporter
			thermal     *collectors.ThermalCollector
			notifier    *systemd.Notifier
		)

		shutdown := func() {
			cancel()
			if notifier != nil {
				notifier.Stopping()
			}
			if server != nil {
				if err := server.Stop(); err != nil {
					logger.Error("Error stopping HTTP server", "error", err)
				}
			}
			if pipe != nil {
				timeout := time.Duration(opts.ShutdownTimeoutMs) * time.Millisecond
				// Stop closes the device, unless a stuck stage may still hold it.
				if err := pipe.Stop(timeout); err != nil {
					logger.Error("Pipeline did not stop cleanly", "error", err)
				}
			}
			closeFB()
			if watcher != nil {
				_ = watcher.Stop()
			}
			if ledManager != nil {
				ledManager.Stop()
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}
			if thermal != nil {
				_ = thermal.Stop()
			}
		}

		hooks.OnStart(func() {
			if err := opts.validate(); err != nil {
				logger.Error("Invalid configuration", "error", err)
				os.Exit(1)
			}
			logger.Info("Starting", "build", version.Banner(), "source", opts.CameraSource)

			flags := state.NewFlags(opts.DisplayEnabled, opts.TCPEnabled)

			var err error
			device, err = openDevice(opts)
			if err != nil {
				logger.Error("Failed to open capture device", "device", opts.CameraDevice, "error", err)
				os.Exit(1)
			}
			format := device.Format()
			logger.Info("Capture device ready",
				"device", device.Path(),
				"width", format.Width,
				"height", format.Height,
				"pixel_format", format.FourCC(),
				"frame_size", format.FrameSize)

			slot := frame.NewSlot()
			producer := capture.NewProducer(device, slot, capture.Config{
				Timeout:          time.Duration(opts.CameraTimeoutMs) * time.Millisecond,
				RealtimePriority: opts.CameraRealtimePriority,
			}, eventBus)
			pipe = pipeline.New(device, slot, producer)

			// Display
			snapshot := display.NewSnapshot()
			var surface display.Surface
			var canvas pixel.Size
			surface, canvas, closeFB = openDisplay(opts, snapshot, logging.GetLogger("display"))
			renderer, err := display.NewRenderer(canvas, pixel.DefaultMaxPixels)
			if err != nil {
				logger.Error("Failed to create renderer", "error", err)
				os.Exit(1)
			}
			consumer := display.NewConsumer(slot, renderer, surface, flags, display.Config{
				Interval:      time.Duration(opts.DisplayIntervalMs) * time.Millisecond,
				PauseOnClient: opts.DisplayPauseOnClient,
			})
			consumer.Attach(eventBus)
			pipe.AddConsumer("display", consumer)

			// Raw TCP streaming
			sender := streaming.NewSender(slot, flags, streaming.Config{
				Addr:      net.JoinHostPort(opts.TCPHost, strconv.Itoa(opts.TCPPort)),
				ChunkSize: opts.TCPChunkSize,
			}, eventBus)
			if flags.TCPEnabled() {
				if err := sender.Listen(); err != nil {
					logger.Error("Failed to start TCP streaming", "error", err)
					os.Exit(1)
				}
			}
			pipe.AddConsumer("streaming", sender)

			photos := photo.NewSaver(slot, opts.PhotoDir, photo.DefaultWaitTimeout, eventBus)

			// Status LED
			var ledController led.Controller
			if opts.FeaturesLEDControl {
				ledLogger := logging.GetLogger("led")
				ledController = led.New(ledLogger, opts.LEDName)
				ledManager = led.NewManager(ledController, eventBus, ledLogger)
				ledManager.Start()
			}

			// Observability
			apiOpts := &api.Options{
				AuthUsername:  opts.AuthUsername,
				AuthPassword:  opts.AuthPassword,
				EventBus:      eventBus,
				Flags:         flags,
				Camera:        format,
				DevicePath:    device.Path(),
				Sender:        sender,
				Photos:        photos,
				Snapshot:      snapshot,
				Display:       consumer,
				LEDController: ledController,
			}
			if opts.MetricsPrometheusEnabled {
				apiOpts.PrometheusHandler = exporters.HTTPHandler()
				thermal = collectors.NewThermalCollector()
				if err := thermal.Start(ctx); err != nil {
					logger.Warn("Failed to start thermal collector", "error", err)
				}
			}
			if opts.MetricsSSEEnabled {
				sseExporter = exporters.NewSSEExporter(eventBus)
				sseExporter.Start(ctx)
			}

			// Runtime toggles and log levels follow the config file
			if _, statErr := os.Stat(opts.Config); statErr == nil {
				watcher = config.NewConfigWatcher(opts.Config, config.LoadRuntime, logging.GetLogger("config"))
				watcher.OnReload(func(rt config.Runtime) {
					logging.ApplyLevels(rt.Logging)
					changed := false
					if rt.DisplayEnabled != nil && flags.SetDisplayEnabled(*rt.DisplayEnabled) {
						changed = true
					}
					if rt.TCPEnabled != nil && flags.SetTCPEnabled(*rt.TCPEnabled) {
						changed = true
					}
					if changed {
						eventBus.Publish(events.SettingsChangedEvent{
							DisplayEnabled: flags.DisplayEnabled(),
							TCPEnabled:     flags.TCPEnabled(),
							Source:         "config",
							Timestamp:      time.Now().Format(time.RFC3339),
						})
					}
				})
				if err := watcher.Start(); err != nil {
					logger.Warn("Config hot reload disabled", "path", opts.Config, "error", err)
					watcher = nil
				}
			}

			server = api.NewServer(apiOpts)

			if err := pipe.Start(ctx); err != nil {
				logger.Error("Failed to start pipeline", "error", err)
				os.Exit(1)
			}

			notifier = systemd.NewNotifier(logger)
			notifier.Ready()
			notifier.Status("Capturing %dx%d from %s", format.Width, format.Height, device.Path())
			go notifier.RunWatchdog(ctx, pipelineHealthy(pipe, 5*time.Second))

			// A failed stage ends the process so the service manager restarts it.
			failed := make(chan struct{})
			go func() {
				select {
				case <-pipe.Done():
				case <-ctx.Done():
					return
				}
				if ctx.Err() == nil {
					logger.Error("Pipeline stopped unexpectedly")
					close(failed)
					_ = server.Stop()
				}
			}()

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				shutdown()
				os.Exit(1)
			}

			select {
			case <-failed:
				shutdown()
				os.Exit(1)
			default:
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			shutdown()
		})
	})

	cli.Root().Use = version.Name
	cli.Root().Short = "RAW10 camera capture, LCD preview and raw TCP streaming"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateReceiveCmd())
	cli.Root().AddCommand(cmd.CreateDecodeCmd())

	cli.Run()
}
