// Package metrics provides Prometheus metrics for the capture pipeline
// and the board collectors.
package metrics

import (
	"math"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mxcamera"

var (
	captureFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "fps",
		Help:      "Measured capture frame rate",
	})

	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames published to the frame slot",
	})

	captureTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "timeouts_total",
		Help:      "Capture attempts that timed out without a frame",
	})

	captureErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "errors_total",
		Help:      "Capture attempts that failed",
	})

	framesDisplayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "display",
		Name:      "frames_total",
		Help:      "Frames rendered to the display",
	})

	displaySkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "display",
		Name:      "skips_total",
		Help:      "Display ticks that rendered nothing",
	}, []string{"reason"})

	displayErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "display",
		Name:      "errors_total",
		Help:      "Frames dropped by the render path",
	})

	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "frames_total",
		Help:      "Frames sent to the TCP client",
	})

	bytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "bytes_total",
		Help:      "Payload and header bytes sent to the TCP client",
	})

	sendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "send_failures_total",
		Help:      "Client sessions ended by a write failure",
	})

	clientConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "client_connected",
		Help:      "1 while a TCP client is attached",
	})

	photosSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "photo",
		Name:      "saved_total",
		Help:      "Full resolution stills written to disk",
	})

	// Local mirror for the status endpoint and SSE exporter.
	local struct {
		fpsBits         atomic.Uint64
		framesCaptured  atomic.Uint64
		captureTimeouts atomic.Uint64
		captureErrors   atomic.Uint64
		framesDisplayed atomic.Uint64
		displaySkips    atomic.Uint64
		framesSent      atomic.Uint64
		bytesSent       atomic.Uint64
		sendFailures    atomic.Uint64
		clientConnected atomic.Bool
		photosSaved     atomic.Uint64
	}
)

// Display skip reasons.
const (
	SkipBusy     = "busy"
	SkipEmpty    = "empty"
	SkipDisabled = "disabled"
	SkipPaused   = "paused"
)

// SetCaptureFPS records the latest FPS estimate.
func SetCaptureFPS(fps float64) {
	captureFPS.Set(fps)
	local.fpsBits.Store(math.Float64bits(fps))
}

// IncFramesCaptured counts a published frame.
func IncFramesCaptured() {
	framesCaptured.Inc()
	local.framesCaptured.Add(1)
}

// IncCaptureTimeouts counts a capture timeout.
func IncCaptureTimeouts() {
	captureTimeouts.Inc()
	local.captureTimeouts.Add(1)
}

// IncCaptureErrors counts a failed capture.
func IncCaptureErrors() {
	captureErrors.Inc()
	local.captureErrors.Add(1)
}

// IncFramesDisplayed counts a rendered frame.
func IncFramesDisplayed() {
	framesDisplayed.Inc()
	local.framesDisplayed.Add(1)
}

// IncDisplaySkips counts a display tick that did not render.
func IncDisplaySkips(reason string) {
	displaySkips.WithLabelValues(reason).Inc()
	local.displaySkips.Add(1)
}

// IncDisplayErrors counts a frame the renderer dropped.
func IncDisplayErrors() {
	displayErrors.Inc()
}

// AddFrameSent counts one frame of n bytes delivered to the client.
func AddFrameSent(n int) {
	framesSent.Inc()
	bytesSent.Add(float64(n))
	local.framesSent.Add(1)
	local.bytesSent.Add(uint64(n))
}

// IncSendFailures counts a session ended by a write error.
func IncSendFailures() {
	sendFailures.Inc()
	local.sendFailures.Add(1)
}

// SetClientConnected records whether a TCP client is attached.
func SetClientConnected(connected bool) {
	if connected {
		clientConnected.Set(1)
	} else {
		clientConnected.Set(0)
	}
	local.clientConnected.Store(connected)
}

// IncPhotosSaved counts a written still.
func IncPhotosSaved() {
	photosSaved.Inc()
	local.photosSaved.Add(1)
}

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	FPS             float64
	FramesCaptured  uint64
	CaptureTimeouts uint64
	CaptureErrors   uint64
	FramesDisplayed uint64
	DisplaySkips    uint64
	FramesSent      uint64
	BytesSent       uint64
	SendFailures    uint64
	ClientConnected bool
	PhotosSaved     uint64
}

// Snapshot returns the current counters.
func Snapshot() Stats {
	return Stats{
		FPS:             math.Float64frombits(local.fpsBits.Load()),
		FramesCaptured:  local.framesCaptured.Load(),
		CaptureTimeouts: local.captureTimeouts.Load(),
		CaptureErrors:   local.captureErrors.Load(),
		FramesDisplayed: local.framesDisplayed.Load(),
		DisplaySkips:    local.displaySkips.Load(),
		FramesSent:      local.framesSent.Load(),
		BytesSent:       local.bytesSent.Load(),
		SendFailures:    local.sendFailures.Load(),
		ClientConnected: local.clientConnected.Load(),
		PhotosSaved:     local.photosSaved.Load(),
	}
}
