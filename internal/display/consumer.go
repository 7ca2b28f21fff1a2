package display

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/logging"
	"github.com/smazurov/mxcamera/internal/metrics"
	"github.com/smazurov/mxcamera/internal/state"
)

// DefaultInterval is the render cadence, about 30 Hz.
const DefaultInterval = 33 * time.Millisecond

// Config tunes the display loop.
type Config struct {
	Interval time.Duration
	// PauseOnClient blanks the display while a TCP client is streaming.
	PauseOnClient bool
}

// Consumer polls the slot on a ticker and presents what it renders. It
// never waits for the slot lock: a busy slot skips the tick.
type Consumer struct {
	slot     *frame.Slot
	renderer *Renderer
	surface  Surface
	flags    *state.Flags
	cfg      Config
	logger   *slog.Logger

	paused atomic.Bool
	blank  bool
	errLog rate.Sometimes
}

// NewConsumer creates a display consumer.
func NewConsumer(slot *frame.Slot, renderer *Renderer, surface Surface, flags *state.Flags, cfg Config) *Consumer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Consumer{
		slot:     slot,
		renderer: renderer,
		surface:  surface,
		flags:    flags,
		cfg:      cfg,
		logger:   logging.GetLogger("display"),
		errLog:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// SetPaused blanks or resumes the display independently of the runtime flag.
func (c *Consumer) SetPaused(paused bool) {
	if c.paused.Swap(paused) != paused {
		c.logger.Info("Display paused", "paused", paused)
	}
}

// Paused reports whether the display is paused.
func (c *Consumer) Paused() bool { return c.paused.Load() }

// Attach pauses the display while a client is connected when the config
// asks for it. It returns the unsubscribe function.
func (c *Consumer) Attach(bus *events.Bus) func() {
	if !c.cfg.PauseOnClient {
		return func() {}
	}
	unsubConn := bus.Subscribe(func(events.ClientConnectedEvent) { c.SetPaused(true) })
	unsubDisc := bus.Subscribe(func(events.ClientDisconnectedEvent) { c.SetPaused(false) })
	return func() {
		unsubConn()
		unsubDisc()
	}
}

// Run renders until ctx is cancelled or the slot is closed.
func (c *Consumer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	canvas := c.renderer.Canvas()
	c.logger.Info("Display started", "width", canvas.Width, "height", canvas.Height, "interval", c.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			c.present(c.renderer.Blank())
			return nil
		case <-ticker.C:
			if !c.tick() {
				return nil
			}
		}
	}
}

// tick renders at most one frame. It returns false once the slot is closed.
func (c *Consumer) tick() bool {
	if !c.flags.DisplayEnabled() {
		metrics.IncDisplaySkips(metrics.SkipDisabled)
		c.blankOnce()
		return true
	}
	if c.paused.Load() {
		metrics.IncDisplaySkips(metrics.SkipPaused)
		c.blankOnce()
		return true
	}

	switch c.slot.TryConsume(c.renderer.Load) {
	case frame.Skipped:
		metrics.IncDisplaySkips(metrics.SkipBusy)
		return true
	case frame.Empty:
		metrics.IncDisplaySkips(metrics.SkipEmpty)
		return true
	case frame.Closed:
		return false
	}

	out, err := c.renderer.Draw()
	if err != nil {
		metrics.IncDisplayErrors()
		c.errLog.Do(func() { c.logger.Warn("Frame dropped", "error", err) })
		return true
	}
	if c.renderer.Degraded {
		c.errLog.Do(func() { c.logger.Debug("Short frame rendered with zero fill") })
	}
	if c.present(out) {
		metrics.IncFramesDisplayed()
		c.blank = false
	}
	return true
}

func (c *Consumer) blankOnce() {
	if c.blank {
		return
	}
	if c.present(c.renderer.Blank()) {
		c.blank = true
	}
}

func (c *Consumer) present(canvas []uint16) bool {
	size := c.renderer.Canvas()
	if err := c.surface.Present(canvas, size.Width, size.Height); err != nil {
		metrics.IncDisplayErrors()
		c.errLog.Do(func() { c.logger.Warn("Present failed", "error", err) })
		return false
	}
	return true
}
