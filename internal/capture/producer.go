package capture

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/logging"
	"github.com/smazurov/mxcamera/internal/metrics"
)

const (
	DefaultTimeout     = 25 * time.Millisecond
	DefaultBackoff     = time.Millisecond
	DefaultFPSInterval = time.Second
)

// Config tunes the producer loop.
type Config struct {
	Timeout     time.Duration
	Backoff     time.Duration
	FPSInterval time.Duration
	// RealtimePriority requests SCHED_FIFO at this priority when > 0.
	RealtimePriority int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.FPSInterval <= 0 {
		c.FPSInterval = DefaultFPSInterval
	}
	return c
}

// Producer moves frames from a Device into a Slot.
type Producer struct {
	dev    Device
	slot   *frame.Slot
	cfg    Config
	bus    events.Publisher
	logger *slog.Logger

	fpsBits atomic.Uint64
	errLog  rate.Sometimes
}

// NewProducer creates a producer. bus may be nil.
func NewProducer(dev Device, slot *frame.Slot, cfg Config, bus events.Publisher) *Producer {
	return &Producer{
		dev:    dev,
		slot:   slot,
		cfg:    cfg.withDefaults(),
		bus:    bus,
		logger: logging.GetLogger("capture"),
		errLog: rate.Sometimes{First: 3, Interval: 5 * time.Second},
	}
}

// FPS returns the most recent rate estimate.
func (p *Producer) FPS() float64 {
	return math.Float64frombits(p.fpsBits.Load())
}

// Run captures until ctx is cancelled or the slot is closed. A frame
// captured after cancellation is released, never published.
func (p *Producer) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if p.cfg.RealtimePriority > 0 {
		if err := setRealtimePriority(p.cfg.RealtimePriority); err != nil {
			p.logger.Warn("Realtime priority not applied", "priority", p.cfg.RealtimePriority, "error", err)
		} else {
			p.logger.Debug("Realtime priority applied", "priority", p.cfg.RealtimePriority)
		}
	}

	f := p.dev.Format()
	p.logger.Info("Capture started", "device", p.dev.Path(), "width", f.Width, "height", f.Height)

	est := newFPSEstimator(p.cfg.FPSInterval, time.Now())
	for {
		if ctx.Err() != nil {
			return nil
		}

		fr, err := p.dev.Capture(ctx, p.cfg.Timeout)
		if ctx.Err() != nil {
			fr.Release()
			return nil
		}

		switch {
		case err == nil:
			if !p.slot.Publish(fr) {
				return nil
			}
			metrics.IncFramesCaptured()
			p.updateFPS(est.observe(time.Now(), 1))

		case errors.Is(err, ErrCaptureTimeout):
			metrics.IncCaptureTimeouts()
			p.updateFPS(est.observe(time.Now(), 0))

		default:
			metrics.IncCaptureErrors()
			p.errLog.Do(func() {
				p.logger.Warn("Capture failed", "device", p.dev.Path(), "error", err)
				if p.bus != nil {
					p.bus.Publish(events.CaptureErrorEvent{
						DevicePath: p.dev.Path(),
						Error:      err.Error(),
						Timestamp:  time.Now().Format(time.RFC3339),
					})
				}
			})
			if !sleepCtx(ctx, p.cfg.Backoff) {
				return nil
			}
		}
	}
}

func (p *Producer) updateFPS(fps float64, ok bool) {
	if !ok {
		return
	}
	p.fpsBits.Store(math.Float64bits(fps))
	metrics.SetCaptureFPS(fps)
	p.logger.Debug("Capture rate", "fps", fps)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
