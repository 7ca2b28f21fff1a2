package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/pixel"
)

// PixFmtSBGGR10 is the 'BG10' fourcc the sensor delivers.
const PixFmtSBGGR10 uint32 = 0x30314742

// SimPath is the device path that selects the simulated sensor.
const SimPath = "sim"

// SimConfig configures the simulated sensor.
type SimConfig struct {
	Width   int
	Height  int
	FPS     float64
	Buffers int
}

// SimDevice produces a scrolling RAW10 gradient at a fixed rate. Like a
// driver it owns a fixed set of buffers; when all of them are held by
// frames that were not released yet, Capture times out.
type SimDevice struct {
	cfg    SimConfig
	period time.Duration
	base   []byte

	mu      sync.Mutex
	free    chan []byte
	started bool
	next    time.Time
	shift   int
}

// NewSim creates a simulated sensor.
func NewSim(cfg SimConfig) (*SimDevice, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("sim: %w: %dx%d", pixel.ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Buffers <= 0 {
		cfg.Buffers = 2
	}

	size := pixel.PackedSize(cfg.Width, cfg.Height)
	d := &SimDevice{
		cfg:    cfg,
		period: time.Duration(float64(time.Second) / cfg.FPS),
		base:   gradient(cfg.Width, cfg.Height),
		free:   make(chan []byte, cfg.Buffers),
	}
	for range cfg.Buffers {
		d.free <- make([]byte, size)
	}
	return d, nil
}

// gradient packs a diagonal ramp covering the full 10-bit range.
func gradient(w, h int) []byte {
	samples := make([]uint16, w*h)
	span := w + h - 2
	if span <= 0 {
		span = 1
	}
	for y := range h {
		for x := range w {
			samples[y*w+x] = uint16((x + y) * pixel.MaxSample / span)
		}
	}

	out := make([]byte, pixel.PackedSize(w, h))
	for i, o := 0, 0; i < len(samples); i, o = i+pixel.GroupSamples, o+pixel.GroupBytes {
		var g uint64
		for k := 0; k < pixel.GroupSamples && i+k < len(samples); k++ {
			g |= uint64(samples[i+k]&pixel.MaxSample) << (10 * k)
		}
		for k := 0; k < pixel.GroupBytes && o+k < len(out); k++ {
			out[o+k] = byte(g >> (8 * k))
		}
	}
	return out
}

func (d *SimDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	d.next = time.Now()
	return nil
}

func (d *SimDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
	return nil
}

func (d *SimDevice) Close() error { return d.Stop() }

func (d *SimDevice) Path() string { return SimPath }

func (d *SimDevice) Format() Format {
	return Format{
		Width:       d.cfg.Width,
		Height:      d.cfg.Height,
		PixelFormat: PixFmtSBGGR10,
		FrameSize:   len(d.base),
	}
}

// Capture waits for the next frame period and fills a free buffer.
func (d *SimDevice) Capture(ctx context.Context, timeout time.Duration) (*frame.Frame, error) {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrCapture, errors.New("sim: not started"))
	}
	next := d.next
	d.mu.Unlock()

	wait := time.Until(next)
	if wait > timeout {
		sleepCtx(ctx, timeout)
		return nil, ErrCaptureTimeout
	}
	if wait > 0 && !sleepCtx(ctx, wait) {
		return nil, ctx.Err()
	}

	var buf []byte
	select {
	case buf = <-d.free:
	default:
		remaining := timeout - max(wait, 0)
		select {
		case buf = <-d.free:
		case <-time.After(remaining):
			return nil, ErrCaptureTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	shift := d.shift
	d.shift = (d.shift + pixel.GroupBytes*4) % len(d.base)
	d.next = d.next.Add(d.period)
	if now := time.Now(); d.next.Before(now) {
		d.next = now
	}
	d.mu.Unlock()

	n := copy(buf, d.base[shift:])
	copy(buf[n:], d.base[:shift])

	free := d.free
	return frame.New(buf, d.cfg.Width, d.cfg.Height, PixFmtSBGGR10, frame.Monotonic(), func() {
		free <- buf
	}), nil
}
