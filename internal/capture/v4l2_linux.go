//go:build linux

package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/pixel"
	"github.com/smazurov/mxcamera/pkg/linuxav/v4l2"
)

// V4L2Config selects the sensor mode.
type V4L2Config struct {
	Path        string
	Width       int
	Height      int
	PixelFormat uint32
	Buffers     int
	// Multiplanar forces the buffer API. Nil picks it from the device
	// capabilities.
	Multiplanar *bool
}

// V4L2Device captures from a Video4Linux2 node with mmap streaming.
type V4L2Device struct {
	path   string
	stream *v4l2.Stream
	format Format
}

// OpenV4L2 opens the device, negotiates the format and maps the buffers.
func OpenV4L2(cfg V4L2Config) (*V4L2Device, error) {
	mplane := true
	if cfg.Multiplanar != nil {
		mplane = *cfg.Multiplanar
	} else if info, err := v4l2.QueryDevice(cfg.Path); err == nil {
		mplane = info.Multiplanar()
	}

	stream, err := v4l2.OpenStream(cfg.Path, v4l2.StreamConfig{
		Width:       cfg.Width,
		Height:      cfg.Height,
		PixelFormat: cfg.PixelFormat,
		BufferCount: cfg.Buffers,
		Multiplanar: mplane,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}

	applied := stream.Format()
	w, h := int(applied.Width), int(applied.Height)
	if w != cfg.Width || h != cfg.Height {
		_ = stream.Close()
		return nil, fmt.Errorf("open %s: driver applied %dx%d, want %dx%d", cfg.Path, w, h, cfg.Width, cfg.Height)
	}

	size := int(applied.SizeImage)
	if size == 0 {
		size = pixel.PackedSize(w, h)
	}
	return &V4L2Device{
		path:   cfg.Path,
		stream: stream,
		format: Format{Width: w, Height: h, PixelFormat: applied.PixelFormat, FrameSize: size},
	}, nil
}

func (d *V4L2Device) Start() error { return d.stream.Start() }
func (d *V4L2Device) Stop() error  { return d.stream.Stop() }
func (d *V4L2Device) Close() error { return d.stream.Close() }

func (d *V4L2Device) Format() Format { return d.format }
func (d *V4L2Device) Path() string   { return d.path }

// Capture dequeues one buffer. The frame requeues it on release.
func (d *V4L2Device) Capture(_ context.Context, timeout time.Duration) (*frame.Frame, error) {
	buf, err := d.stream.Dequeue(int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, v4l2.ErrTimeout) {
			return nil, ErrCaptureTimeout
		}
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}

	ts := buf.Timestamp
	if ts == 0 {
		ts = frame.Monotonic()
	}
	idx := buf.Index
	stream := d.stream
	return frame.New(buf.Data, d.format.Width, d.format.Height, d.format.PixelFormat, ts, func() {
		_ = stream.Enqueue(idx)
	}), nil
}
