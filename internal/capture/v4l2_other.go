//go:build !linux

package capture

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/mxcamera/internal/frame"
)

type V4L2Config struct {
	Path        string
	Width       int
	Height      int
	PixelFormat uint32
	Buffers     int
	Multiplanar *bool
}

type V4L2Device struct{}

func OpenV4L2(V4L2Config) (*V4L2Device, error) {
	return nil, errors.New("v4l2 capture requires linux")
}

func (d *V4L2Device) Start() error   { return nil }
func (d *V4L2Device) Stop() error    { return nil }
func (d *V4L2Device) Close() error   { return nil }
func (d *V4L2Device) Format() Format { return Format{} }
func (d *V4L2Device) Path() string   { return "" }

func (d *V4L2Device) Capture(context.Context, time.Duration) (*frame.Frame, error) {
	return nil, ErrCapture
}
