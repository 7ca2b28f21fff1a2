// Package capture runs the producer loop that moves frames from a camera
// device into the shared frame slot.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/mxcamera/internal/frame"
)

var (
	// ErrCaptureTimeout means no frame became ready within the timeout.
	// It is expected and never logged.
	ErrCaptureTimeout = errors.New("capture timeout")
	// ErrCapture wraps device failures other than a timeout.
	ErrCapture = errors.New("capture failed")
)

// Format is what a device delivers.
type Format struct {
	Width       int
	Height      int
	PixelFormat uint32
	// FrameSize is the expected payload length in bytes.
	FrameSize int
}

// Device is a frame source. Capture is called from a single goroutine.
// Returned frames own a device buffer until they are released.
type Device interface {
	Start() error
	Stop() error
	Capture(ctx context.Context, timeout time.Duration) (*frame.Frame, error)
	Format() Format
	Path() string
	Close() error
}

// FourCC renders PixelFormat as its four character code.
func (f Format) FourCC() string {
	b := []byte{byte(f.PixelFormat), byte(f.PixelFormat >> 8), byte(f.PixelFormat >> 16), byte(f.PixelFormat >> 24)}
	return string(b)
}
