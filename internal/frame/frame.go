// Package frame holds the raw frame type and the single-frame slot shared
// between the capture producer and its consumers.
package frame

import "sync"

// Frame is one captured, still packed image. The Data slice may alias a
// device buffer; it is valid only until Release is called.
type Frame struct {
	Data        []byte
	Width       int
	Height      int
	PixelFormat uint32
	// Sequence is assigned by the slot on publish, starting at 1.
	Sequence uint64
	// Timestamp is monotonic nanoseconds at capture time.
	Timestamp uint64

	release func()
	once    sync.Once
}

// New wraps a buffer. release, if non-nil, is called exactly once when the
// frame is released.
func New(data []byte, width, height int, pixfmt uint32, timestamp uint64, release func()) *Frame {
	return &Frame{
		Data:        data,
		Width:       width,
		Height:      height,
		PixelFormat: pixfmt,
		Timestamp:   timestamp,
		release:     release,
	}
}

// Release returns the underlying buffer to its owner. Later calls do nothing.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
		f.Data = nil
	})
}

// Size is the payload length in bytes.
func (f *Frame) Size() int {
	return len(f.Data)
}
