package display

import (
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
)

// ErrNoSnapshot is returned before the first canvas was presented.
var ErrNoSnapshot = errors.New("no canvas presented yet")

// Snapshot keeps a copy of the last presented canvas for the preview API.
type Snapshot struct {
	mu      sync.Mutex
	canvas  []uint16
	width   int
	height  int
	version uint64
	notify  chan struct{}
}

// NewSnapshot returns an empty snapshot surface.
func NewSnapshot() *Snapshot {
	return &Snapshot{notify: make(chan struct{})}
}

// Present stores a copy of the canvas and wakes Updated waiters.
func (s *Snapshot) Present(canvas []uint16, width, height int) error {
	n := width * height
	if n <= 0 || len(canvas) < n {
		return ErrInvalidCanvas
	}
	s.mu.Lock()
	if cap(s.canvas) < n {
		s.canvas = make([]uint16, n)
	}
	s.canvas = s.canvas[:n]
	copy(s.canvas, canvas)
	s.width, s.height = width, height
	s.version++
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()
	return nil
}

// Updated returns a channel closed at the next Present.
func (s *Snapshot) Updated() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notify
}

// Version counts presented canvases.
func (s *Snapshot) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Gray returns the last canvas as an 8-bit gray image. The green channel
// carries the most precision in RGB565.
func (s *Snapshot) Gray() (*image.Gray, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == 0 {
		return nil, 0, ErrNoSnapshot
	}
	img := image.NewGray(image.Rect(0, 0, s.width, s.height))
	for i, px := range s.canvas {
		g := uint8((px >> 5) & 0x3f)
		img.Pix[i] = g<<2 | g>>4
	}
	return img, s.version, nil
}

// WritePNG encodes the last canvas as PNG.
func (s *Snapshot) WritePNG(w io.Writer) error {
	img, _, err := s.Gray()
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
