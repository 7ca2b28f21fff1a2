// Package display renders the latest captured frame onto the LCD.
package display

import (
	"fmt"

	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/pixel"
)

// Renderer owns every buffer used to turn a packed frame into an RGB565
// canvas. Buffers grow on demand and are reused across frames. A Renderer
// belongs to one goroutine.
type Renderer struct {
	canvas    pixel.Size
	canvasBuf []uint16
	samples   *pixel.Pool
	scaled    *pixel.Pool

	raw    []byte
	width  int
	height int
	// Degraded is set when the last frame was shorter than its dimensions.
	Degraded bool
}

// NewRenderer creates a renderer for a canvas of the given size. maxPixels
// bounds the unpacked frame; non-positive selects pixel.DefaultMaxPixels.
func NewRenderer(canvas pixel.Size, maxPixels int) (*Renderer, error) {
	if !canvas.Valid() {
		return nil, fmt.Errorf("canvas %dx%d: %w", canvas.Width, canvas.Height, pixel.ErrInvalidDimensions)
	}
	return &Renderer{
		canvas:    canvas,
		canvasBuf: make([]uint16, canvas.Pixels()),
		samples:   pixel.NewPool(maxPixels),
		scaled:    pixel.NewPool(canvas.Pixels()),
	}, nil
}

// Canvas returns the canvas size.
func (r *Renderer) Canvas() pixel.Size { return r.canvas }

// Load copies the frame payload into the renderer. It is meant to run
// inside Slot.TryConsume so the frame lock is held only for the copy.
func (r *Renderer) Load(f *frame.Frame) {
	if cap(r.raw) < len(f.Data) {
		r.raw = make([]byte, len(f.Data))
	}
	r.raw = r.raw[:len(f.Data)]
	copy(r.raw, f.Data)
	r.width = f.Width
	r.height = f.Height
}

// Draw converts the loaded frame into the canvas and returns it. The
// returned slice is reused by the next call.
func (r *Renderer) Draw() ([]uint16, error) {
	n := r.width * r.height
	if n <= 0 {
		return nil, pixel.ErrInvalidDimensions
	}
	samples, err := r.samples.EnsureCapacity(n)
	if err != nil {
		return nil, err
	}
	r.Degraded, err = pixel.Unpack(samples, r.raw, r.width, r.height)
	if err != nil {
		return nil, err
	}

	fit := pixel.FitSize(r.width, r.height, r.canvas)
	scaled, err := r.scaled.EnsureCapacity(fit.Pixels())
	if err != nil {
		return nil, err
	}
	if err := pixel.Scale(scaled, samples, r.width, r.height, fit.Width, fit.Height); err != nil {
		return nil, err
	}
	pixel.EncodeGray565(scaled, scaled)

	if err := pixel.Compose(r.canvasBuf, r.canvas.Width, r.canvas.Height, scaled, fit.Width, fit.Height); err != nil {
		return nil, err
	}
	return r.canvasBuf, nil
}

// Render loads and draws f in one step.
func (r *Renderer) Render(f *frame.Frame) ([]uint16, error) {
	r.Load(f)
	return r.Draw()
}

// Blank clears the canvas and returns it.
func (r *Renderer) Blank() []uint16 {
	clear(r.canvasBuf)
	return r.canvasBuf
}
