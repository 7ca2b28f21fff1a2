package pixel

// Size is a width and height in pixels.
type Size struct {
	Width  int
	Height int
}

// Valid reports whether both axes are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Pixels returns Width*Height.
func (s Size) Pixels() int {
	return s.Width * s.Height
}

// FitSize computes the size a srcW x srcH image should be scaled to so that
// it fits the canvas while keeping its aspect ratio. Width is fitted first;
// if the resulting height overflows, height is fitted instead. Neither axis
// drops below half of the canvas. An invalid source returns the canvas size.
func FitSize(srcW, srcH int, canvas Size) Size {
	if srcW <= 0 || srcH <= 0 || !canvas.Valid() {
		return canvas
	}

	aspect := float32(srcH) / float32(srcW)
	w := canvas.Width
	h := int(float32(canvas.Width) * aspect)
	if h > canvas.Height {
		h = canvas.Height
		w = int(float32(canvas.Height) / aspect)
	}

	return Size{
		Width:  max(w, canvas.Width/2),
		Height: max(h, canvas.Height/2),
	}
}

// Compose clears the canvas to black and copies src centered onto it.
// Offsets are clamped to zero and the copied region is clipped to the
// canvas, so oversized sources show their top-left part.
func Compose(canvas []uint16, canvasW, canvasH int, src []uint16, srcW, srcH int) error {
	if srcW <= 0 || srcH <= 0 || canvasW <= 0 || canvasH <= 0 {
		return ErrInvalidDimensions
	}
	if len(src) < srcW*srcH || len(canvas) < canvasW*canvasH {
		return ErrInvalidDimensions
	}

	clear(canvas[:canvasW*canvasH])

	xoff := max((canvasW-srcW)/2, 0)
	yoff := max((canvasH-srcH)/2, 0)
	cw := min(srcW, canvasW-xoff)
	ch := min(srcH, canvasH-yoff)

	for y := range ch {
		d := (yoff+y)*canvasW + xoff
		copy(canvas[d:d+cw], src[y*srcW:y*srcW+cw])
	}
	return nil
}
