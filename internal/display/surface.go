package display

import "errors"

// ErrInvalidCanvas is returned for canvases shorter than width*height.
var ErrInvalidCanvas = errors.New("invalid canvas")

// Surface receives finished RGB565 canvases.
type Surface interface {
	Present(canvas []uint16, width, height int) error
}

// Multi presents to every surface in order and joins their errors.
type Multi []Surface

func (m Multi) Present(canvas []uint16, width, height int) error {
	var errs []error
	for _, s := range m {
		if err := s.Present(canvas, width, height); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
