//go:build !linux

package display

import "errors"

type Framebuffer struct{}

func OpenFramebuffer(string) (*Framebuffer, error) {
	return nil, errors.New("framebuffer output requires linux")
}

func (fb *Framebuffer) Size() (int, int)                  { return 0, 0 }
func (fb *Framebuffer) Present([]uint16, int, int) error { return ErrInvalidCanvas }
func (fb *Framebuffer) Close() error                      { return nil }
