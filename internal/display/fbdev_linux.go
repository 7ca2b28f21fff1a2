//go:build linux

package display

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Framebuffer is a 16 bpp Linux framebuffer device such as an fbtft LCD.
type Framebuffer struct {
	mu     sync.Mutex
	path   string
	fd     int
	mem    []byte
	width  int
	height int
	stride int // bytes per line
}

// OpenFramebuffer maps path (for example /dev/fb0). The geometry comes from
// sysfs; only 16 bits per pixel is supported.
func OpenFramebuffer(path string) (*Framebuffer, error) {
	sys := filepath.Join("/sys/class/graphics", filepath.Base(path))

	bpp, err := readSysfsInts(filepath.Join(sys, "bits_per_pixel"))
	if err != nil {
		return nil, fmt.Errorf("framebuffer %s: %w", path, err)
	}
	if bpp[0] != 16 {
		return nil, fmt.Errorf("framebuffer %s: %d bits per pixel, need 16", path, bpp[0])
	}
	size, err := readSysfsInts(filepath.Join(sys, "virtual_size"))
	if err != nil || len(size) != 2 {
		return nil, fmt.Errorf("framebuffer %s: virtual_size: %w", path, err)
	}
	stride := size[0] * 2
	if s, err := readSysfsInts(filepath.Join(sys, "stride")); err == nil && s[0] > 0 {
		stride = s[0]
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	mem, err := unix.Mmap(fd, 0, stride*size[1], unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &Framebuffer{
		path:   path,
		fd:     fd,
		mem:    mem,
		width:  size[0],
		height: size[1],
		stride: stride,
	}, nil
}

func readSysfsInts(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, f := range strings.Split(strings.TrimSpace(string(data)), ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Size returns the framebuffer resolution.
func (fb *Framebuffer) Size() (int, int) { return fb.width, fb.height }

// Present copies the canvas row by row, clipped to the framebuffer.
func (fb *Framebuffer) Present(canvas []uint16, width, height int) error {
	if width <= 0 || height <= 0 || len(canvas) < width*height {
		return ErrInvalidCanvas
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.mem == nil {
		return fmt.Errorf("framebuffer %s: closed", fb.path)
	}

	w := min(width, fb.width)
	h := min(height, fb.height)
	for y := range h {
		row := fb.mem[y*fb.stride : y*fb.stride+w*2]
		dst := unsafe.Slice((*uint16)(unsafe.Pointer(&row[0])), w)
		copy(dst, canvas[y*width:y*width+w])
	}
	return nil
}

// Close unmaps the framebuffer.
func (fb *Framebuffer) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.mem == nil {
		return nil
	}
	err := unix.Munmap(fb.mem)
	fb.mem = nil
	if cerr := unix.Close(fb.fd); err == nil {
		err = cerr
	}
	return err
}
