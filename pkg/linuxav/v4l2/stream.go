//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	// ErrTimeout is returned by Dequeue when no buffer became ready in time.
	ErrTimeout = errors.New("v4l2: dequeue timeout")
	// ErrNotStreaming is returned by Dequeue before Start or after Stop.
	ErrNotStreaming = errors.New("v4l2: stream not started")
)

// StreamConfig selects the capture format and buffer count.
type StreamConfig struct {
	Width       int
	Height      int
	PixelFormat uint32
	BufferCount int
	// Multiplanar uses the VIDEO_CAPTURE_MPLANE buffer type with one plane.
	Multiplanar bool
}

// Format is the format the driver actually applied.
type Format struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	BytesPerLine uint32
	SizeImage    uint32
}

// Buffer is a dequeued driver buffer. Data aliases mmapped memory and must
// not be used after the buffer is enqueued again.
type Buffer struct {
	Index     int
	Data      []byte
	Sequence  uint32
	Timestamp uint64 // nanoseconds, CLOCK_MONOTONIC
	Flags     uint32
}

// Stream is an mmap streaming capture session on one device.
//
// Dequeue is meant to be called from a single goroutine; Enqueue may be
// called from any goroutine.
type Stream struct {
	mu        sync.Mutex
	fd        int
	typ       uint32
	mplane    bool
	format    Format
	mmaps     [][]byte
	queued    []bool
	streaming bool
	closed    bool

	// planes backs the m.planes pointer of multi-planar requests.
	planes []plane
	pinner runtime.Pinner
}

// OpenStream opens devicePath, applies the format, allocates and maps
// BufferCount driver buffers and queues all of them.
func OpenStream(devicePath string, cfg StreamConfig) (*Stream, error) {
	if cfg.BufferCount <= 0 {
		cfg.BufferCount = 2
	}

	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", devicePath, err)
	}

	s := &Stream{fd: fd, typ: bufTypeVideoCapture, mplane: cfg.Multiplanar}
	if cfg.Multiplanar {
		s.typ = bufTypeVideoCaptureMplane
		s.planes = make([]plane, 2)
		s.pinner.Pin(&s.planes[0])
	}

	if err := s.setFormat(cfg); err != nil {
		s.release()
		return nil, err
	}
	if err := s.allocate(cfg.BufferCount); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

func (s *Stream) setFormat(cfg StreamConfig) error {
	f := format{typ: s.typ}
	if s.mplane {
		pix := (*pixFormatMplane)(unsafe.Pointer(&f.fmt[0]))
		pix.width = uint32(cfg.Width)
		pix.height = uint32(cfg.Height)
		pix.pixelformat = cfg.PixelFormat
		pix.field = fieldNone
		pix.numPlanes = 1
	} else {
		pix := (*pixFormat)(unsafe.Pointer(&f.fmt[0]))
		pix.width = uint32(cfg.Width)
		pix.height = uint32(cfg.Height)
		pix.pixelformat = cfg.PixelFormat
		pix.field = fieldNone
	}

	if err := ioctl(s.fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return fmt.Errorf("VIDIOC_S_FMT %s %dx%d: %w", FormatFourCC(cfg.PixelFormat), cfg.Width, cfg.Height, err)
	}

	if s.mplane {
		pix := (*pixFormatMplane)(unsafe.Pointer(&f.fmt[0]))
		s.format = Format{
			Width:        pix.width,
			Height:       pix.height,
			PixelFormat:  pix.pixelformat,
			BytesPerLine: pix.planeFmt[0].bytesperline,
			SizeImage:    pix.planeFmt[0].sizeimage,
		}
	} else {
		pix := (*pixFormat)(unsafe.Pointer(&f.fmt[0]))
		s.format = Format{
			Width:        pix.width,
			Height:       pix.height,
			PixelFormat:  pix.pixelformat,
			BytesPerLine: pix.bytesperline,
			SizeImage:    pix.sizeimage,
		}
	}
	return nil
}

func (s *Stream) allocate(count int) error {
	req := requestBuffers{count: uint32(count), typ: s.typ, memory: memoryMmap}
	if err := ioctl(s.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("VIDIOC_REQBUFS: %w", err)
	}
	if req.count == 0 {
		return errors.New("VIDIOC_REQBUFS: driver allocated no buffers")
	}

	s.mmaps = make([][]byte, req.count)
	s.queued = make([]bool, req.count)
	for i := range s.mmaps {
		b := s.newBuffer(uint32(i))
		if err := ioctl(s.fd, vidiocQuerybuf, unsafe.Pointer(&b)); err != nil {
			return fmt.Errorf("VIDIOC_QUERYBUF %d: %w", i, err)
		}

		offset, length := b.offset(), b.length
		if s.mplane {
			offset, length = s.planes[0].offset(), s.planes[0].length
		}
		m, err := unix.Mmap(s.fd, int64(offset), int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return fmt.Errorf("mmap buffer %d: %w", i, err)
		}
		s.mmaps[i] = m
	}

	for i := range s.mmaps {
		if err := s.queue(i); err != nil {
			return err
		}
	}
	return nil
}

// newBuffer prepares a request for buffer index, pointing at the pinned
// plane array when multi-planar.
func (s *Stream) newBuffer(index uint32) buffer {
	b := buffer{index: index, typ: s.typ, memory: memoryMmap}
	if s.mplane {
		clear(s.planes)
		b.setPlanes(&s.planes[0], 1)
	}
	return b
}

func (s *Stream) queue(index int) error {
	b := s.newBuffer(uint32(index))
	if err := ioctl(s.fd, vidiocQbuf, unsafe.Pointer(&b)); err != nil {
		return fmt.Errorf("VIDIOC_QBUF %d: %w", index, err)
	}
	s.queued[index] = true
	return nil
}

// Format returns the negotiated capture format.
func (s *Stream) Format() Format {
	return s.format
}

// BufferCount returns the number of mapped driver buffers.
func (s *Stream) BufferCount() int {
	return len(s.mmaps)
}

// Start turns streaming on.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming {
		return nil
	}
	typ := s.typ
	if err := ioctl(s.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMON: %w", err)
	}
	s.streaming = true
	return nil
}

// Stop turns streaming off. The driver returns all buffers to userspace;
// they are queued again so a later Start resumes cleanly.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Stream) stopLocked() error {
	if !s.streaming {
		return nil
	}
	typ := s.typ
	if err := ioctl(s.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMOFF: %w", err)
	}
	s.streaming = false
	for i := range s.queued {
		s.queued[i] = false
	}
	for i := range s.mmaps {
		if err := s.queue(i); err != nil {
			return err
		}
	}
	return nil
}

// Dequeue waits up to timeoutMs for a filled buffer. It returns ErrTimeout
// when nothing arrived, including when the wait was interrupted.
func (s *Stream) Dequeue(timeoutMs int) (Buffer, error) {
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return Buffer{}, ErrTimeout
		}
		return Buffer{}, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return Buffer{}, ErrTimeout
	}
	if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 && fds[0].Revents&unix.POLLIN == 0 {
		return Buffer{}, fmt.Errorf("poll: device error (revents %#x)", fds[0].Revents)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming {
		return Buffer{}, ErrNotStreaming
	}

	b := s.newBuffer(0)
	if err := ioctl(s.fd, vidiocDqbuf, unsafe.Pointer(&b)); err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return Buffer{}, ErrTimeout
		}
		return Buffer{}, fmt.Errorf("VIDIOC_DQBUF: %w", err)
	}

	idx := int(b.index)
	if idx < 0 || idx >= len(s.mmaps) {
		return Buffer{}, fmt.Errorf("VIDIOC_DQBUF: index %d out of range", idx)
	}
	s.queued[idx] = false

	used := b.bytesused
	if s.mplane {
		used = s.planes[0].bytesused
	}
	data := s.mmaps[idx]
	if int(used) <= len(data) && used > 0 {
		data = data[:used]
	}

	return Buffer{
		Index:     idx,
		Data:      data,
		Sequence:  b.sequence,
		Timestamp: b.timestampNs(),
		Flags:     b.flags,
	}, nil
}

// Enqueue hands a dequeued buffer back to the driver.
func (s *Stream) Enqueue(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if index < 0 || index >= len(s.mmaps) {
		return fmt.Errorf("enqueue: index %d out of range", index)
	}
	if s.queued[index] {
		return nil
	}
	return s.queue(index)
}

// Close stops streaming, unmaps the buffers and closes the device.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.stopLocked()
	s.closed = true
	s.release()
	return err
}

func (s *Stream) release() {
	for i, m := range s.mmaps {
		if m != nil {
			_ = unix.Munmap(m)
			s.mmaps[i] = nil
		}
	}
	if len(s.mmaps) > 0 {
		req := requestBuffers{count: 0, typ: s.typ, memory: memoryMmap}
		_ = ioctl(s.fd, vidiocReqbufs, unsafe.Pointer(&req))
	}
	_ = closeDevice(s.fd)
	s.pinner.Unpin()
}
