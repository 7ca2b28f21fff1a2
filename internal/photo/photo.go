// Package photo saves full resolution frames as 16-bit sample dumps.
package photo

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/logging"
	"github.com/smazurov/mxcamera/internal/metrics"
	"github.com/smazurov/mxcamera/internal/pixel"
)

// ErrNoFrame is returned when no new frame arrived within the wait timeout.
var ErrNoFrame = errors.New("no frame captured in time")

// ErrBusy is returned while another photo is being written.
var ErrBusy = errors.New("photo capture already in progress")

const (
	DefaultDir         = "/mnt/ums/images"
	DefaultWaitTimeout = 5 * time.Second

	timeLayout = "2006-01-02_15-04-05"
)

// Result describes a saved photo.
type Result struct {
	Path     string
	Width    int
	Height   int
	Bytes    int64
	Degraded bool
}

// Saver grabs the next frame from the slot and writes it to disk.
type Saver struct {
	slot    *frame.Slot
	dir     string
	timeout time.Duration
	bus     events.Publisher
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	samples *pixel.Pool
	raw     []byte
	width   int
	height  int
}

// NewSaver creates a saver writing into dir. bus may be nil.
func NewSaver(slot *frame.Slot, dir string, timeout time.Duration, bus events.Publisher) *Saver {
	if dir == "" {
		dir = DefaultDir
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return &Saver{
		slot:    slot,
		dir:     dir,
		timeout: timeout,
		bus:     bus,
		logger:  logging.GetLogger("photo"),
		now:     time.Now,
		samples: pixel.NewPool(0),
	}
}

// Dir returns the output directory.
func (s *Saver) Dir() string { return s.dir }

// Capture waits for a frame newer than the current one, unpacks it and
// writes it as little-endian uint16 samples. Only one capture runs at a time.
func (s *Saver) Capture(ctx context.Context) (Result, error) {
	if !s.mu.TryLock() {
		return Result{}, ErrBusy
	}
	defer s.mu.Unlock()

	after := s.slot.State().Sequence
	err := s.slot.WaitBorrow(ctx, after, s.timeout, s.copyOut)
	if errors.Is(err, frame.ErrWaitTimeout) {
		return Result{}, fmt.Errorf("%w after %s", ErrNoFrame, s.timeout)
	}
	if err != nil {
		return Result{}, err
	}

	samples, err := s.samples.EnsureCapacity(s.width * s.height)
	if err != nil {
		return Result{}, err
	}
	degraded, err := pixel.Unpack(samples, s.raw, s.width, s.height)
	if err != nil {
		return Result{}, err
	}

	name := fmt.Sprintf("%s_%dx%d_16bit.bin", s.now().Format(timeLayout), s.width, s.height)
	path, size, err := s.write(name, samples)
	if err != nil {
		return Result{}, err
	}

	res := Result{Path: path, Width: s.width, Height: s.height, Bytes: size, Degraded: degraded}
	metrics.IncPhotosSaved()
	s.logger.Info("Photo saved", "path", path, "width", s.width, "height", s.height, "bytes", size)
	if s.bus != nil {
		s.bus.Publish(events.PhotoSavedEvent{
			Path:      path,
			Width:     s.width,
			Height:    s.height,
			Bytes:     size,
			Timestamp: s.now().Format(time.RFC3339),
		})
	}
	return res, nil
}

func (s *Saver) copyOut(f *frame.Frame) {
	if cap(s.raw) < len(f.Data) {
		s.raw = make([]byte, len(f.Data))
	}
	s.raw = s.raw[:len(f.Data)]
	copy(s.raw, f.Data)
	s.width, s.height = f.Width, f.Height
}

// write stores samples under name through a temporary file so a partial
// photo never appears under its final name.
func (s *Saver) write(name string, samples []uint16) (string, int64, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create %s: %w", s.dir, err)
	}
	path := uniquePath(filepath.Join(s.dir, name))

	tmp, err := os.CreateTemp(s.dir, ".photo-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriterSize(tmp, 256<<10)
	var b [2]byte
	for _, v := range samples {
		binary.LittleEndian.PutUint16(b[:], v)
		if _, err := w.Write(b[:]); err != nil {
			return "", 0, fmt.Errorf("write photo: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", 0, fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", 0, fmt.Errorf("sync photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		tmp = nil
		return "", 0, fmt.Errorf("rename photo: %w", err)
	}
	tmp = nil
	return path, int64(len(samples)) * 2, nil
}

// uniquePath appends a counter when two photos land in the same second.
func uniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for i := 2; ; i++ {
		p := fmt.Sprintf("%s-%d%s", base, i, ext)
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return p
		}
	}
}
