package display

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/pixel"
	"github.com/smazurov/mxcamera/internal/state"
)

func whiteFrame(w, h int) *frame.Frame {
	return frame.New(bytes.Repeat([]byte{0xFF}, pixel.PackedSize(w, h)), w, h, 0, 0, nil)
}

func TestRendererCentersFrame(t *testing.T) {
	r, err := NewRenderer(pixel.Size{Width: 8, Height: 8}, 0)
	if err != nil {
		t.Fatal(err)
	}
	canvas, err := r.Render(whiteFrame(8, 2))
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}

	// 8x2 fits to 8x2, then the height floor lifts it to 8x4 at row 2.
	for y := range 8 {
		want := uint16(0)
		if y >= 2 && y < 6 {
			want = 0xFFFF
		}
		for x := range 8 {
			if got := canvas[y*8+x]; got != want {
				t.Fatalf("canvas[%d,%d] = %#04x, want %#04x", x, y, got, want)
			}
		}
	}
}

func TestRendererRejectsOversizedFrame(t *testing.T) {
	r, err := NewRenderer(pixel.Size{Width: 4, Height: 4}, 16)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(whiteFrame(8, 8)); !errors.Is(err, pixel.ErrAllocation) {
		t.Errorf("Render() = %v, want ErrAllocation", err)
	}
	// A smaller frame still renders afterwards.
	if _, err := r.Render(whiteFrame(4, 4)); err != nil {
		t.Errorf("Render() after drop = %v", err)
	}
}

func TestRendererBadRawSize(t *testing.T) {
	r, _ := NewRenderer(pixel.Size{Width: 4, Height: 4}, 0)
	f := frame.New([]byte{1, 2, 3}, 4, 1, 0, 0, nil)
	if _, err := r.Render(f); !errors.Is(err, pixel.ErrInvalidRawSize) {
		t.Errorf("Render() = %v, want ErrInvalidRawSize", err)
	}
}

type recordingSurface struct {
	mu     sync.Mutex
	frames [][]uint16
	err    error
}

func (s *recordingSurface) Present(canvas []uint16, w, h int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, append([]uint16(nil), canvas[:w*h]...))
	return nil
}

func (s *recordingSurface) snapshot() [][]uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]uint16(nil), s.frames...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

func isBlank(c []uint16) bool {
	for _, v := range c {
		if v != 0 {
			return false
		}
	}
	return true
}

func newTestConsumer(t *testing.T, flags *state.Flags, cfg Config) (*Consumer, *frame.Slot, *recordingSurface) {
	t.Helper()
	r, err := NewRenderer(pixel.Size{Width: 4, Height: 4}, 0)
	if err != nil {
		t.Fatal(err)
	}
	slot := frame.NewSlot()
	surf := &recordingSurface{}
	cfg.Interval = time.Millisecond
	return NewConsumer(slot, r, surf, flags, cfg), slot, surf
}

func TestConsumerRendersEachFrameOnce(t *testing.T) {
	c, slot, surf := newTestConsumer(t, state.NewFlags(true, false), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	slot.Publish(whiteFrame(4, 4))
	waitFor(t, func() bool { return len(surf.snapshot()) >= 1 })
	time.Sleep(20 * time.Millisecond)

	if n := len(surf.snapshot()); n != 1 {
		t.Errorf("presented %d canvases for one frame, want 1", n)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
	frames := surf.snapshot()
	if !isBlank(frames[len(frames)-1]) {
		t.Error("display not blanked on shutdown")
	}
}

func TestConsumerDisabledBlanksOnce(t *testing.T) {
	flags := state.NewFlags(false, false)
	c, slot, surf := newTestConsumer(t, flags, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	slot.Publish(whiteFrame(4, 4))
	waitFor(t, func() bool { return len(surf.snapshot()) >= 1 })
	time.Sleep(20 * time.Millisecond)

	frames := surf.snapshot()
	if len(frames) != 1 || !isBlank(frames[0]) {
		t.Fatalf("disabled display presented %d canvases", len(frames))
	}
	if !slot.State().Available {
		t.Error("disabled display consumed the frame")
	}

	flags.SetDisplayEnabled(true)
	waitFor(t, func() bool {
		f := surf.snapshot()
		return len(f) >= 2 && !isBlank(f[len(f)-1])
	})
}

func TestConsumerStopsWhenSlotClosed(t *testing.T) {
	c, slot, _ := newTestConsumer(t, state.NewFlags(true, false), Config{})
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	slot.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop on slot close")
	}
}

func TestConsumerPausesWhileClientConnected(t *testing.T) {
	c, _, _ := newTestConsumer(t, state.NewFlags(true, true), Config{PauseOnClient: true})
	bus := events.New()
	unsub := c.Attach(bus)
	defer unsub()

	bus.Publish(events.ClientConnectedEvent{SessionID: "a"})
	waitFor(t, c.Paused)
	bus.Publish(events.ClientDisconnectedEvent{SessionID: "a"})
	waitFor(t, func() bool { return !c.Paused() })
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &recordingSurface{}
	m := Multi{&recordingSurface{err: boom}, ok}
	if err := m.Present(make([]uint16, 4), 2, 2); !errors.Is(err, boom) {
		t.Errorf("Present() = %v, want boom", err)
	}
	if len(ok.snapshot()) != 1 {
		t.Error("later surface skipped after an error")
	}
}

func TestSnapshotPNG(t *testing.T) {
	s := NewSnapshot()
	if err := s.WritePNG(&bytes.Buffer{}); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("WritePNG() before present = %v", err)
	}

	updated := s.Updated()
	canvas := []uint16{0x0000, 0xFFFF, pixel.Gray565(512), 0x0000}
	if err := s.Present(canvas, 2, 2); err != nil {
		t.Fatal(err)
	}
	select {
	case <-updated:
	default:
		t.Error("Updated not signalled")
	}

	var buf bytes.Buffer
	if err := s.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("bounds = %v", b)
	}
	gray, _, _ := s.Gray()
	if gray.Pix[0] != 0 || gray.Pix[1] != 255 || gray.Pix[2] != 130 {
		t.Errorf("gray = %v", gray.Pix)
	}
}
