package photo

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/frame"
)

type recordingBus struct{ got []events.Event }

func (b *recordingBus) Publish(ev events.Event) { b.got = append(b.got, ev) }

func fixedNow() time.Time { return time.Date(2025, 1, 27, 10, 30, 0, 0, time.Local) }

func TestCaptureWritesSamples(t *testing.T) {
	dir := t.TempDir()
	slot := frame.NewSlot()
	// A stale frame must not be saved.
	slot.Publish(frame.New(make([]byte, 5), 4, 1, 0, 0, nil))

	bus := &recordingBus{}
	s := NewSaver(slot, dir, time.Second, bus)
	s.now = fixedNow

	go func() {
		time.Sleep(20 * time.Millisecond)
		slot.Publish(frame.New([]byte{0xFF, 0x03, 0, 0, 0}, 4, 1, 0, 0, nil))
	}()

	res, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() = %v", err)
	}
	want := filepath.Join(dir, "2025-01-27_10-30-00_4x1_16bit.bin")
	if res.Path != want {
		t.Errorf("path = %s, want %s", res.Path, want)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8 || res.Bytes != 8 {
		t.Fatalf("wrote %d bytes (reported %d), want 8", len(data), res.Bytes)
	}
	if v := binary.LittleEndian.Uint16(data); v != 1023 {
		t.Errorf("first sample = %d, want 1023", v)
	}

	if len(bus.got) != 1 {
		t.Fatalf("events = %d, want 1", len(bus.got))
	}
	if ev, ok := bus.got[0].(events.PhotoSavedEvent); !ok || ev.Path != want {
		t.Errorf("event = %+v", bus.got[0])
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, temp file left behind?", len(entries))
	}
}

func TestCaptureTimesOut(t *testing.T) {
	s := NewSaver(frame.NewSlot(), t.TempDir(), 20*time.Millisecond, nil)
	if _, err := s.Capture(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Capture() = %v, want ErrNoFrame", err)
	}
}

func TestCaptureSameSecondGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	slot := frame.NewSlot()
	s := NewSaver(slot, dir, time.Second, nil)
	s.now = fixedNow

	var paths []string
	for range 2 {
		go func() {
			time.Sleep(10 * time.Millisecond)
			slot.Publish(frame.New(make([]byte, 5), 4, 1, 0, 0, nil))
		}()
		res, err := s.Capture(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		paths = append(paths, res.Path)
	}
	if paths[1] != filepath.Join(dir, "2025-01-27_10-30-00_4x1_16bit-2.bin") {
		t.Errorf("second path = %s", paths[1])
	}
}
