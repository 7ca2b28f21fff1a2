package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/mxcamera/internal/wire"
)

func writeFrames(t *testing.T, ids ...uint32) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("stale bytes from a previous frame")
	w := wire.NewWriter(&buf, 4)
	for _, id := range ids {
		payload := []byte{byte(id), 1, 2, 3, 4}
		h := wire.Header{FrameID: id, Width: 4, Height: 1, Size: uint32(len(payload))}
		if err := w.WriteFrame(context.Background(), h, payload); err != nil {
			t.Fatal(err)
		}
	}
	return &buf
}

func TestReceiveCountsGaps(t *testing.T) {
	var out bytes.Buffer
	stats, err := receive(context.Background(), writeFrames(t, 1, 2, 5, 6), receiveOptions{}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Frames != 4 || stats.Gaps != 1 || stats.Lost != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Skipped != int64(len("stale bytes from a previous frame")) {
		t.Errorf("skipped = %d", stats.Skipped)
	}
	if !strings.Contains(out.String(), "frame 5: 2 frames missed") {
		t.Errorf("output = %q", out.String())
	}
}

func TestReceiveCountAndDump(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	stats, err := receive(context.Background(), writeFrames(t, 10, 11, 12), receiveOptions{Count: 2, DumpDir: dir}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Frames != 2 {
		t.Errorf("frames = %d, want 2", stats.Frames)
	}
	data, err := os.ReadFile(filepath.Join(dir, "frame_00000011_4x1.raw"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{11, 1, 2, 3, 4}) {
		t.Errorf("dump = %v", data)
	}
}

func TestObserveWraps(t *testing.T) {
	var s receiveStats
	s.observe(^uint32(0))
	if missed := s.observe(0); missed != 0 || s.Gaps != 0 {
		t.Errorf("wraparound counted as gap: missed=%d gaps=%d", missed, s.Gaps)
	}
}

// packRAW10 packs four 10-bit samples into one group.
func packRAW10(s [4]uint16) []byte {
	var v uint64
	for k, x := range s {
		v |= uint64(x&0x3FF) << (10 * k)
	}
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24), byte(v >> 32)}
}

func TestDecodeToSamples(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "f.raw")
	samples := [4]uint16{0, 1, 512, 1023}
	if err := os.WriteFile(in, packRAW10(samples), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "f.bin")
	degraded, err := decodeFile(in, decodeOptions{Width: 4, Height: 1, Output: out})
	if err != nil || degraded {
		t.Fatalf("decodeFile = %v, %v", degraded, err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8 {
		t.Fatalf("len = %d, want 8", len(data))
	}
	for i, want := range samples {
		if got := binary.LittleEndian.Uint16(data[2*i:]); got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestDecodeToPNG(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "f.raw")
	// 4x2 frame, second row missing.
	if err := os.WriteFile(in, packRAW10([4]uint16{1023, 1023, 1023, 1023}), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "f.png")
	degraded, err := decodeFile(in, decodeOptions{Width: 4, Height: 2, Output: out})
	if err != nil {
		t.Fatal(err)
	}
	if !degraded {
		t.Error("short input not reported")
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 255 {
		t.Errorf("top row = %d, want 255", r>>8)
	}
	if r, _, _, _ := img.At(0, 1).RGBA(); r != 0 {
		t.Errorf("missing row = %d, want 0", r)
	}
}

func TestDecodeRejectsBadSize(t *testing.T) {
	if _, err := decodeFile("unused", decodeOptions{Width: 0, Height: 10}); err == nil {
		t.Error("zero width accepted")
	}
}
