package wire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		FrameID:     7,
		Width:       1920,
		Height:      1080,
		PixelFormat: 0x30314742,
		Size:        2592000,
		Timestamp:   123456789012345,
		Reserved:    [2]uint32{99, 100},
	}

	b := h.Marshal()
	if len(b) != HeaderSize {
		t.Fatalf("encoded %d bytes, want %d", len(b), HeaderSize)
	}
	if !bytes.Equal(b[:4], []byte{0xEF, 0xBE, 0xAD, 0xDE}) {
		t.Errorf("magic bytes = % x", b[:4])
	}

	got, err := ParseHeader(b)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	want := h
	want.Reserved = [2]uint32{}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	if _, err := ParseHeader(make([]byte, HeaderSize-1)); !errors.Is(err, ErrShortHeader) {
		t.Errorf("expected ErrShortHeader, got %v", err)
	}
	if _, err := ParseHeader(make([]byte, HeaderSize)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

// shortWriter accepts at most n bytes per call.
type shortWriter struct {
	buf    bytes.Buffer
	n      int
	writes int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	w.writes++
	if len(p) > w.n {
		p = p[:w.n]
	}
	return w.buf.Write(p)
}

func TestWriterChunksAndShortWrites(t *testing.T) {
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}

	sw := &shortWriter{n: 7}
	w := NewWriter(sw, 16)
	if err := w.WriteFrame(context.Background(), Header{FrameID: 1, Width: 10, Height: 8}, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	out := sw.buf.Bytes()
	if !bytes.HasPrefix(out, []byte(SyncMarker)) {
		t.Fatalf("missing sync marker")
	}
	h, err := ParseHeader(out[len(SyncMarker):])
	if err != nil {
		t.Fatal(err)
	}
	if h.Size != uint32(len(payload)) {
		t.Errorf("size = %d, want %d", h.Size, len(payload))
	}
	if !bytes.Equal(out[len(SyncMarker)+HeaderSize:], payload) {
		t.Errorf("payload corrupted by short writes")
	}
}

type failWriter struct{ after int }

func (w *failWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, io.ErrClosedPipe
	}
	w.after--
	return len(p), nil
}

func TestWriterErrors(t *testing.T) {
	t.Run("write failure mid payload", func(t *testing.T) {
		w := NewWriter(&failWriter{after: 2}, 4)
		err := w.WriteFrame(context.Background(), Header{}, make([]byte, 32))
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("expected ErrClosedPipe, got %v", err)
		}
	})

	t.Run("zero byte write", func(t *testing.T) {
		w := NewWriter(&shortWriter{n: 0}, 4)
		err := w.WriteFrame(context.Background(), Header{}, []byte{1})
		if !errors.Is(err, io.ErrShortWrite) {
			t.Errorf("expected ErrShortWrite, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		w := NewWriter(io.Discard, 4)
		err := w.WriteFrame(ctx, Header{}, make([]byte, 8))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestReaderResyncs(t *testing.T) {
	var stream bytes.Buffer
	w := NewWriter(&stream, 0)

	stream.WriteString("garbage--MIXO--")
	if err := w.WriteFrame(context.Background(), Header{FrameID: 1, Width: 2, Height: 2}, []byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	stream.WriteString("-")
	if err := w.WriteFrame(context.Background(), Header{FrameID: 2, Width: 2, Height: 2}, []byte{6, 7, 8, 9, 10}); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&stream, 0)
	var buf []byte
	for id := uint32(1); id <= 2; id++ {
		var h Header
		var err error
		h, buf, err = r.ReadFrame(buf)
		if err != nil {
			t.Fatalf("frame %d: %v", id, err)
		}
		if h.FrameID != id {
			t.Errorf("frame id = %d, want %d", h.FrameID, id)
		}
		if len(buf) != 5 || buf[0] != byte(5*(id-1)+1) {
			t.Errorf("frame %d payload = %v", id, buf)
		}
	}
	if r.Skipped != int64(len("garbage--MIXO--")+1) {
		t.Errorf("skipped %d bytes", r.Skipped)
	}

	if _, _, err := r.ReadFrame(buf); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReaderRejectsOversizedPayload(t *testing.T) {
	tests := []struct {
		name    string
		size    uint32
		maxSize int
	}{
		{"over limit", 1000, 10},
		{"near 2^32", 0xFFFFFFF0, 64 << 20},
		{"max uint32", 0xFFFFFFFF, 1 << 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stream bytes.Buffer
			stream.WriteString(SyncMarker)
			stream.Write(Header{Size: tt.size}.Marshal())

			r := NewReader(&stream, tt.maxSize)
			if _, _, err := r.ReadFrame(nil); !errors.Is(err, ErrPayloadTooBig) {
				t.Errorf("expected ErrPayloadTooBig, got %v", err)
			}
		})
	}
}
