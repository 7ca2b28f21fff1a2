package wire

import (
	"context"
	"io"
)

// Writer emits wire frames onto an underlying stream.
type Writer struct {
	w     io.Writer
	chunk int
	head  []byte
}

// NewWriter returns a Writer that sends payloads in writes of at most
// chunkSize bytes. A non-positive chunkSize selects DefaultChunkSize.
func NewWriter(w io.Writer, chunkSize int) *Writer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	head := make([]byte, len(SyncMarker)+HeaderSize)
	copy(head, SyncMarker)
	return &Writer{w: w, chunk: chunkSize, head: head}
}

// WriteFrame sends the sync marker, the header and the payload. The header
// Size field is set from the payload length. The context is checked
// between chunks; a cancelled context aborts the frame mid-payload.
func (w *Writer) WriteFrame(ctx context.Context, h Header, payload []byte) error {
	h.Size = uint32(len(payload))
	h.MarshalTo(w.head[len(SyncMarker):])
	if err := writeFull(w.w, w.head); err != nil {
		return err
	}

	for off := 0; off < len(payload); {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(off+w.chunk, len(payload))
		if err := writeFull(w.w, payload[off:end]); err != nil {
			return err
		}
		off = end
	}
	return nil
}

// writeFull resumes after short writes until b is fully written.
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n <= 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
