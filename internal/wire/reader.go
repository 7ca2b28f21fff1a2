package wire

import (
	"bufio"
	"fmt"
	"io"
)

// Reader parses wire frames, skipping any bytes before a sync marker.
type Reader struct {
	r       *bufio.Reader
	window  []byte
	maxSize int
	// Skipped counts bytes discarded while searching for a marker.
	Skipped int64
}

// NewReader wraps r. Payloads larger than maxPayload are rejected; a
// non-positive value selects MaxPayload.
func NewReader(r io.Reader, maxPayload int) *Reader {
	if maxPayload <= 0 {
		maxPayload = MaxPayload
	}
	return &Reader{
		r:       bufio.NewReaderSize(r, 64<<10),
		window:  make([]byte, 0, len(SyncMarker)),
		maxSize: maxPayload,
	}
}

// ReadFrame reads the next frame. The payload is stored in buf, which is
// grown if needed; the returned slice aliases it.
func (r *Reader) ReadFrame(buf []byte) (Header, []byte, error) {
	if err := r.sync(); err != nil {
		return Header{}, buf, err
	}

	var hb [HeaderSize]byte
	if _, err := io.ReadFull(r.r, hb[:]); err != nil {
		return Header{}, buf, err
	}
	h, err := ParseHeader(hb[:])
	if err != nil {
		return Header{}, buf, err
	}
	// Compared as uint64 so a size near 2^32 cannot wrap on 32-bit ARM.
	if uint64(h.Size) > uint64(r.maxSize) {
		return h, buf, fmt.Errorf("%w: %d bytes", ErrPayloadTooBig, h.Size)
	}

	if cap(buf) < int(h.Size) {
		buf = make([]byte, h.Size)
	}
	buf = buf[:h.Size]
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return h, buf, err
	}
	return h, buf, nil
}

// sync consumes bytes until the last len(SyncMarker) read equal the marker.
func (r *Reader) sync() error {
	r.window = r.window[:0]
	for {
		c, err := r.r.ReadByte()
		if err != nil {
			return err
		}
		if len(r.window) == len(SyncMarker) {
			copy(r.window, r.window[1:])
			r.window = r.window[:len(SyncMarker)-1]
			r.Skipped++
		}
		r.window = append(r.window, c)
		if len(r.window) == len(SyncMarker) && string(r.window) == SyncMarker {
			return nil
		}
	}
}
