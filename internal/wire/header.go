// Package wire implements the raw frame stream protocol: an ASCII sync
// marker, a fixed little-endian header, then the packed payload.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// SyncMarker precedes every header so clients can resynchronize.
	SyncMarker = "---MIXOSENSE---FRAME---"
	// HeaderSize is the encoded header length: six 32-bit words, a 64-bit
	// timestamp and two reserved 32-bit words, packed.
	HeaderSize = 40
	// Magic identifies a valid header.
	Magic uint32 = 0xDEADBEEF
	// DefaultChunkSize is the largest single write of payload bytes.
	DefaultChunkSize = 1 << 20
	// MaxPayload bounds the size a reader will accept.
	MaxPayload = 64 << 20
)

var (
	ErrBadMagic      = errors.New("bad header magic")
	ErrShortHeader   = errors.New("short header")
	ErrPayloadTooBig = errors.New("payload exceeds limit")
)

// Header describes one frame on the wire.
type Header struct {
	FrameID     uint32
	Width       uint32
	Height      uint32
	PixelFormat uint32
	Size        uint32
	Timestamp   uint64
	Reserved    [2]uint32
}

// MarshalTo encodes h into b, which must hold HeaderSize bytes. Reserved
// words are always written as zero.
func (h Header) MarshalTo(b []byte) {
	_ = b[HeaderSize-1]
	binary.LittleEndian.PutUint32(b[0:], Magic)
	binary.LittleEndian.PutUint32(b[4:], h.FrameID)
	binary.LittleEndian.PutUint32(b[8:], h.Width)
	binary.LittleEndian.PutUint32(b[12:], h.Height)
	binary.LittleEndian.PutUint32(b[16:], h.PixelFormat)
	binary.LittleEndian.PutUint32(b[20:], h.Size)
	binary.LittleEndian.PutUint64(b[24:], h.Timestamp)
	binary.LittleEndian.PutUint32(b[32:], 0)
	binary.LittleEndian.PutUint32(b[36:], 0)
}

// Marshal returns the encoded header.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	h.MarshalTo(b)
	return b
}

// ParseHeader decodes a header and checks its magic.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	if m := binary.LittleEndian.Uint32(b[0:]); m != Magic {
		return Header{}, fmt.Errorf("%w: %#08x", ErrBadMagic, m)
	}
	return Header{
		FrameID:     binary.LittleEndian.Uint32(b[4:]),
		Width:       binary.LittleEndian.Uint32(b[8:]),
		Height:      binary.LittleEndian.Uint32(b[12:]),
		PixelFormat: binary.LittleEndian.Uint32(b[16:]),
		Size:        binary.LittleEndian.Uint32(b[20:]),
		Timestamp:   binary.LittleEndian.Uint64(b[24:]),
		Reserved: [2]uint32{
			binary.LittleEndian.Uint32(b[32:]),
			binary.LittleEndian.Uint32(b[36:]),
		},
	}, nil
}
