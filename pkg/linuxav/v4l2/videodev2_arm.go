//go:build linux && arm && !arm64

package v4l2

import "unsafe"

// Compile-time struct size assertions for 32-bit ARM.
var (
	_ [104]byte = [unsafe.Sizeof(capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(fmtdesc{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(frmsizeenum{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(frmivalenum{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(requestBuffers{})]byte{}
	_ [48]byte  = [unsafe.Sizeof(pixFormat{})]byte{}
	_ [192]byte = [unsafe.Sizeof(pixFormatMplane{})]byte{}
	_ [204]byte = [unsafe.Sizeof(format{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(buffer{})]byte{}
	_ [60]byte  = [unsafe.Sizeof(plane{})]byte{}
)

// IOCTL numbers for 32-bit ARM. struct v4l2_buffer shrinks with the 8 byte
// timeval and 4 byte pointer union, struct v4l2_format loses its padding.
const (
	vidiocGFmt     = 0xc0cc5604
	vidiocSFmt     = 0xc0cc5605
	vidiocQuerybuf = 0xc0445609
	vidiocQbuf     = 0xc044560f
	vidiocDqbuf    = 0xc0445611
)

// format has size 204 bytes.
type format struct {
	typ uint32
	fmt [200]byte
}

// buffer has size 68 bytes.
type buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	tsSec     int32
	tsUsec    int32
	timecode  [16]byte
	sequence  uint32
	memory    uint32
	m         uint32 // union of offset, userptr, planes, fd
	length    uint32
	reserved2 uint32
	requestFD int32
}

// plane has size 60 bytes.
type plane struct {
	bytesused  uint32
	length     uint32
	m          uint32
	dataOffset uint32
	reserved   [11]uint32
}

func (b *buffer) timestampNs() uint64 {
	return uint64(b.tsSec)*1e9 + uint64(b.tsUsec)*1e3
}

func (b *buffer) offset() uint32 { return b.m }

func (b *buffer) setPlanes(p *plane, n int) {
	b.m = uint32(uintptr(unsafe.Pointer(p)))
	b.length = uint32(n)
}

func (p *plane) offset() uint32 { return p.m }
