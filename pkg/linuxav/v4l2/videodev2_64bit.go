//go:build linux && (amd64 || arm64)

package v4l2

import "unsafe"

// Compile-time struct size assertions.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [104]byte = [unsafe.Sizeof(capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(fmtdesc{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(frmsizeenum{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(frmivalenum{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(requestBuffers{})]byte{}
	_ [48]byte  = [unsafe.Sizeof(pixFormat{})]byte{}
	_ [192]byte = [unsafe.Sizeof(pixFormatMplane{})]byte{}
	_ [208]byte = [unsafe.Sizeof(format{})]byte{}
	_ [88]byte  = [unsafe.Sizeof(buffer{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(plane{})]byte{}
)

// IOCTL numbers whose argument size differs on 32-bit ARM.
const (
	vidiocGFmt     = 0xc0d05604
	vidiocSFmt     = 0xc0d05605
	vidiocQuerybuf = 0xc0585609
	vidiocQbuf     = 0xc058560f
	vidiocDqbuf    = 0xc0585611
)

// format has size 208 bytes; the kernel union is 8-byte aligned.
type format struct {
	typ uint32
	_   uint32
	fmt [200]byte
}

// buffer has size 88 bytes.
type buffer struct {
	index     uint32   // offset 0
	typ       uint32   // offset 4
	bytesused uint32   // offset 8
	flags     uint32   // offset 12
	field     uint32   // offset 16
	_         uint32   // padding
	tsSec     int64    // offset 24
	tsUsec    int64    // offset 32
	timecode  [16]byte // offset 40
	sequence  uint32   // offset 56
	memory    uint32   // offset 60
	m         uint64   // offset 64, union of offset, userptr, planes, fd
	length    uint32   // offset 72
	reserved2 uint32   // offset 76
	requestFD int32    // offset 80
	_         uint32   // padding
}

// plane has size 64 bytes.
type plane struct {
	bytesused  uint32
	length     uint32
	m          uint64
	dataOffset uint32
	reserved   [11]uint32
}

func (b *buffer) timestampNs() uint64 {
	return uint64(b.tsSec)*1e9 + uint64(b.tsUsec)*1e3
}

func (b *buffer) offset() uint32 { return uint32(b.m) }

func (b *buffer) setPlanes(p *plane, n int) {
	b.m = uint64(uintptr(unsafe.Pointer(p)))
	b.length = uint32(n)
}

func (p *plane) offset() uint32 { return uint32(p.m) }
