//go:build linux

package v4l2

// Structures whose layout is identical on 32 and 64-bit kernels.

// IOCTL numbers that do not depend on pointer or time_t size.
const (
	vidiocQuerycap           = 0x80685600
	vidiocEnumFmt            = 0xc0405602
	vidiocReqbufs            = 0xc0145608
	vidiocStreamon           = 0x40045612
	vidiocStreamoff          = 0x40045613
	vidiocEnumFramesizes     = 0xc02c564a
	vidiocEnumFrameintervals = 0xc034564b
)

// capability has size 104 bytes.
type capability struct {
	driver       [16]byte  // offset 0
	card         [32]byte  // offset 16
	busInfo      [32]byte  // offset 48
	version      uint32    // offset 80
	capabilities uint32    // offset 84
	deviceCaps   uint32    // offset 88
	reserved     [3]uint32 // offset 92
}

// fmtdesc has size 64 bytes.
type fmtdesc struct {
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelformat uint32
	mbusCode    uint32
	reserved    [3]uint32
}

type frmsizeDiscrete struct {
	width  uint32
	height uint32
}

type frmsizeStepwise struct {
	minWidth   uint32
	maxWidth   uint32
	stepWidth  uint32
	minHeight  uint32
	maxHeight  uint32
	stepHeight uint32
}

// frmsizeenum has size 44 bytes.
type frmsizeenum struct {
	index       uint32
	pixelFormat uint32
	typ         uint32
	discrete    frmsizeDiscrete // union with stepwise
	_           [16]byte
	reserved    [2]uint32
}

type fract struct {
	numerator   uint32
	denominator uint32
}

// frmivalenum has size 52 bytes.
type frmivalenum struct {
	index       uint32
	pixelFormat uint32
	width       uint32
	height      uint32
	typ         uint32
	discrete    fract // union with stepwise
	_           [16]byte
	reserved    [2]uint32
}

// requestBuffers has size 20 bytes.
type requestBuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

// pixFormat has size 48 bytes.
type pixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// planePixFormat has size 20 bytes.
type planePixFormat struct {
	sizeimage    uint32
	bytesperline uint32
	reserved     [6]uint16
}

// pixFormatMplane has size 192 bytes.
type pixFormatMplane struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	colorspace   uint32
	planeFmt     [8]planePixFormat
	numPlanes    uint8
	flags        uint8
	ycbcrEnc     uint8
	quantization uint8
	xferFunc     uint8
	reserved     [7]uint8
}
