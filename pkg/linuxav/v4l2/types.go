//go:build linux

package v4l2

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Driver     string
	Caps       uint32
}

// Multiplanar reports whether the device only supports the multi-planar API.
func (d DeviceInfo) Multiplanar() bool {
	return d.Caps&capVideoCaptureMplane != 0 && d.Caps&capVideoCapture == 0
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

// Resolution represents a supported video resolution.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Framerate represents a supported frame interval as a fraction.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the framerate as frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// Capability flags.
const (
	capVideoCapture       = 0x00000001
	capVideoCaptureMplane = 0x00001000
	capStreaming          = 0x04000000
	capDeviceCaps         = 0x80000000
)

// Format flags.
const (
	fmtFlagEmulated = 0x0002
)

// Pixel formats used by the camera.
const (
	// PixFmtSBGGR10 is 10-bit Bayer BGGR ('BG10').
	PixFmtSBGGR10 uint32 = 0x30314742
	// PixFmtSBGGR10P is 10-bit Bayer BGGR packed 4 pixels in 5 bytes ('pBAA').
	PixFmtSBGGR10P uint32 = 0x41414270
	// PixFmtGREY is 8-bit luma ('GREY').
	PixFmtGREY uint32 = 0x59455247
	// PixFmtYUYV is packed YUV 4:2:2 ('YUYV').
	PixFmtYUYV uint32 = 0x56595559
)

// Frame size types.
const (
	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3
)

// Frame interval types.
const (
	frmivalTypeDiscrete   = 1
	frmivalTypeContinuous = 2
	frmivalTypeStepwise   = 3
)

// Buffer types and memory models.
const (
	bufTypeVideoCapture       = 1
	bufTypeVideoCaptureMplane = 9
	memoryMmap                = 1
	fieldNone                 = 1
)
