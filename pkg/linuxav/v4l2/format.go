//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// captureBufType picks the buffer type a device should be queried with.
func captureBufType(fd int) uint32 {
	var c capability
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&c)); err != nil {
		return bufTypeVideoCapture
	}
	caps := c.capabilities
	if caps&capDeviceCaps != 0 {
		caps = c.deviceCaps
	}
	if caps&capVideoCapture == 0 && caps&capVideoCaptureMplane != 0 {
		return bufTypeVideoCaptureMplane
	}
	return bufTypeVideoCapture
}

// GetFormats returns all supported pixel formats for a device.
func GetFormats(devicePath string) ([]FormatInfo, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)

	typ := captureBufType(fd)
	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := fmtdesc{index: i, typ: typ}
		if err := ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, unix.EINVAL) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate format %d: %w", i, err)
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			FormatName:  cstr(desc.description[:]),
			Emulated:    desc.flags&fmtFlagEmulated != 0,
		})
	}
	return formats, nil
}

// GetResolutions returns all supported resolutions for a device and pixel format.
func GetResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)

	var resolutions []Resolution
	for i := uint32(0); ; i++ {
		fs := frmsizeenum{index: i, pixelFormat: pixelFormat}
		if err := ioctl(fd, vidiocEnumFramesizes, unsafe.Pointer(&fs)); err != nil {
			if errors.Is(err, unix.EINVAL) {
				break
			}
			// ENOTTY means the driver does not enumerate sizes.
			if errors.Is(err, unix.ENOTTY) {
				return []Resolution{}, nil
			}
			return nil, fmt.Errorf("failed to enumerate frame size %d: %w", i, err)
		}

		switch fs.typ {
		case frmsizeTypeDiscrete:
			resolutions = append(resolutions, Resolution{Width: fs.discrete.width, Height: fs.discrete.height})
		case frmsizeTypeContinuous, frmsizeTypeStepwise:
			return append(resolutions, stepwiseResolutions(&fs)...), nil
		}
	}
	return resolutions, nil
}

// GetFramerates returns the frame intervals for a format and resolution.
func GetFramerates(devicePath string, pixelFormat uint32, width, height uint32) ([]Framerate, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)

	var rates []Framerate
	for i := uint32(0); ; i++ {
		fi := frmivalenum{index: i, pixelFormat: pixelFormat, width: width, height: height}
		if err := ioctl(fd, vidiocEnumFrameintervals, unsafe.Pointer(&fi)); err != nil {
			if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOTTY) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate frame interval %d: %w", i, err)
		}
		switch fi.typ {
		case frmivalTypeDiscrete:
			rates = append(rates, Framerate{Numerator: fi.discrete.numerator, Denominator: fi.discrete.denominator})
		case frmivalTypeContinuous, frmivalTypeStepwise:
			return rates, nil
		}
	}
	return rates, nil
}

// stepwiseResolutions returns the sensor-friendly sizes inside a stepwise range.
func stepwiseResolutions(fs *frmsizeenum) []Resolution {
	candidates := [][2]uint32{
		{320, 240},
		{640, 480},
		{1280, 720},
		{1280, 960},
		{1920, 1080},
		{2592, 1944},
		{3840, 2160},
		{4096, 3072},
	}

	// stepwise overlays discrete in the kernel union
	sw := (*frmsizeStepwise)(unsafe.Pointer(&fs.discrete))

	var out []Resolution
	for _, c := range candidates {
		w, h := c[0], c[1]
		if w >= sw.minWidth && w <= sw.maxWidth && h >= sw.minHeight && h <= sw.maxHeight {
			out = append(out, Resolution{Width: w, Height: h})
		}
	}
	return out
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	return string([]byte{
		byte(format),
		byte(format >> 8),
		byte(format >> 16),
		byte(format >> 24),
	})
}

// ParseFourCC converts a four character code such as "BG10" to its value.
func ParseFourCC(s string) (uint32, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("fourcc %q must be 4 characters", s)
	}
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24, nil
}
