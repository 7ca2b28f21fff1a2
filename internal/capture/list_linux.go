//go:build linux

package capture

import (
	"fmt"

	"github.com/smazurov/mxcamera/pkg/linuxav/v4l2"
)

// ListDevices enumerates V4L2 capture devices with their formats and sizes.
// A device whose formats cannot be read is still listed without them.
func ListDevices() ([]DeviceSummary, error) {
	infos, err := v4l2.FindDevices()
	if err != nil {
		return nil, fmt.Errorf("find devices: %w", err)
	}

	out := make([]DeviceSummary, 0, len(infos))
	for _, info := range infos {
		dev := DeviceSummary{
			Path:   info.DevicePath,
			Name:   info.DeviceName,
			ID:     info.DeviceID,
			Driver: info.Driver,
		}
		formats, err := v4l2.GetFormats(info.DevicePath)
		if err == nil {
			for _, f := range formats {
				fs := FormatSummary{
					FourCC:   v4l2.FormatFourCC(f.PixelFormat),
					Name:     f.FormatName,
					Emulated: f.Emulated,
				}
				if sizes, err := v4l2.GetResolutions(info.DevicePath, f.PixelFormat); err == nil {
					for _, s := range sizes {
						fs.Sizes = append(fs.Sizes, FrameSize{Width: int(s.Width), Height: int(s.Height)})
					}
				}
				dev.Formats = append(dev.Formats, fs)
			}
		}
		out = append(out, dev)
	}
	return out, nil
}
