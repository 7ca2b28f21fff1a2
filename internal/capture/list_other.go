//go:build !linux

package capture

import "errors"

// ListDevices is only supported on Linux.
func ListDevices() ([]DeviceSummary, error) {
	return nil, errors.New("V4L2 devices are only available on Linux")
}
