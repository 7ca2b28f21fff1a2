//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"
)

// FindDevices finds all V4L2 video capture devices on the system, single
// or multi-planar.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir("/sys/class/video4linux")
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	var devices []DeviceInfo
	for _, entry := range entries {
		devicePath := "/dev/" + entry.Name()

		info, err := QueryDevice(devicePath)
		if err != nil {
			slog.With("component", "linuxav").Debug("skipping video device", "path", devicePath, "error", err)
			continue
		}
		if info.Caps&(capVideoCapture|capVideoCaptureMplane) == 0 {
			continue
		}

		indexValue := readSysfsInt(filepath.Join("/sys/class/video4linux", entry.Name(), "index"))
		info.DeviceID = findStableID(entry.Name(), indexValue)
		if info.DeviceID == "" {
			info.DeviceID = fmt.Sprintf("platform-%s-video-index%d", info.Driver, indexValue)
		}
		devices = append(devices, info)
	}

	return devices, nil
}

// QueryDevice reads the capabilities of a single device node.
func QueryDevice(devicePath string) (DeviceInfo, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer closeDevice(fd)

	var c capability
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&c)); err != nil {
		return DeviceInfo{}, fmt.Errorf("VIDIOC_QUERYCAP %s: %w", devicePath, err)
	}

	caps := c.capabilities
	if caps&capDeviceCaps != 0 {
		caps = c.deviceCaps
	}
	return DeviceInfo{
		DevicePath: devicePath,
		DeviceName: cstr(c.card[:]),
		Driver:     cstr(c.driver[:]),
		Caps:       caps,
	}, nil
}

// findStableID looks for a stable ID symlink in /dev/v4l/by-id/.
func findStableID(deviceName string, indexValue int) string {
	const byIDDir = "/dev/v4l/by-id"
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	suffix := fmt.Sprintf("-video-index%d", indexValue)
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		target, err := os.Readlink(filepath.Join(byIDDir, entry.Name()))
		if err != nil {
			continue
		}
		if filepath.Base(target) == deviceName {
			return entry.Name()
		}
	}
	return ""
}

func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
