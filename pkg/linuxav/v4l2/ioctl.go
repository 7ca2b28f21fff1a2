//go:build linux

package v4l2

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl issues a V4L2 request, retrying when interrupted by a signal.
func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
		if errno == 0 {
			return nil
		}
		if !errors.Is(errno, unix.EINTR) {
			return errno
		}
	}
}

func openDevice(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
}

func closeDevice(fd int) error {
	return unix.Close(fd)
}
