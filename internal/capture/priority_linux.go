//go:build linux

package capture

import "golang.org/x/sys/unix"

// setRealtimePriority switches the calling thread to SCHED_FIFO.
// The caller must hold runtime.LockOSThread.
func setRealtimePriority(priority int) error {
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	return unix.SchedSetAttr(0, &attr, 0)
}
