//go:build !linux

package frame

import "time"

// Monotonic returns nanoseconds since process start.
func Monotonic() uint64 {
	return uint64(time.Since(processStart))
}
