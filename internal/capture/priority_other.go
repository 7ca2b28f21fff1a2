//go:build !linux

package capture

import "errors"

func setRealtimePriority(int) error {
	return errors.New("realtime scheduling requires linux")
}
