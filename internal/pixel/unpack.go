// Package pixel turns packed RAW10 sensor data into an RGB565 grayscale
// canvas for the LCD. All functions operate on caller-owned buffers.
package pixel

const (
	// GroupBytes is the size of one packed RAW10 group.
	GroupBytes = 5
	// GroupSamples is the number of 10-bit samples in one group.
	GroupSamples = 4
	// MaxSample is the largest 10-bit sample value.
	MaxSample = 1023
)

// PackedSize returns the number of bytes a width x height RAW10 frame occupies.
func PackedSize(width, height int) int {
	n := width * height
	return (n + GroupSamples - 1) / GroupSamples * GroupBytes
}

// Unpack decodes a packed RAW10 buffer into width*height 16-bit samples.
//
// Every 5 byte group is read as a 40-bit little-endian integer; sample k of
// the group is bits [10k, 10k+10). When raw holds fewer samples than
// requested the remaining positions of dst are zeroed and degraded is true.
// dst must hold at least width*height elements.
func Unpack(dst []uint16, raw []byte, width, height int) (degraded bool, err error) {
	if len(raw) == 0 || len(raw)%GroupBytes != 0 {
		return false, ErrInvalidRawSize
	}
	if width <= 0 || height <= 0 {
		return false, ErrInvalidDimensions
	}
	total := width * height
	if len(dst) < total {
		return false, ErrInvalidDimensions
	}

	available := len(raw) / GroupBytes * GroupSamples
	n := min(total, available)

	full := n / GroupSamples
	for g := range full {
		b := raw[g*GroupBytes : g*GroupBytes+GroupBytes : g*GroupBytes+GroupBytes]
		v := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 | uint64(b[4])<<32
		o := dst[g*GroupSamples : g*GroupSamples+GroupSamples : g*GroupSamples+GroupSamples]
		o[0] = uint16(v & 0x3FF)
		o[1] = uint16(v >> 10 & 0x3FF)
		o[2] = uint16(v >> 20 & 0x3FF)
		o[3] = uint16(v >> 30 & 0x3FF)
	}

	// Trailing samples of a group that is only partly needed.
	if rest := n - full*GroupSamples; rest > 0 {
		b := raw[full*GroupBytes : full*GroupBytes+GroupBytes]
		v := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 | uint64(b[4])<<32
		for k := range rest {
			dst[full*GroupSamples+k] = uint16(v >> (10 * k) & 0x3FF)
		}
	}

	if n < total {
		clear(dst[n:total])
		return true, nil
	}
	return false, nil
}
