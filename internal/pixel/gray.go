package pixel

// Gray565 maps a 10-bit sample to an RGB565 gray pixel. The top 8 bits of
// the sample feed 5 bits of red, 6 of green and 5 of blue.
func Gray565(s uint16) uint16 {
	g := uint16(uint8(s >> 2))
	return (g>>3)<<11 | (g>>2)<<5 | g>>3
}

// EncodeGray565 converts samples to RGB565 in place of dst.
// dst and src may be the same slice.
func EncodeGray565(dst, src []uint16) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = Gray565(src[i])
	}
}
