package pixel

// Scale resizes src (srcW x srcH) into dst (dstW x dstH) by nearest neighbour.
// Source coordinates are floor(d * srcDim / dstDim), clamped to the last
// row and column. Sizes that match copy src unchanged.
func Scale(dst, src []uint16, srcW, srcH, dstW, dstH int) error {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return ErrInvalidDimensions
	}
	if len(src) < srcW*srcH || len(dst) < dstW*dstH {
		return ErrInvalidDimensions
	}

	if srcW == dstW && srcH == dstH {
		copy(dst, src[:srcW*srcH])
		return nil
	}

	for y := range dstH {
		sy := min(y*srcH/dstH, srcH-1)
		srow := src[sy*srcW : sy*srcW+srcW]
		drow := dst[y*dstW : y*dstW+dstW]
		for x := range dstW {
			drow[x] = srow[min(x*srcW/dstW, srcW-1)]
		}
	}
	return nil
}
