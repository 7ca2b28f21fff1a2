package pixel

import "errors"

var (
	// ErrInvalidRawSize is returned when a packed RAW10 buffer is empty or
	// its length is not a multiple of the 5 byte group size.
	ErrInvalidRawSize = errors.New("invalid raw10 buffer size")

	// ErrInvalidDimensions is returned for zero or negative widths and heights,
	// or for buffers too short to hold the requested dimensions.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrAllocation is returned when a buffer would exceed the pool budget.
	ErrAllocation = errors.New("buffer allocation exceeds budget")
)
