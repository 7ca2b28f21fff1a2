package pixel

import "fmt"

// DefaultMaxPixels bounds a single buffer to a 4096x4096 frame.
const DefaultMaxPixels = 4096 * 4096

// Pool is a grow-only sample buffer. It is owned by a single goroutine.
type Pool struct {
	buf       []uint16
	maxPixels int
}

// NewPool returns a pool that refuses requests above maxPixels.
// A non-positive maxPixels selects DefaultMaxPixels.
func NewPool(maxPixels int) *Pool {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Pool{maxPixels: maxPixels}
}

// EnsureCapacity returns a slice of exactly n samples backed by the pool.
// The backing array grows when needed and is never shrunk. Contents are
// not cleared.
func (p *Pool) EnsureCapacity(n int) ([]uint16, error) {
	if n <= 0 {
		return nil, ErrInvalidDimensions
	}
	if n > p.maxPixels {
		return nil, fmt.Errorf("%w: %d samples requested, limit %d", ErrAllocation, n, p.maxPixels)
	}
	if cap(p.buf) < n {
		p.buf = make([]uint16, n)
	}
	return p.buf[:n], nil
}

// Cap returns the current capacity in samples.
func (p *Pool) Cap() int {
	return cap(p.buf)
}
