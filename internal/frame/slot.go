package frame

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by waits on a closed slot.
	ErrClosed = errors.New("frame slot closed")
	// ErrWaitTimeout is returned when no newer frame arrived in time.
	ErrWaitTimeout = errors.New("timed out waiting for frame")
)

// Result is the outcome of a non-blocking consume attempt.
type Result int

const (
	// Consumed means the callback ran on a fresh frame.
	Consumed Result = iota
	// Empty means the slot holds no frame that has not been consumed.
	Empty
	// Skipped means the slot was busy and the caller did not wait.
	Skipped
	// Closed means the slot has been shut down.
	Closed
)

func (r Result) String() string {
	switch r {
	case Consumed:
		return "consumed"
	case Empty:
		return "empty"
	case Skipped:
		return "skipped"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Slot holds the most recent frame. Publishing replaces the previous frame
// instead of queueing; readers only ever observe the latest one.
//
// Waiters block on a generation channel that is closed and replaced on
// every publish and on Close, which lets them also select on a context
// and a timer.
type Slot struct {
	mu        sync.Mutex
	cur       *Frame
	available bool
	seq       uint64
	closed    bool
	notify    chan struct{}
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{notify: make(chan struct{})}
}

// Publish stores f as the current frame, marks it available and wakes all
// waiters. The frame it replaces is released. Publishing to a closed slot
// releases f and returns false.
func (s *Slot) Publish(f *Frame) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		f.Release()
		return false
	}
	// The superseded buffer goes back to the device before f becomes visible.
	s.cur.Release()
	s.seq++
	f.Sequence = s.seq
	s.cur = f
	s.available = true
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()
	return true
}

// TryConsume runs fn on the current frame if the lock is free and a fresh
// frame is available, then clears the available flag. It never blocks.
// fn runs with the slot locked and must copy what it needs out of the frame.
func (s *Slot) TryConsume(fn func(*Frame)) Result {
	if !s.mu.TryLock() {
		return Skipped
	}
	defer s.mu.Unlock()

	if s.closed {
		return Closed
	}
	if !s.available || s.cur == nil {
		return Empty
	}
	fn(s.cur)
	s.available = false
	return Consumed
}

// WaitBorrow blocks until the slot holds a frame with a sequence greater
// than after, then runs fn on it with the slot locked. It does not touch the
// available flag. It returns ErrWaitTimeout, ErrClosed or the context error
// when no such frame shows up.
func (s *Slot) WaitBorrow(ctx context.Context, after uint64, timeout time.Duration, fn func(*Frame)) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		if s.cur != nil && s.cur.Sequence > after {
			fn(s.cur)
			s.mu.Unlock()
			return nil
		}
		wait := s.notify
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrWaitTimeout
		}
	}
}

// Close releases the held frame and wakes every waiter. Further publishes
// are rejected. Close is idempotent.
func (s *Slot) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	prev := s.cur
	s.cur = nil
	s.available = false
	close(s.notify)
	s.mu.Unlock()

	prev.Release()
}

// State describes the slot at one instant.
type State struct {
	Sequence  uint64
	Available bool
	HasFrame  bool
	Closed    bool
}

// State returns a snapshot of the slot. It blocks briefly for the lock.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Sequence:  s.seq,
		Available: s.available,
		HasFrame:  s.cur != nil,
		Closed:    s.closed,
	}
}
