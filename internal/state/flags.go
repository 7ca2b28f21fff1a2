// Package state holds the runtime toggles shared by the pipeline loops.
package state

import (
	"sync"
	"sync/atomic"
)

// Flags are the runtime switches read on every loop iteration. Reads are
// lock-free; writers also wake anyone waiting on Changed.
type Flags struct {
	displayEnabled atomic.Bool
	tcpEnabled     atomic.Bool

	mu      sync.Mutex
	changed chan struct{}
}

// NewFlags returns flags with the given initial values.
func NewFlags(displayEnabled, tcpEnabled bool) *Flags {
	f := &Flags{changed: make(chan struct{})}
	f.displayEnabled.Store(displayEnabled)
	f.tcpEnabled.Store(tcpEnabled)
	return f
}

// DisplayEnabled reports whether the LCD consumer should render.
func (f *Flags) DisplayEnabled() bool { return f.displayEnabled.Load() }

// TCPEnabled reports whether the network consumer should serve clients.
func (f *Flags) TCPEnabled() bool { return f.tcpEnabled.Load() }

// SetDisplayEnabled updates the display toggle. It returns true if the
// value changed.
func (f *Flags) SetDisplayEnabled(v bool) bool {
	if f.displayEnabled.Swap(v) == v {
		return false
	}
	f.notify()
	return true
}

// SetTCPEnabled updates the TCP toggle. It returns true if the value changed.
func (f *Flags) SetTCPEnabled(v bool) bool {
	if f.tcpEnabled.Swap(v) == v {
		return false
	}
	f.notify()
	return true
}

// Changed returns a channel closed at the next toggle change.
func (f *Flags) Changed() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changed
}

func (f *Flags) notify() {
	f.mu.Lock()
	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()
}
