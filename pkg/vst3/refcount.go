package vst3

import (
	"sync"
	"sync/atomic"
)

// RefCount implements AddRef and Release for Go objects handed to plugins.
// The count starts at one for the creator.
type RefCount struct {
	n atomic.Int32
	// OnFinalRelease runs once when the count drops to zero.
	OnFinalRelease func()

	mu      sync.Mutex
	watches []func()
}

// Init sets the count to one.
func (r *RefCount) Init() { r.n.Store(1) }

// AddRef increments the count.
func (r *RefCount) AddRef() uint32 { return uint32(r.n.Add(1)) }

// Release decrements the count. Releasing past zero is ignored.
func (r *RefCount) Release() uint32 {
	for {
		cur := r.n.Load()
		if cur <= 0 {
			return 0
		}
		if r.n.CompareAndSwap(cur, cur-1) {
			if cur == 1 {
				r.finalRelease()
			}
			return uint32(cur - 1)
		}
	}
}

func (r *RefCount) finalRelease() {
	if r.OnFinalRelease != nil {
		r.OnFinalRelease()
	}
	r.mu.Lock()
	watches := r.watches
	r.watches = nil
	r.mu.Unlock()
	for _, fn := range watches {
		fn()
	}
}

// WatchRelease registers fn to run after OnFinalRelease when the count
// drops to zero.
func (r *RefCount) WatchRelease(fn func()) {
	r.mu.Lock()
	r.watches = append(r.watches, fn)
	r.mu.Unlock()
}

// Count returns the current count.
func (r *RefCount) Count() int32 { return r.n.Load() }
