package automation

import (
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/metrics"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// InputExchange hands parameter edits from the control side to the audio
// thread. Edits accumulate in one set until the audio thread takes it at
// the start of a block.
type InputExchange struct {
	mu    sync.Mutex
	slot  atomic.Pointer[Changes]
	pool  *Pool
	empty *Changes
}

// NewInputExchange creates an exchange drawing sets from pool.
func NewInputExchange(pool *Pool) *InputExchange {
	return &InputExchange{pool: pool, empty: NewChanges(0, 0)}
}

// Add records an edit. Safe for concurrent producers; never blocks the
// audio thread.
func (x *InputExchange) Add(id vst3.ParamID, offset int32, value vst3.ParamValue) {
	x.mu.Lock()
	defer x.mu.Unlock()
	c := x.slot.Swap(nil)
	if c == nil {
		c = x.pool.Get()
	}
	c.Add(id, offset, value)
	x.slot.Store(c)
}

// Take removes the accumulated set. With nothing pending it returns the
// shared empty set, for which IsEmptySet reports true.
func (x *InputExchange) Take() *Changes {
	if c := x.slot.Swap(nil); c != nil {
		return c
	}
	return x.empty
}

// IsEmptySet reports whether c is the shared "no changes" set.
func (x *InputExchange) IsEmptySet(c *Changes) bool { return c == x.empty }

// Recycle returns a consumed set to the pool.
func (x *InputExchange) Recycle(c *Changes) {
	if c == x.empty {
		c.Clear()
		return
	}
	x.pool.Put(c)
}

// Pending reports whether edits are waiting for the next block.
func (x *InputExchange) Pending() bool { return x.slot.Load() != nil }

// OutputExchange hands output automation from the audio thread to the
// control side. At most one set is in flight: the audio thread keeps
// writing into its pending set across blocks until it can publish it, and
// starts a fresh set only after the control side has claimed the previous
// one. Edits of several blocks may therefore reach the control side as
// one coalesced set.
type OutputExchange struct {
	pending *Changes
	outbox  atomic.Pointer[Changes]
	free    chan *Changes
	notify  chan struct{}
}

// NewOutputExchange preallocates the three sets the exchange cycles
// through: pending, published and claimed.
func NewOutputExchange(queueCap, pointCap int) *OutputExchange {
	x := &OutputExchange{
		pending: NewChanges(queueCap, pointCap),
		free:    make(chan *Changes, 2),
		notify:  make(chan struct{}, 1),
	}
	x.free <- NewChanges(queueCap, pointCap)
	x.free <- NewChanges(queueCap, pointCap)
	return x
}

// Pending returns the set the plugin writes into. Audio thread only.
func (x *OutputExchange) Pending() *Changes { return x.pending }

// Publish offers the pending set to the control side. It returns false and
// keeps accumulating when the previous set has not been claimed yet.
// Audio thread only.
func (x *OutputExchange) Publish() bool {
	if x.pending.Empty() {
		return false
	}
	var fresh *Changes
	select {
	case fresh = <-x.free:
	default:
		return false
	}
	if !x.outbox.CompareAndSwap(nil, x.pending) {
		x.free <- fresh
		return false
	}
	x.pending = fresh
	metrics.ParamChangesPublished.Inc()
	select {
	case x.notify <- struct{}{}:
	default:
	}
	return true
}

// Ready is signalled after a successful Publish.
func (x *OutputExchange) Ready() <-chan struct{} { return x.notify }

// Claim takes the published set, nil when there is none. The caller must
// hand it back with Done.
func (x *OutputExchange) Claim() *Changes {
	return x.outbox.Swap(nil)
}

// Done returns a claimed set so the audio thread can reuse it.
func (x *OutputExchange) Done(c *Changes) {
	if c == nil {
		return
	}
	c.Clear()
	select {
	case x.free <- c:
	default:
	}
}
