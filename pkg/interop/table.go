package interop

import (
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Native is implemented by wrappers around native interface pointers. The
// pointer is the wrapper's identity in a Table.
type Native interface {
	Ptr() uintptr
}

func identity(obj vst3.Unknown) any {
	if n, ok := obj.(Native); ok {
		return n.Ptr()
	}
	return obj
}

// Table tracks the plugin objects held by one consumer. Each logical object
// is wrapped once and holds exactly one plugin reference, dropped when the
// last holder releases it.
type Table struct {
	mu   sync.Mutex
	refs map[any]*Ref
	live atomic.Int32
}

// NewTable creates an empty ownership table.
func NewTable() *Table {
	return &Table{refs: make(map[any]*Ref)}
}

// Ref is one holder's handle on a wrapped object.
type Ref struct {
	table    *Table
	key      any
	obj      vst3.Unknown
	owner    *Context
	holders  int32
	unique   bool
	released atomic.Bool
}

// Wrap adopts the reference carried by obj, typically the result of a
// QueryInterface or CreateInstance. When obj is already wrapped, the
// existing Ref gains a holder and the duplicate reference is released on
// the calling thread, which is the thread that obtained it.
func (t *Table) Wrap(obj vst3.Unknown) *Ref {
	if obj == nil {
		return nil
	}
	key := identity(obj)

	t.mu.Lock()
	if r, ok := t.refs[key]; ok {
		r.holders++
		t.mu.Unlock()
		obj.Release()
		return r
	}
	r := t.newRef(key, obj, false)
	t.refs[key] = r
	t.mu.Unlock()
	return r
}

// WrapUnique adopts obj into a Ref of its own even when the same object is
// already wrapped. Used for objects whose identity must be per call, such
// as editor views.
func (t *Table) WrapUnique(obj vst3.Unknown) *Ref {
	if obj == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.newRef(identity(obj), obj, true)
}

func (t *Table) newRef(key any, obj vst3.Unknown, unique bool) *Ref {
	t.live.Add(1)
	return &Ref{table: t, key: key, obj: obj, owner: Current(), holders: 1, unique: unique}
}

// Len returns the number of wrapped objects not yet released.
func (t *Table) Len() int {
	return int(t.live.Load())
}

// Lookup returns the Ref for a wrapped object without adding a holder.
func (t *Table) Lookup(obj vst3.Unknown) (*Ref, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.refs[identity(obj)]
	return r, ok
}

// Object returns the wrapped object.
func (r *Ref) Object() vst3.Unknown { return r.obj }

// Owner returns the context the object was wrapped on, nil when it was
// wrapped on a foreign thread.
func (r *Ref) Owner() *Context { return r.owner }

// Retain adds a holder.
func (r *Ref) Retain() *Ref {
	r.table.mu.Lock()
	r.holders++
	r.table.mu.Unlock()
	return r
}

// Release drops a holder. The plugin reference is released when the last
// holder goes: immediately when called on the owning context, otherwise it
// is queued on the owner and flushed on its thread. Extra calls are no-ops.
func (r *Ref) Release() {
	if r == nil {
		return
	}
	t := r.table
	t.mu.Lock()
	if r.holders <= 0 {
		t.mu.Unlock()
		return
	}
	r.holders--
	if r.holders > 0 {
		t.mu.Unlock()
		return
	}
	if !r.unique && t.refs[r.key] == r {
		delete(t.refs, r.key)
	}
	t.mu.Unlock()

	owner := r.owner
	if owner == nil || owner.Closed() || owner.IsCurrent() {
		r.releaseNow()
		return
	}
	owner.deferRelease(r)
}

// Released reports whether the plugin reference has been dropped.
func (r *Ref) Released() bool { return r.released.Load() }

func (r *Ref) releaseNow() {
	if r.released.CompareAndSwap(false, true) {
		r.obj.Release()
		r.table.live.Add(-1)
	}
}

// As returns the wrapped object asserted to T.
func As[T any](r *Ref) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	t, ok := r.obj.(T)
	return t, ok
}
