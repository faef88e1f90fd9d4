// Package interop bridges Go and the reference-counted VST3 object model:
// thread affinity contexts, the ownership table for plugin objects, native
// vtable calls and host objects exposed to native plugins.
package interop

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/metrics"
)

// ErrClosed is returned when posting to a context that has been closed.
var ErrClosed = errors.New("interop: context closed")

// Context is a thread affinity domain. A loop context owns a locked OS
// thread and runs posted work serially on it; a passive context is bound
// to whatever thread calls Enter (the audio callback) and only runs its
// queued work when that thread calls Drain.
type Context struct {
	name    string
	loop    bool
	tid     atomic.Uint64
	tasks   chan func()
	done    chan struct{}
	exited  chan struct{}
	stopped atomic.Bool

	mu      sync.Mutex
	pending []*Ref
	spare   []*Ref
	posted  []func()
}

var (
	registryMu sync.Mutex
	registry   atomic.Pointer[[]*Context]
)

func register(c *Context) {
	registryMu.Lock()
	defer registryMu.Unlock()
	var next []*Context
	if cur := registry.Load(); cur != nil {
		next = append(next, *cur...)
	}
	next = append(next, c)
	registry.Store(&next)
}

func unregister(c *Context) {
	registryMu.Lock()
	defer registryMu.Unlock()
	cur := registry.Load()
	if cur == nil {
		return
	}
	next := make([]*Context, 0, len(*cur))
	for _, x := range *cur {
		if x != c {
			next = append(next, x)
		}
	}
	registry.Store(&next)
}

// Current returns the context bound to the calling OS thread, or nil when
// the caller is on a foreign thread.
func Current() *Context {
	tid := threadID()
	if tid == 0 {
		return nil
	}
	list := registry.Load()
	if list == nil {
		return nil
	}
	for _, c := range *list {
		if c.tid.Load() == tid {
			return c
		}
	}
	return nil
}

// NewLoop starts a serial executor on its own locked OS thread.
func NewLoop(name string, capacity int) *Context {
	c := &Context{
		name:   name,
		loop:   true,
		tasks:  make(chan func(), capacity),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	ready := make(chan struct{})
	go c.run(ready)
	<-ready
	register(c)
	return c
}

// NewPassive creates a context driven by explicit Enter/Drain calls.
func NewPassive(name string) *Context {
	c := &Context{name: name, done: make(chan struct{})}
	register(c)
	return c
}

func (c *Context) run(ready chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.exited)

	c.tid.Store(threadID())
	close(ready)
	for {
		select {
		case fn := <-c.tasks:
			fn()
			c.drainReleases()
		case <-c.done:
			for {
				select {
				case fn := <-c.tasks:
					fn()
				default:
					c.drainReleases()
					c.tid.Store(0)
					return
				}
			}
		}
	}
}

// Name returns the context name.
func (c *Context) Name() string { return c.name }

// IsCurrent reports whether the caller runs on this context's thread.
func (c *Context) IsCurrent() bool {
	tid := threadID()
	return tid != 0 && c.tid.Load() == tid
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool { return c.stopped.Load() }

// Post queues fn to run on the context. It never runs fn inline.
func (c *Context) Post(fn func()) error {
	if c.stopped.Load() {
		return ErrClosed
	}
	if !c.loop {
		c.mu.Lock()
		c.posted = append(c.posted, fn)
		c.mu.Unlock()
		return nil
	}
	select {
	case c.tasks <- fn:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Call runs fn on the context and waits for its result. Calls made on the
// context's own thread run inline.
func (c *Context) Call(fn func() error) error {
	if c.IsCurrent() {
		return fn()
	}
	if !c.loop {
		return errors.New("interop: synchronous call into passive context " + c.name)
	}
	result := make(chan error, 1)
	if err := c.Post(func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-c.exited:
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}

// Enter binds a passive context to the calling thread until Leave.
func (c *Context) Enter() {
	runtime.LockOSThread()
	c.tid.Store(threadID())
}

// Leave unbinds a passive context.
func (c *Context) Leave() {
	c.tid.Store(0)
	runtime.UnlockOSThread()
}

// Drain runs queued work and flushes deferred releases. Loop contexts do
// this after every task on their own; passive contexts call it from the
// owning thread, typically once per audio block.
func (c *Context) Drain() {
	c.mu.Lock()
	posted := c.posted
	c.posted = nil
	c.mu.Unlock()
	for _, fn := range posted {
		fn()
	}
	c.drainReleases()
}

func (c *Context) deferRelease(r *Ref) {
	c.mu.Lock()
	c.pending = append(c.pending, r)
	c.mu.Unlock()
	metrics.PendingReleases.Inc()
	if c.loop && !c.stopped.Load() {
		select {
		case c.tasks <- func() {}:
		default:
		}
	}
}

// PendingReleases returns the number of queued releases.
func (c *Context) PendingReleases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Context) drainReleases() {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = c.spare[:0]
	c.mu.Unlock()

	for _, r := range batch {
		r.releaseNow()
	}
	metrics.PendingReleases.Sub(float64(len(batch)))
	clear(batch)

	c.mu.Lock()
	c.spare = batch[:0]
	c.mu.Unlock()
}

// Close stops a loop after running already queued work and flushing its
// pending releases. A passive context flushes its pending releases on the
// calling thread, which must be the last user of the context.
func (c *Context) Close() {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}
	close(c.done)
	if c.loop {
		<-c.exited
	} else {
		c.Drain()
	}
	unregister(c)
}
