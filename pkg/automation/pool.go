package automation

// Pool recycles change sets. Get and Put never block; Get allocates only
// when every pooled set is in flight.
type Pool struct {
	free     chan *Changes
	queueCap int
	pointCap int
}

// NewPool creates a pool holding up to size sets and fills it.
func NewPool(size, queueCap, pointCap int) *Pool {
	p := &Pool{
		free:     make(chan *Changes, size),
		queueCap: queueCap,
		pointCap: pointCap,
	}
	for i := 0; i < size; i++ {
		p.free <- NewChanges(queueCap, pointCap)
	}
	return p
}

// Get returns a cleared set.
func (p *Pool) Get() *Changes {
	select {
	case c := <-p.free:
		return c
	default:
		return NewChanges(p.queueCap, p.pointCap)
	}
}

// Put clears c and keeps it for reuse. Sets beyond the pool size are left
// to the garbage collector.
func (p *Pool) Put(c *Changes) {
	if c == nil {
		return
	}
	c.Clear()
	select {
	case p.free <- c:
	default:
	}
}

// Available returns the number of idle sets.
func (p *Pool) Available() int { return len(p.free) }
