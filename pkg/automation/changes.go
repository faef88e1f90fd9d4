package automation

import "github.com/justyntemme/vst3host/pkg/vst3"

// Changes is one block's set of parameter queues. It implements
// vst3.ParameterChanges. Queue slots are kept across Clear and reused, so a
// set stops allocating once it has seen the largest number of distinct
// parameters automated in one block.
type Changes struct {
	queues   []*ValueQueue
	used     int
	pointCap int
}

// NewChanges creates a set with room for queueCap parameters of pointCap
// points each.
func NewChanges(queueCap, pointCap int) *Changes {
	c := &Changes{queues: make([]*ValueQueue, 0, queueCap), pointCap: pointCap}
	for i := 0; i < queueCap; i++ {
		c.queues = append(c.queues, newValueQueue(0, pointCap))
	}
	return c
}

// ParameterCount returns the number of queues in use.
func (c *Changes) ParameterCount() int32 { return int32(c.used) }

// ParameterData returns the queue at index, nil when out of range.
func (c *Changes) ParameterData(index int32) vst3.ParamValueQueue {
	if index < 0 || int(index) >= c.used {
		return nil
	}
	return c.queues[index]
}

// AddParameterData returns the queue for id, adding it when the id has no
// queue yet in this block.
func (c *Changes) AddParameterData(id vst3.ParamID) (vst3.ParamValueQueue, int32) {
	q, index := c.queue(id)
	return q, index
}

func (c *Changes) queue(id vst3.ParamID) (*ValueQueue, int32) {
	for i := 0; i < c.used; i++ {
		if c.queues[i].id == id {
			return c.queues[i], int32(i)
		}
	}
	if c.used < len(c.queues) {
		c.queues[c.used].reset(id)
	} else {
		c.queues = append(c.queues, newValueQueue(id, c.pointCap))
	}
	c.used++
	return c.queues[c.used-1], int32(c.used - 1)
}

// Add records one point for id.
func (c *Changes) Add(id vst3.ParamID, offset int32, value vst3.ParamValue) {
	q, _ := c.queue(id)
	_, _ = q.AddPoint(offset, value)
}

// Queue returns the queue for id if the block touched it.
func (c *Changes) Queue(id vst3.ParamID) (*ValueQueue, bool) {
	for i := 0; i < c.used; i++ {
		if c.queues[i].id == id {
			return c.queues[i], true
		}
	}
	return nil, false
}

// Each calls fn with the latest value of every touched parameter, in the
// order the parameters were first touched.
func (c *Changes) Each(fn func(id vst3.ParamID, value vst3.ParamValue)) {
	for i := 0; i < c.used; i++ {
		if v, ok := c.queues[i].Latest(); ok {
			fn(c.queues[i].id, v)
		}
	}
}

// Empty reports whether no parameter was touched.
func (c *Changes) Empty() bool { return c.used == 0 }

// Owned returns every queue slot, used or not, so a bridge can forget the
// queues it handed out along with the set.
func (c *Changes) Owned() []any {
	out := make([]any, len(c.queues))
	for i, q := range c.queues {
		out[i] = q
	}
	return out
}

// Clear drops all queues, keeping their storage.
func (c *Changes) Clear() {
	for i := 0; i < c.used; i++ {
		c.queues[i].reset(0)
	}
	c.used = 0
}
