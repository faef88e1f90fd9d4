package process

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Arena hands out shared silent buffers. Buffers are created the first time
// a size is requested and kept for the rest of the session; the arena never
// shrinks. Lookups are lock-free; only a miss takes the mutex.
type Arena struct {
	mu       sync.Mutex
	samples  atomic.Pointer[map[int][]float32]
	channels atomic.Pointer[map[[2]int][][]float32]
}

var zeros = &Arena{}

// Zeros returns the process-wide arena.
func Zeros() *Arena { return zeros }

// Zero returns a silent buffer of n samples. Callers must not write to it.
func (a *Arena) Zero(n int) []float32 {
	if m := a.samples.Load(); m != nil {
		if buf, ok := (*m)[n]; ok {
			return buf
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.zeroLocked(n)
}

func (a *Arena) zeroLocked(n int) []float32 {
	old := a.samples.Load()
	if old != nil {
		if buf, ok := (*old)[n]; ok {
			return buf
		}
	}
	next := make(map[int][]float32, 1)
	if old != nil {
		maps.Copy(next, *old)
	}
	buf := make([]float32, n)
	next[n] = buf
	a.samples.Store(&next)
	return buf
}

// Silence returns channels silent buffers of n samples each.
func (a *Arena) Silence(channels, n int) [][]float32 {
	key := [2]int{channels, n}
	if m := a.channels.Load(); m != nil {
		if bufs, ok := (*m)[key]; ok {
			return bufs
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	old := a.channels.Load()
	if old != nil {
		if bufs, ok := (*old)[key]; ok {
			return bufs
		}
	}
	zero := a.zeroLocked(n)
	bufs := make([][]float32, channels)
	for i := range bufs {
		bufs[i] = zero
	}
	next := make(map[[2]int][][]float32, 1)
	if old != nil {
		maps.Copy(next, *old)
	}
	next[key] = bufs
	a.channels.Store(&next)
	return bufs
}

// Sizes returns how many distinct sample counts are cached.
func (a *Arena) Sizes() int {
	if m := a.samples.Load(); m != nil {
		return len(*m)
	}
	return 0
}
