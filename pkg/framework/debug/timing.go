package debug

import (
	"slices"
	"sync"
	"time"
)

// BlockTimer records how long processing calls take relative to the real
// time budget of one block.
type BlockTimer struct {
	budget time.Duration

	mu      sync.Mutex
	count   int
	total   time.Duration
	min     time.Duration
	max     time.Duration
	recent  []time.Duration
	next    int
	overrun int
}

// NewBlockTimer returns a timer for blocks of frames samples at sampleRate,
// keeping the last window durations for percentiles.
func NewBlockTimer(sampleRate float64, frames, window int) *BlockTimer {
	var budget time.Duration
	if sampleRate > 0 {
		budget = time.Duration(float64(frames) / sampleRate * float64(time.Second))
	}
	return &BlockTimer{budget: budget, recent: make([]time.Duration, 0, max(window, 1))}
}

// Budget returns the wall time available for one block.
func (t *BlockTimer) Budget() time.Duration { return t.budget }

// Start begins timing one block. Call the returned func when it is done.
func (t *BlockTimer) Start() func() {
	start := time.Now()
	return func() { t.Record(time.Since(start)) }
}

// Record adds one measured block.
func (t *BlockTimer) Record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 || d < t.min {
		t.min = d
	}
	t.max = max(t.max, d)
	t.count++
	t.total += d
	if t.budget > 0 && d > t.budget {
		t.overrun++
	}
	if len(t.recent) < cap(t.recent) {
		t.recent = append(t.recent, d)
		return
	}
	t.recent[t.next] = d
	t.next = (t.next + 1) % len(t.recent)
}

// Timing is a snapshot of a BlockTimer.
type Timing struct {
	Blocks   int
	Min      time.Duration
	Max      time.Duration
	Average  time.Duration
	P95      time.Duration
	Overruns int

	// Load is the average block time as a percentage of the budget.
	Load float64
}

// Snapshot returns the statistics recorded so far.
func (t *BlockTimer) Snapshot() Timing {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Timing{Blocks: t.count, Min: t.min, Max: t.max, Overruns: t.overrun}
	if t.count == 0 {
		return s
	}
	s.Average = t.total / time.Duration(t.count)
	sorted := slices.Clone(t.recent)
	slices.Sort(sorted)
	s.P95 = sorted[(len(sorted)-1)*95/100]
	if t.budget > 0 {
		s.Load = float64(s.Average) / float64(t.budget) * 100
	}
	return s
}

// Reset discards all measurements.
func (t *BlockTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count, t.total, t.min, t.max, t.overrun, t.next = 0, 0, 0, 0, 0, 0
	t.recent = t.recent[:0]
}
