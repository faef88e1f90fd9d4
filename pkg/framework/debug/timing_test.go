package debug

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockTimer(t *testing.T) {
	// 48 frames at 48 kHz leave one millisecond per block.
	bt := NewBlockTimer(48000, 48, 20)
	assert.Equal(t, time.Millisecond, bt.Budget())
	assert.Equal(t, Timing{}, bt.Snapshot())

	for k := 1; k <= 10; k++ {
		bt.Record(time.Duration(k) * 100 * time.Microsecond)
	}
	s := bt.Snapshot()
	assert.Equal(t, 10, s.Blocks)
	assert.Equal(t, 100*time.Microsecond, s.Min)
	assert.Equal(t, time.Millisecond, s.Max)
	assert.Equal(t, 550*time.Microsecond, s.Average)
	assert.Equal(t, 900*time.Microsecond, s.P95)
	assert.Zero(t, s.Overruns)
	assert.InDelta(t, 55, s.Load, 1e-9)

	bt.Record(2 * time.Millisecond)
	assert.Equal(t, 1, bt.Snapshot().Overruns)

	bt.Reset()
	assert.Equal(t, Timing{}, bt.Snapshot())
}

func TestBlockTimerWindow(t *testing.T) {
	bt := NewBlockTimer(0, 64, 2)
	assert.Zero(t, bt.Budget())

	bt.Record(5 * time.Millisecond)
	bt.Record(time.Millisecond)
	bt.Record(2 * time.Millisecond)

	s := bt.Snapshot()
	assert.Equal(t, 3, s.Blocks)
	assert.Equal(t, 5*time.Millisecond, s.Max)
	// only the last two blocks feed the percentile
	assert.Equal(t, time.Millisecond, s.P95)
	assert.Zero(t, s.Load)
	assert.Zero(t, s.Overruns)
}

func TestBlockTimerStart(t *testing.T) {
	bt := NewBlockTimer(44100, 512, 8)
	stop := bt.Start()
	time.Sleep(time.Millisecond)
	stop()

	s := bt.Snapshot()
	assert.Equal(t, 1, s.Blocks)
	assert.GreaterOrEqual(t, s.Max, time.Millisecond)
}
