package process

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Transport is the musical state of the timeline. Zero Tempo or zero time
// signature fields mean unknown; the matching context fields are then
// flagged invalid.
type Transport struct {
	Playing            bool
	Tempo              float64
	TimeSigNumerator   int32
	TimeSigDenominator int32
	// Loop bounds in quarter notes, used when Loop is set.
	Loop      bool
	LoopStart float64
	LoopEnd   float64
}

// Timeline is the clock shared by every instance of a host. The control
// side sets the transport, the audio driver advances it once per cycle and
// processors take snapshots of it.
type Timeline struct {
	sampleRate atomic.Uint64
	transport  atomic.Pointer[Transport]
	position   atomic.Int64
	continuous atomic.Int64
}

// NewTimeline creates a stopped timeline at 120 bpm in 4/4.
func NewTimeline(sampleRate float64) *Timeline {
	t := &Timeline{}
	t.SetSampleRate(sampleRate)
	t.SetTransport(Transport{Tempo: 120, TimeSigNumerator: 4, TimeSigDenominator: 4})
	return t
}

// SetSampleRate changes the rate used for musical positions.
func (t *Timeline) SetSampleRate(sr float64) { t.sampleRate.Store(math.Float64bits(sr)) }

// SampleRate returns the current rate.
func (t *Timeline) SampleRate() float64 { return math.Float64frombits(t.sampleRate.Load()) }

// SetTransport replaces the musical state.
func (t *Timeline) SetTransport(tr Transport) { t.transport.Store(&tr) }

// Transport returns the musical state.
func (t *Timeline) Transport() Transport { return *t.transport.Load() }

// SetPosition moves the project position.
func (t *Timeline) SetPosition(samples int64) { t.position.Store(samples) }

// Position returns the project position in samples.
func (t *Timeline) Position() int64 { return t.position.Load() }

// Advance moves the clock by n samples. The project position only moves
// while playing and wraps at the loop end.
func (t *Timeline) Advance(n int) {
	t.continuous.Add(int64(n))
	tr := t.transport.Load()
	if !tr.Playing {
		return
	}
	pos := t.position.Add(int64(n))
	sr := t.SampleRate()
	if !tr.Loop || tr.Tempo <= 0 || sr <= 0 || tr.LoopEnd <= tr.LoopStart {
		return
	}
	samplesPerQuarter := sr * 60 / tr.Tempo
	end := int64(tr.LoopEnd * samplesPerQuarter)
	if pos >= end {
		start := int64(tr.LoopStart * samplesPerQuarter)
		t.position.Store(start + (pos-end)%(end-start))
	}
}

// Snapshot fills ctx with the current state. Fields the timeline cannot
// provide are left zero with their valid flag cleared.
func (t *Timeline) Snapshot(ctx *vst3.ProcessContext) {
	tr := t.transport.Load()
	sr := t.SampleRate()
	pos := t.position.Load()

	*ctx = vst3.ProcessContext{
		State:                 vst3.ContextContTimeValid | vst3.ContextSystemTimeValid,
		SampleRate:            sr,
		ProjectTimeSamples:    pos,
		ContinuousTimeSamples: t.continuous.Load(),
		SystemTime:            time.Now().UnixNano(),
	}
	if tr.Playing {
		ctx.State |= vst3.ContextPlaying
	}
	if tr.Tempo > 0 {
		ctx.State |= vst3.ContextTempoValid
		ctx.Tempo = tr.Tempo
		if sr > 0 {
			ctx.State |= vst3.ContextProjectTimeMusicValid
			ctx.ProjectTimeMusic = float64(pos) / sr * tr.Tempo / 60
		}
	}
	if tr.TimeSigNumerator > 0 && tr.TimeSigDenominator > 0 {
		ctx.State |= vst3.ContextTimeSigValid
		ctx.TimeSigNumerator = tr.TimeSigNumerator
		ctx.TimeSigDenominator = tr.TimeSigDenominator
		if ctx.State&vst3.ContextProjectTimeMusicValid != 0 {
			bar := float64(tr.TimeSigNumerator) * 4 / float64(tr.TimeSigDenominator)
			ctx.State |= vst3.ContextBarPositionValid
			ctx.BarPositionMusic = math.Floor(ctx.ProjectTimeMusic/bar) * bar
		}
	}
	if tr.Loop && tr.LoopEnd > tr.LoopStart {
		ctx.State |= vst3.ContextCycleValid | vst3.ContextCycleActive
		ctx.CycleStartMusic = tr.LoopStart
		ctx.CycleEndMusic = tr.LoopEnd
	}
}
