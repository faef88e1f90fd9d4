package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/justyntemme/vst3host/internal/testplugin"
	"github.com/justyntemme/vst3host/pkg/framework/bus"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

type fixture struct {
	plugin *testplugin.Plugin
	proc   *Processor
	in     [][]float32
	out    [][]float32
}

func newFixture(t *testing.T, opts testplugin.Options, cfg Config) *fixture {
	t.Helper()
	p := testplugin.NewPlugin(opts, nil)
	t.Cleanup(func() { p.Release() })
	buses, err := bus.Read(p)
	require.NoError(t, err)
	require.NoError(t, buses.Activate(p))

	proc := New(Options{Config: cfg, Processor: p, Buses: buses})
	n := proc.MaxBlock()
	f := &fixture{plugin: p, proc: proc}
	for range 2 {
		in := make([]float32, n)
		for i := range in {
			in[i] = 1
		}
		f.in = append(f.in, in)
		f.out = append(f.out, make([]float32, n))
	}
	return f
}

func TestProcessAppliesInputChanges(t *testing.T) {
	f := newFixture(t, testplugin.Options{}, Config{MaxBlock: 64})

	f.proc.InputChanges().Add(testplugin.ParamGain, 0, 0.5)
	require.NoError(t, f.proc.Process(64, f.in, f.out))
	assert.Equal(t, float32(0.5), f.out[0][0])
	assert.Equal(t, float32(0.5), f.out[1][63])
	v, ok := f.plugin.ReceivedChange(testplugin.ParamGain)
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	assert.False(t, f.proc.InputChanges().Pending())
	require.NoError(t, f.proc.Process(64, f.in, f.out))
	assert.Equal(t, 2, f.plugin.Blocks())
}

func TestProcessPublishesOutputChanges(t *testing.T) {
	f := newFixture(t, testplugin.Options{}, Config{MaxBlock: 32})
	require.NoError(t, f.proc.Process(32, f.in, f.out))

	select {
	case <-f.proc.OutputChanges().Ready():
	case <-time.After(time.Second):
		t.Fatal("no output changes published")
	}
	c := f.proc.OutputChanges().Claim()
	require.NotNil(t, c)
	q, ok := c.Queue(testplugin.ParamMeter)
	require.True(t, ok)
	latest, ok := q.Latest()
	require.True(t, ok)
	assert.Equal(t, 1.0, latest)
	f.proc.OutputChanges().Done(c)
}

func TestProcessMIDI(t *testing.T) {
	f := newFixture(t, testplugin.Options{}, Config{MaxBlock: 32})
	ctx := context.Background()

	require.NoError(t, f.proc.MIDIIn().Push(ctx, gomidi.NoteOn(1, 60, 127)))
	require.NoError(t, f.proc.MIDIIn().Push(ctx, gomidi.ControlChange(1, 7, 64)))
	require.NoError(t, f.proc.MIDIIn().Push(ctx, gomidi.TimingClock()))
	require.NoError(t, f.proc.Process(32, f.in, f.out))
	assert.Zero(t, f.proc.MIDIIn().Len())

	events := f.plugin.Events()
	require.Len(t, events, 1)
	assert.Equal(t, vst3.EventNoteOn, events[0].Type)
	assert.Equal(t, int16(60), events[0].NoteOn().Pitch)

	select {
	case msg := <-f.proc.Redirected():
		var ch, cc, val uint8
		require.True(t, msg.GetControlChange(&ch, &cc, &val))
		assert.Equal(t, uint8(7), cc)
	default:
		t.Fatal("controller message was not redirected")
	}

	select {
	case l := <-f.proc.OutputEvents().Lists():
		assert.Equal(t, 1, l.Len())
		f.proc.OutputEvents().Recycle(l)
	default:
		t.Fatal("echoed note was not relayed")
	}
}

func TestProcessFailureDropsBlock(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *testplugin.Plugin)
	}{
		{"error", func(p *testplugin.Plugin) { p.FailProcess.Store(true) }},
		{"panic", func(p *testplugin.Plugin) { p.PanicProcess.Store(true) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testplugin.Options{}, Config{MaxBlock: 16})
			for i := range f.out[0] {
				f.out[0][i] = 9
			}
			tt.setup(f.plugin)
			err := f.proc.Process(16, f.in, f.out)
			assert.ErrorIs(t, err, vst3.ErrInternal)
			assert.Equal(t, int64(1), f.proc.Failures())
			assert.ErrorIs(t, f.proc.LastError(), vst3.ErrInternal)
			assert.Equal(t, float32(0), f.out[0][0])

			f.plugin.FailProcess.Store(false)
			f.plugin.PanicProcess.Store(false)
			require.NoError(t, f.proc.Process(16, f.in, f.out))
			assert.Equal(t, float32(1), f.out[0][0])
		})
	}
}

func TestProcessClampsToMaxBlock(t *testing.T) {
	f := newFixture(t, testplugin.Options{}, Config{MaxBlock: 16})
	in := [][]float32{make([]float32, 32), make([]float32, 32)}
	out := [][]float32{make([]float32, 32), make([]float32, 32)}
	for ch := range in {
		for i := range in[ch] {
			in[ch][i] = 1
			out[ch][i] = -1
		}
	}
	require.NoError(t, f.proc.Process(32, in, out))
	assert.Equal(t, float32(1), out[0][15])
	assert.Equal(t, float32(-1), out[0][16])
}

func TestProcessAuxBusReadsSilence(t *testing.T) {
	f := newFixture(t, testplugin.Options{AuxInput: true}, Config{MaxBlock: 16})
	require.NoError(t, f.proc.Process(8, f.in, f.out))
	assert.Equal(t, 2, f.plugin.LastInputBusCount())

	aux := f.proc.data.Inputs[1]
	assert.Equal(t, uint64(0b11), aux.SilenceFlags)
	assert.Len(t, aux.Channels[0], 8)
	assert.Equal(t, Zeros().Zero(8), aux.Channels[0])
}

func TestProcessMissingChannels(t *testing.T) {
	f := newFixture(t, testplugin.Options{}, Config{MaxBlock: 16})
	in := [][]float32{f.in[0]}
	out := [][]float32{f.out[0]}
	require.NoError(t, f.proc.Process(16, in, out))
	assert.Equal(t, uint64(0b10), f.proc.data.Inputs[0].SilenceFlags)
	assert.Equal(t, float32(1), out[0][0])
}

func TestProcessContext(t *testing.T) {
	f := newFixture(t, testplugin.Options{}, Config{MaxBlock: 16, SampleRate: 48000})
	f.proc.Timeline().SetTransport(Transport{Playing: true, Tempo: 90, TimeSigNumerator: 3, TimeSigDenominator: 4})
	require.NoError(t, f.proc.Process(16, f.in, f.out))

	ctx := f.plugin.LastContext()
	assert.Equal(t, 48000.0, ctx.SampleRate)
	assert.Equal(t, 90.0, ctx.Tempo)
	assert.NotZero(t, ctx.State&vst3.ContextPlaying)
	assert.NotZero(t, ctx.State&vst3.ContextTempoValid)
	assert.NotZero(t, ctx.State&vst3.ContextTimeSigValid)
	assert.Zero(t, ctx.State&vst3.ContextCycleValid)
}

func TestClose(t *testing.T) {
	f := newFixture(t, testplugin.Options{}, Config{MaxBlock: 16})
	released := false
	f.proc.Close(func() { released = true })
	assert.True(t, released)
	assert.True(t, f.proc.Closed())
	assert.ErrorIs(t, f.proc.Process(16, f.in, f.out), ErrClosed)
	assert.Zero(t, f.plugin.Blocks())
}

func TestPrepare(t *testing.T) {
	p := testplugin.NewPlugin(testplugin.Options{}, nil)
	defer p.Release()
	proc := New(Options{Config: Config{MaxBlock: 256, SampleRate: 44100}, Processor: p})
	require.NoError(t, Prepare(p, proc.Setup()))

	setup := p.Setup()
	assert.Equal(t, int32(256), setup.MaxSamplesPerBlock)
	assert.Equal(t, 44100.0, setup.SampleRate)
	assert.Equal(t, vst3.SampleSize32, setup.SymbolicSampleSize)
}

func BenchmarkProcess(b *testing.B) {
	p := testplugin.NewPlugin(testplugin.Options{}, nil)
	defer p.Release()
	buses, err := bus.Read(p)
	require.NoError(b, err)
	proc := New(Options{Config: Config{MaxBlock: 256}, Processor: p, Buses: buses})
	in := [][]float32{make([]float32, 256), make([]float32, 256)}
	out := [][]float32{make([]float32, 256), make([]float32, 256)}

	b.ReportAllocs()
	for b.Loop() {
		_ = proc.Process(256, in, out)
	}
}
