package interop

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/automation"
	"github.com/justyntemme/vst3host/pkg/midi"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// fakeProcessor is a native IAudioProcessor laid out the way a plugin
// binary lays it out: the vtable pointer comes first.
type fakeProcessor struct {
	vtbl    uintptr
	refs    atomic.Int32
	queries atomic.Int32
	blocks  atomic.Int32
	last    seenBlock
}

// seenBlock is what the plugin side observed in its last process call.
type seenBlock struct {
	numSamples    int32
	numInputs     int32
	numOutputs    int32
	inChannels    int32
	outChannels   int32
	inputChanges  any
	inputEvents   any
	outputEvents  any
	outputChanges uintptr
}

var (
	fakeProcessorOnce sync.Once
	fakeProcessorFns  []uintptr
)

func fakeAt(this uintptr) *fakeProcessor { return (*fakeProcessor)(ptrAt(this)) }

func fakeProcessorVtbl() uintptr {
	fakeProcessorOnce.Do(func() {
		stub := purego.NewCallback(func(this uintptr) uintptr { return rc(vst3.ResultOk) })
		fakeProcessorFns = []uintptr{
			purego.NewCallback(func(this, iid, obj uintptr) uintptr {
				f := fakeAt(this)
				f.queries.Add(1)
				out := (*uintptr)(ptrAt(obj))
				switch *(*vst3.TUID)(ptrAt(iid)) {
				case vst3.IIDFUnknown, vst3.IIDAudioProcessor:
					f.refs.Add(1)
					*out = this
					return rc(vst3.ResultOk)
				}
				*out = 0
				return rc(vst3.NoInterface)
			}),
			purego.NewCallback(func(this uintptr) uintptr { return uintptr(fakeAt(this).refs.Add(1)) }),
			purego.NewCallback(func(this uintptr) uintptr { return uintptr(fakeAt(this).refs.Add(-1)) }),
			stub, // setBusArrangements
			stub, // getBusArrangement
			stub, // canProcessSampleSize
			purego.NewCallback(func(this uintptr) uintptr { return 64 }), // getLatencySamples
			stub, // setupProcessing
			stub, // setProcessing
			purego.NewCallback(fakeProcess),
			stub, // getTailSamples
		}
	})
	return uintptr(unsafe.Pointer(&fakeProcessorFns[0]))
}

// fakeProcess doubles input bus 0 into output bus 0 and records what the
// host handed over.
func fakeProcess(this, data uintptr) uintptr {
	f := fakeAt(this)
	d := (*cProcessData)(ptrAt(data))
	seen := seenBlock{
		numSamples:    d.numSamples,
		numInputs:     d.numInputs,
		numOutputs:    d.numOutputs,
		outputChanges: d.outputParameterChanges,
	}
	seen.inputChanges, _ = lookupShell(d.inputParameterChanges)
	seen.inputEvents, _ = lookupShell(d.inputEvents)
	seen.outputEvents, _ = lookupShell(d.outputEvents)

	if d.numInputs > 0 && d.numOutputs > 0 {
		in := (*cAudioBusBuffers)(ptrAt(d.inputs))
		out := (*cAudioBusBuffers)(ptrAt(d.outputs))
		seen.inChannels, seen.outChannels = in.numChannels, out.numChannels
		inPtrs := unsafe.Slice((*uintptr)(ptrAt(in.channelBuffers)), in.numChannels)
		outPtrs := unsafe.Slice((*uintptr)(ptrAt(out.channelBuffers)), out.numChannels)
		for c := range min(len(inPtrs), len(outPtrs)) {
			src := unsafe.Slice((*float32)(ptrAt(inPtrs[c])), d.numSamples)
			dst := unsafe.Slice((*float32)(ptrAt(outPtrs[c])), d.numSamples)
			for i := range src {
				dst[i] = 2 * src[i]
			}
		}
	}
	f.last = seen
	f.blocks.Add(1)
	return rc(vst3.ResultOk)
}

func newFakeProcessor() *fakeProcessor {
	f := &fakeProcessor{vtbl: fakeProcessorVtbl()}
	f.refs.Store(1)
	return f
}

func (f *fakeProcessor) ptr() uintptr { return uintptr(unsafe.Pointer(f)) }

func TestNativeProcessor(t *testing.T) {
	requireCallbacks(t)

	f := newFakeProcessor()
	proc, ok := Wrap(f.ptr(), vst3.IIDAudioProcessor).(vst3.AudioProcessor)
	require.True(t, ok)

	t.Run("query interface", func(t *testing.T) {
		u, err := proc.QueryInterface(vst3.IIDFUnknown)
		require.NoError(t, err)
		assert.Equal(t, int32(2), f.refs.Load())
		assert.Equal(t, f.ptr(), identity(u))
		assert.Equal(t, uint32(1), u.Release())

		_, err = proc.QueryInterface(vst3.IIDComponent)
		assert.ErrorIs(t, err, vst3.ErrNoInterface)
		assert.Equal(t, int32(2), f.queries.Load())
		assert.Equal(t, int32(1), f.refs.Load())
	})

	t.Run("latency", func(t *testing.T) {
		assert.Equal(t, uint32(64), proc.LatencySamples())
	})

	const n = 8
	in := [][]float32{make([]float32, n), make([]float32, n)}
	out := [][]float32{make([]float32, n), make([]float32, n)}
	for i := range in[0] {
		in[0][i], in[1][i] = 0.25, -0.5
	}
	changes := automation.NewChanges(2, 4)
	changes.Add(3, 0, 0.75)
	inEvents := midi.NewEventList(4, 0)
	outEvents := midi.NewEventList(4, 0)
	d := &vst3.ProcessData{
		NumSamples:            n,
		Inputs:                []vst3.AudioBusBuffers{{Channels: in}},
		Outputs:               []vst3.AudioBusBuffers{{Channels: out}},
		InputParameterChanges: changes,
		InputEvents:           inEvents,
		OutputEvents:          outEvents,
	}

	for block := 1; block <= 2; block++ {
		require.NoError(t, proc.Process(d))
		assert.Equal(t, int32(block), f.blocks.Load())
	}

	seen := f.last
	assert.Equal(t, int32(n), seen.numSamples)
	assert.Equal(t, int32(1), seen.numInputs)
	assert.Equal(t, int32(1), seen.numOutputs)
	assert.Equal(t, int32(2), seen.inChannels)
	assert.Equal(t, int32(2), seen.outChannels)
	assert.Same(t, changes, seen.inputChanges)
	assert.Same(t, inEvents, seen.inputEvents)
	assert.Same(t, outEvents, seen.outputEvents)
	assert.Zero(t, seen.outputChanges)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, out[0])
	assert.Equal(t, []float32{-1, -1, -1, -1, -1, -1, -1, -1}, out[1])

	// recycled objects are tracked once, not per block
	np := proc.(*nativeProcessor)
	assert.Len(t, np.exposed, 3)

	// a queue the plugin fetched during processing
	queue := changes.ParameterData(0)
	require.NotNil(t, queue)
	require.NotZero(t, Expose(queue))

	assert.Zero(t, proc.Release())
	assert.Zero(t, f.refs.Load())
	for name, obj := range map[string]any{
		"changes":       changes,
		"queue":         queue,
		"input events":  inEvents,
		"output events": outEvents,
	} {
		assert.False(t, Exposed(obj), name)
	}
}

func TestExposeLifetime(t *testing.T) {
	t.Run("stream dropped on last release", func(t *testing.T) {
		s := vst3.NewMemoryStream([]byte{1, 2})
		p := Expose(s)
		require.NotZero(t, p)
		assert.Equal(t, p, Expose(s))
		assert.True(t, Exposed(s))

		s.AddRef()
		s.Release()
		assert.True(t, Exposed(s))

		s.Release()
		assert.False(t, Exposed(s))
		_, found := lookupShell(p)
		assert.False(t, found)
	})

	t.Run("exposed again after unexpose", func(t *testing.T) {
		attrs := newTestAttributes()
		require.NotZero(t, Expose(attrs))
		Unexpose(attrs)
		assert.False(t, Exposed(attrs))

		require.NotZero(t, Expose(attrs))
		assert.True(t, Exposed(attrs))
		attrs.Release()
		assert.False(t, Exposed(attrs))
	})

	t.Run("changes take their queues along", func(t *testing.T) {
		c := automation.NewChanges(2, 2)
		c.Add(1, 0, 0.5)
		c.Add(2, 0, 0.25)
		Expose(c)
		var queues []any
		for i := range c.ParameterCount() {
			q := c.ParameterData(i)
			Expose(q)
			queues = append(queues, q)
		}
		require.Len(t, queues, 2)
		for _, q := range queues {
			assert.True(t, Exposed(q))
		}

		Unexpose(c)
		assert.False(t, Exposed(c))
		for _, q := range queues {
			assert.False(t, Exposed(q))
		}
	})

	t.Run("plain objects stay until unexposed", func(t *testing.T) {
		l := midi.NewEventList(1, 0)
		Expose(l)
		assert.True(t, Exposed(l))
		Unexpose(l)
		assert.False(t, Exposed(l))
		Unexpose(l)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Zero(t, Expose(nil))
		assert.NotPanics(t, func() { Unexpose(nil) })
	})
}
