package interop

import (
	"runtime"
	"unsafe"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// IPluginBase and IComponent slots
const (
	slotInitialize           = 3
	slotTerminate            = 4
	slotGetControllerClassID = 5
	slotSetIOMode            = 6
	slotGetBusCount          = 7
	slotGetBusInfo           = 8
	slotActivateBus          = 10
	slotSetActive            = 11
	slotSetState             = 12
	slotGetState             = 13
)

// IAudioProcessor slots
const (
	slotSetBusArrangements   = 3
	slotGetBusArrangement    = 4
	slotCanProcessSampleSize = 5
	slotGetLatencySamples    = 6
	slotSetupProcessing      = 7
	slotSetProcessing        = 8
	slotProcess              = 9
	slotGetTailSamples       = 10
)

type nativeComponent struct {
	Object
}

func (c *nativeComponent) Initialize(host vst3.Unknown) error {
	return result(c.call1(slotInitialize, Expose(host)))
}

func (c *nativeComponent) Terminate() error {
	return result(c.call0(slotTerminate))
}

func (c *nativeComponent) ControllerClassID() (vst3.TUID, error) {
	var id vst3.TUID
	err := result(c.call1(slotGetControllerClassID, uintptr(unsafe.Pointer(&id))))
	return id, err
}

func (c *nativeComponent) SetIOMode(mode int32) error {
	return result(c.call1(slotSetIOMode, uintptr(mode)))
}

func (c *nativeComponent) BusCount(media vst3.MediaType, dir vst3.BusDirection) int32 {
	return int32(c.call2(slotGetBusCount, uintptr(media), uintptr(dir)))
}

func (c *nativeComponent) BusInfo(media vst3.MediaType, dir vst3.BusDirection, index int32) (vst3.BusInfo, error) {
	var info vst3.BusInfo
	err := result(c.call4(slotGetBusInfo, uintptr(media), uintptr(dir), uintptr(index), uintptr(unsafe.Pointer(&info))))
	return info, err
}

func (c *nativeComponent) ActivateBus(media vst3.MediaType, dir vst3.BusDirection, index int32, state bool) error {
	return result(c.call4(slotActivateBus, uintptr(media), uintptr(dir), uintptr(index), uintptr(vst3.Bool(state))))
}

func (c *nativeComponent) SetActive(state bool) error {
	return result(c.call1(slotSetActive, uintptr(vst3.Bool(state))))
}

func (c *nativeComponent) SetState(s vst3.Stream) error {
	return result(c.call1(slotSetState, Expose(s)))
}

func (c *nativeComponent) GetState(s vst3.Stream) error {
	return result(c.call1(slotGetState, Expose(s)))
}

// C layout of AudioBusBuffers.
type cAudioBusBuffers struct {
	numChannels    int32
	_              int32
	silenceFlags   uint64
	channelBuffers uintptr
}

// C layout of ProcessData.
type cProcessData struct {
	processMode            int32
	symbolicSampleSize     int32
	numSamples             int32
	numInputs              int32
	numOutputs             int32
	_                      int32
	inputs                 uintptr
	outputs                uintptr
	inputParameterChanges  uintptr
	outputParameterChanges uintptr
	inputEvents            uintptr
	outputEvents           uintptr
	processContext         uintptr
}

// nativeProcessor keeps the C-layout scratch for Process so steady-state
// calls reuse it.
type nativeProcessor struct {
	Object
	data     cProcessData
	inputs   []cAudioBusBuffers
	outputs  []cAudioBusBuffers
	channels [][]uintptr
	pinner   runtime.Pinner
	// host objects first handed to the plugin by Process
	exposed []any
}

func (p *nativeProcessor) SetBusArrangements(inputs, outputs []vst3.SpeakerArrangement) error {
	var in, out uintptr
	if len(inputs) > 0 {
		in = uintptr(unsafe.Pointer(&inputs[0]))
	}
	if len(outputs) > 0 {
		out = uintptr(unsafe.Pointer(&outputs[0]))
	}
	return result(p.call4(slotSetBusArrangements, in, uintptr(len(inputs)), out, uintptr(len(outputs))))
}

func (p *nativeProcessor) BusArrangement(dir vst3.BusDirection, index int32) (vst3.SpeakerArrangement, error) {
	var arr vst3.SpeakerArrangement
	err := result(p.call3(slotGetBusArrangement, uintptr(dir), uintptr(index), uintptr(unsafe.Pointer(&arr))))
	return arr, err
}

func (p *nativeProcessor) CanProcessSampleSize(size int32) error {
	return result(p.call1(slotCanProcessSampleSize, uintptr(size)))
}

func (p *nativeProcessor) LatencySamples() uint32 {
	return uint32(p.call0(slotGetLatencySamples))
}

func (p *nativeProcessor) SetupProcessing(setup vst3.ProcessSetup) error {
	return result(p.call1(slotSetupProcessing, uintptr(unsafe.Pointer(&setup))))
}

func (p *nativeProcessor) SetProcessing(state bool) error {
	return result(p.call1(slotSetProcessing, uintptr(vst3.Bool(state))))
}

func (p *nativeProcessor) TailSamples() uint32 {
	return uint32(p.call0(slotGetTailSamples))
}

// Process translates d into the C layout and calls the plugin. The scratch
// arrays grow on the first blocks only.
func (p *nativeProcessor) Process(d *vst3.ProcessData) error {
	nIn, nOut := len(d.Inputs), len(d.Outputs)
	if cap(p.inputs) < nIn {
		p.inputs = make([]cAudioBusBuffers, nIn)
	}
	if cap(p.outputs) < nOut {
		p.outputs = make([]cAudioBusBuffers, nOut)
	}
	if len(p.channels) < nIn+nOut {
		grown := make([][]uintptr, nIn+nOut)
		copy(grown, p.channels)
		p.channels = grown
	}
	p.inputs = p.inputs[:nIn]
	p.outputs = p.outputs[:nOut]

	defer p.pinner.Unpin()
	for i := range d.Inputs {
		p.fillBus(&p.inputs[i], &d.Inputs[i], i)
	}
	for i := range d.Outputs {
		p.fillBus(&p.outputs[i], &d.Outputs[i], nIn+i)
	}

	p.data = cProcessData{
		processMode:            d.ProcessMode,
		symbolicSampleSize:     d.SymbolicSampleSize,
		numSamples:             d.NumSamples,
		numInputs:              int32(nIn),
		numOutputs:             int32(nOut),
		inputParameterChanges:  p.expose(d.InputParameterChanges),
		outputParameterChanges: p.expose(d.OutputParameterChanges),
		inputEvents:            p.expose(d.InputEvents),
		outputEvents:           p.expose(d.OutputEvents),
	}
	if nIn > 0 {
		p.pinner.Pin(&p.inputs[0])
		p.data.inputs = uintptr(unsafe.Pointer(&p.inputs[0]))
	}
	if nOut > 0 {
		p.pinner.Pin(&p.outputs[0])
		p.data.outputs = uintptr(unsafe.Pointer(&p.outputs[0]))
	}
	if d.Context != nil {
		p.pinner.Pin(d.Context)
		p.data.processContext = uintptr(unsafe.Pointer(d.Context))
	}
	return result(p.call1(slotProcess, uintptr(unsafe.Pointer(&p.data))))
}

func (p *nativeProcessor) fillBus(dst *cAudioBusBuffers, src *vst3.AudioBusBuffers, slot int) {
	n := len(src.Channels)
	if cap(p.channels[slot]) < n {
		p.channels[slot] = make([]uintptr, n)
	}
	ptrs := p.channels[slot][:n]
	for c, ch := range src.Channels {
		ptrs[c] = 0
		if len(ch) > 0 {
			p.pinner.Pin(&ch[0])
			ptrs[c] = uintptr(unsafe.Pointer(&ch[0]))
		}
	}
	*dst = cAudioBusBuffers{numChannels: int32(n), silenceFlags: src.SilenceFlags}
	if n > 0 {
		p.pinner.Pin(&ptrs[0])
		dst.channelBuffers = uintptr(unsafe.Pointer(&ptrs[0]))
	}
}

// expose hands obj to the plugin, remembering it when its shell is new.
// Change sets and event lists are recycled, so the list stops growing after
// the first blocks.
func (p *nativeProcessor) expose(obj any) uintptr {
	if obj == nil {
		return 0
	}
	ptr, created := expose(obj)
	if created {
		p.exposed = append(p.exposed, obj)
	}
	return ptr
}

// Release drops the plugin reference. The host never processes through
// this wrapper again, so the shells of the per-block objects go with it.
func (p *nativeProcessor) Release() uint32 {
	n := p.Object.Release()
	Unexpose(p.exposed...)
	p.exposed = nil
	return n
}

func exposeOrZero(obj any) uintptr {
	if obj == nil {
		return 0
	}
	return Expose(obj)
}
