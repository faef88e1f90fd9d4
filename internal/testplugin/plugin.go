package testplugin

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Class ids
var (
	ProcessorClassID  = vst3.InlineUID(0x5E1F0001, 0x7E57AB1E, 0x00C0FFEE, 0x00000001)
	ControllerClassID = vst3.InlineUID(0x5E1F0001, 0x7E57AB1E, 0x00C0FFEE, 0x00000002)
)

// Options shape the plugin's capabilities.
type Options struct {
	// Split makes the controller a separate object.
	Split bool
	// NoConnection drops IConnectionPoint from both halves.
	NoConnection bool
	// NoMidiMapping and NoUnits drop the optional controller interfaces.
	NoMidiMapping bool
	NoUnits       bool
	// Category overrides the processor class category.
	Category string
	// AuxInput adds a sidechain input bus.
	AuxInput bool
	// Channels of the main busses, 2 when zero.
	Channels int32
	Latency  uint32
}

func (o Options) channels() int32 {
	if o.Channels == 0 {
		return 2
	}
	return o.Channels
}

type busKey struct {
	media vst3.MediaType
	dir   vst3.BusDirection
	index int32
}

// Plugin is the processing half, and the controller too unless split.
type Plugin struct {
	vst3.RefCount
	*paramSet

	opts Options
	Log  *Log

	mu         sync.Mutex
	host       vst3.Unknown
	peer       vst3.ConnectionPoint
	busActive  map[busKey]bool
	setup      vst3.ProcessSetup
	arrIn      []vst3.SpeakerArrangement
	arrOut     []vst3.SpeakerArrangement
	events     []vst3.Event
	changes    map[vst3.ParamID]vst3.ParamValue
	lastCtx    vst3.ProcessContext
	lastInputs int

	gain       atomic.Uint64
	active     atomic.Bool
	processing atomic.Bool
	blocks     atomic.Int32
	terminated atomic.Bool

	// FailProcess makes Process return an error.
	FailProcess atomic.Bool
	// PanicProcess makes Process panic.
	PanicProcess atomic.Bool
	// OnNotify observes messages arriving at this half.
	OnNotify func(msg vst3.Message)
	// Released is closed when the last reference is dropped.
	Released chan struct{}
}

// NewPlugin creates a plugin with one reference.
func NewPlugin(opts Options, log *Log) *Plugin {
	if log == nil {
		log = &Log{}
	}
	p := &Plugin{
		paramSet:  newParamSet(log, opts),
		opts:      opts,
		Log:       log,
		busActive: make(map[busKey]bool),
		changes:   make(map[vst3.ParamID]vst3.ParamValue),
		Released:  make(chan struct{}),
	}
	p.gain.Store(math.Float64bits(1))
	p.Init()
	p.OnFinalRelease = func() {
		log.Add("component.release")
		close(p.Released)
	}
	return p
}

// QueryInterface implements vst3.Unknown.
func (p *Plugin) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDPluginBase, vst3.IIDComponent, vst3.IIDAudioProcessor:
	case vst3.IIDConnectionPoint:
		if p.opts.NoConnection {
			return nil, vst3.ErrNoInterface
		}
	case vst3.IIDEditController:
		if p.opts.Split {
			return nil, vst3.ErrNoInterface
		}
	case vst3.IIDMidiMapping:
		if p.opts.Split || p.opts.NoMidiMapping {
			return nil, vst3.ErrNoInterface
		}
	case vst3.IIDUnitInfo:
		if p.opts.Split || p.opts.NoUnits {
			return nil, vst3.ErrNoInterface
		}
	default:
		return nil, vst3.ErrNoInterface
	}
	p.AddRef()
	return p, nil
}

// Initialize implements vst3.PluginBase.
func (p *Plugin) Initialize(host vst3.Unknown) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.host != nil {
		return vst3.ErrFalse
	}
	if host != nil {
		host.AddRef()
	}
	p.host = host
	p.Log.Add("component.initialize")
	return nil
}

// Terminate implements vst3.PluginBase.
func (p *Plugin) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.host != nil {
		p.host.Release()
		p.host = nil
	}
	if !p.opts.Split {
		p.paramSet.releaseHandler()
	}
	p.terminated.Store(true)
	p.Log.Add("component.terminate")
	return nil
}

// ControllerClassID implements vst3.Component.
func (p *Plugin) ControllerClassID() (vst3.TUID, error) {
	if !p.opts.Split {
		return vst3.TUID{}, vst3.ErrNotImplemented
	}
	return ControllerClassID, nil
}

// SetIOMode implements vst3.Component.
func (p *Plugin) SetIOMode(mode int32) error { return vst3.ErrNotImplemented }

func (p *Plugin) busCount(media vst3.MediaType, dir vst3.BusDirection) int32 {
	if media == vst3.MediaTypeEvent {
		return 1
	}
	if dir == vst3.BusDirectionInput && p.opts.AuxInput {
		return 2
	}
	return 1
}

// BusCount implements vst3.Component.
func (p *Plugin) BusCount(media vst3.MediaType, dir vst3.BusDirection) int32 {
	return p.busCount(media, dir)
}

// BusInfo implements vst3.Component.
func (p *Plugin) BusInfo(media vst3.MediaType, dir vst3.BusDirection, index int32) (vst3.BusInfo, error) {
	if index < 0 || index >= p.busCount(media, dir) {
		return vst3.BusInfo{}, vst3.ErrInvalidArgument
	}
	info := vst3.BusInfo{
		MediaType:    media,
		Direction:    dir,
		ChannelCount: p.opts.channels(),
		BusType:      vst3.BusTypeMain,
		Flags:        vst3.BusDefaultActive,
	}
	switch {
	case media == vst3.MediaTypeEvent:
		info.ChannelCount = 16
		info.Name.Set("MIDI")
	case index == 1:
		info.BusType = vst3.BusTypeAux
		info.Flags = 0
		info.Name.Set("Sidechain")
	case dir == vst3.BusDirectionInput:
		info.Name.Set("Input")
	default:
		info.Name.Set("Output")
	}
	return info, nil
}

// ActivateBus implements vst3.Component.
func (p *Plugin) ActivateBus(media vst3.MediaType, dir vst3.BusDirection, index int32, state bool) error {
	if index < 0 || index >= p.busCount(media, dir) {
		return vst3.ErrInvalidArgument
	}
	p.mu.Lock()
	p.busActive[busKey{media, dir, index}] = state
	p.mu.Unlock()
	return nil
}

// BusActive reports the activation state the host requested.
func (p *Plugin) BusActive(media vst3.MediaType, dir vst3.BusDirection, index int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busActive[busKey{media, dir, index}]
}

// SetActive implements vst3.Component.
func (p *Plugin) SetActive(state bool) error {
	p.active.Store(state)
	p.Log.Add(fmt.Sprintf("component.setActive(%t)", state))
	return nil
}

// Active reports the component's active flag.
func (p *Plugin) Active() bool { return p.active.Load() }

// SetState implements vst3.Component and, for a single object, the
// controller state as well.
func (p *Plugin) SetState(s vst3.Stream) error {
	data, err := vst3.ReadAll(s)
	if err != nil {
		return err
	}
	if len(data) != 8 {
		return vst3.ErrInvalidArgument
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(data))
	p.gain.Store(math.Float64bits(v))
	_ = p.paramSet.SetParamNormalized(ParamGain, v)
	p.Log.Add("component.setState")
	return nil
}

// GetState implements vst3.Component.
func (p *Plugin) GetState(s vst3.Stream) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], p.gain.Load())
	_, err := s.Write(buf[:])
	return err
}

// Gain returns the gain the processor applies.
func (p *Plugin) Gain() float64 { return math.Float64frombits(p.gain.Load()) }

// SetBusArrangements implements vst3.AudioProcessor.
func (p *Plugin) SetBusArrangements(inputs, outputs []vst3.SpeakerArrangement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.arrIn = append([]vst3.SpeakerArrangement(nil), inputs...)
	p.arrOut = append([]vst3.SpeakerArrangement(nil), outputs...)
	return nil
}

// Arrangements returns what the host proposed.
func (p *Plugin) Arrangements() (in, out []vst3.SpeakerArrangement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.arrIn, p.arrOut
}

// BusArrangement implements vst3.AudioProcessor.
func (p *Plugin) BusArrangement(dir vst3.BusDirection, index int32) (vst3.SpeakerArrangement, error) {
	if index < 0 || index >= p.busCount(vst3.MediaTypeAudio, dir) {
		return 0, vst3.ErrInvalidArgument
	}
	if p.opts.channels() == 1 {
		return vst3.SpeakerArrMono, nil
	}
	return vst3.SpeakerArrStereo, nil
}

// CanProcessSampleSize implements vst3.AudioProcessor.
func (p *Plugin) CanProcessSampleSize(size int32) error {
	if size == vst3.SampleSize32 {
		return nil
	}
	return vst3.ErrFalse
}

// LatencySamples implements vst3.AudioProcessor.
func (p *Plugin) LatencySamples() uint32 { return p.opts.Latency }

// TailSamples implements vst3.AudioProcessor.
func (p *Plugin) TailSamples() uint32 { return 0 }

// SetupProcessing implements vst3.AudioProcessor.
func (p *Plugin) SetupProcessing(setup vst3.ProcessSetup) error {
	p.mu.Lock()
	p.setup = setup
	p.mu.Unlock()
	p.Log.Add("processor.setupProcessing")
	return nil
}

// Setup returns the negotiated process setup.
func (p *Plugin) Setup() vst3.ProcessSetup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setup
}

// SetProcessing implements vst3.AudioProcessor.
func (p *Plugin) SetProcessing(state bool) error {
	p.processing.Store(state)
	p.Log.Add(fmt.Sprintf("processor.setProcessing(%t)", state))
	return nil
}

// Process multiplies the main input by the gain parameter, echoes note
// events to the output and reports the output peak as a parameter change.
func (p *Plugin) Process(d *vst3.ProcessData) error {
	if p.PanicProcess.Load() {
		panic("testplugin: process panic")
	}
	if p.FailProcess.Load() {
		return vst3.ErrInternal
	}
	p.blocks.Add(1)
	n := int(d.NumSamples)

	p.mu.Lock()
	if d.InputParameterChanges != nil {
		for i := int32(0); i < d.InputParameterChanges.ParameterCount(); i++ {
			q := d.InputParameterChanges.ParameterData(i)
			if q == nil || q.PointCount() == 0 {
				continue
			}
			_, v, err := q.Point(q.PointCount() - 1)
			if err != nil {
				continue
			}
			p.changes[q.ParameterID()] = v
			if q.ParameterID() == ParamGain {
				p.gain.Store(math.Float64bits(v))
			}
		}
	}
	if d.InputEvents != nil {
		var e vst3.Event
		for i := int32(0); i < d.InputEvents.EventCount(); i++ {
			if d.InputEvents.Event(i, &e) != nil {
				continue
			}
			p.events = append(p.events, e)
			if d.OutputEvents != nil && (e.Type == vst3.EventNoteOn || e.Type == vst3.EventNoteOff) {
				_ = d.OutputEvents.AddEvent(&e)
			}
		}
	}
	if d.Context != nil {
		p.lastCtx = *d.Context
	}
	p.lastInputs = len(d.Inputs)
	p.mu.Unlock()

	gain := float32(p.Gain())
	var peak float32
	if out := d.Output(0); out != nil {
		in := d.Input(0)
		for ch, dst := range out.Channels {
			var src []float32
			if in != nil {
				src = in.Channel(ch)
			}
			for i := 0; i < n && i < len(dst); i++ {
				var s float32
				if i < len(src) {
					s = src[i]
				}
				dst[i] = s * gain
				if a := float32(math.Abs(float64(dst[i]))); a > peak {
					peak = a
				}
			}
		}
	}
	if d.OutputParameterChanges != nil && n > 0 {
		if q, _ := d.OutputParameterChanges.AddParameterData(ParamMeter); q != nil {
			_, _ = q.AddPoint(int32(n-1), math.Min(float64(peak), 1))
		}
	}
	return nil
}

// Blocks returns how many blocks were processed successfully.
func (p *Plugin) Blocks() int { return int(p.blocks.Load()) }

// Events returns the input events seen so far.
func (p *Plugin) Events() []vst3.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]vst3.Event(nil), p.events...)
}

// ReceivedChange returns the last automated value seen for id.
func (p *Plugin) ReceivedChange(id vst3.ParamID) (vst3.ParamValue, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.changes[id]
	return v, ok
}

// LastContext returns the last process context.
func (p *Plugin) LastContext() vst3.ProcessContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCtx
}

// LastInputBusCount returns how many input busses the last block carried.
func (p *Plugin) LastInputBusCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastInputs
}

// SetComponentState implements vst3.EditController for a single object.
func (p *Plugin) SetComponentState(s vst3.Stream) error {
	p.Log.Add("controller.setComponentState")
	return nil
}

// CreateView implements vst3.EditController.
func (p *Plugin) CreateView(name string) (vst3.PlugView, error) {
	return p.createView(name)
}

// Connect implements vst3.ConnectionPoint.
func (p *Plugin) Connect(other vst3.ConnectionPoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer != nil {
		return vst3.ErrInvalidArgument
	}
	other.AddRef()
	p.peer = other
	p.Log.Add("component.connect")
	return nil
}

// Disconnect implements vst3.ConnectionPoint.
func (p *Plugin) Disconnect(other vst3.ConnectionPoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer == nil || p.peer != other {
		return vst3.ErrInvalidArgument
	}
	p.peer.Release()
	p.peer = nil
	p.Log.Add("component.disconnect")
	return nil
}

// Notify implements vst3.ConnectionPoint.
func (p *Plugin) Notify(msg vst3.Message) error {
	p.Log.Add("component.notify:" + msg.MessageID())
	if p.OnNotify != nil {
		p.OnNotify(msg)
	}
	return nil
}

// Send notifies the connected peer.
func (p *Plugin) Send(id string) error {
	p.mu.Lock()
	peer, host := p.peer, p.host
	p.mu.Unlock()
	return send(peer, host, id)
}

// Terminated reports whether Terminate was called.
func (p *Plugin) Terminated() bool { return p.terminated.Load() }
