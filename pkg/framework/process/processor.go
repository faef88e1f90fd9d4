// Package process runs plugin audio blocks on the real-time thread: it
// assembles bus buffers, hands parameter and event exchanges to the plugin
// and forwards what the plugin produced.
package process

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/justyntemme/vst3host/pkg/automation"
	"github.com/justyntemme/vst3host/pkg/framework/bus"
	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/metrics"
	"github.com/justyntemme/vst3host/pkg/midi"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// ErrClosed is returned by Process after Close.
var ErrClosed = errors.New("process: processor closed")

// Config sizes the buffers and queues of a processor.
type Config struct {
	SampleRate float64
	MaxBlock   int
	// MIDIQueue is the capacity of the input MIDI queue.
	MIDIQueue int
	// EventCapacity and SysexBytes size each event list.
	EventCapacity int
	SysexBytes    int
	// OutputLists is how many output event lists cycle to the control side.
	OutputLists int
	// Redirect is the capacity for MIDI messages resolved on the control side.
	Redirect int
	// ParamQueues and ParamPoints size each parameter change set.
	ParamQueues int
	ParamPoints int
	// ParamSets is the number of pooled input change sets.
	ParamSets int
}

// DefaultConfig returns the sizes used when a field is zero.
func DefaultConfig() Config {
	return Config{
		SampleRate:    48000,
		MaxBlock:      512,
		MIDIQueue:     1024,
		EventCapacity: 512,
		SysexBytes:    4096,
		OutputLists:   4,
		Redirect:      256,
		ParamQueues:   64,
		ParamPoints:   16,
		ParamSets:     4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.MaxBlock <= 0 {
		c.MaxBlock = d.MaxBlock
	}
	if c.MIDIQueue <= 0 {
		c.MIDIQueue = d.MIDIQueue
	}
	if c.EventCapacity <= 0 {
		c.EventCapacity = d.EventCapacity
	}
	if c.SysexBytes <= 0 {
		c.SysexBytes = d.SysexBytes
	}
	if c.OutputLists <= 0 {
		c.OutputLists = d.OutputLists
	}
	if c.Redirect <= 0 {
		c.Redirect = d.Redirect
	}
	if c.ParamQueues <= 0 {
		c.ParamQueues = d.ParamQueues
	}
	if c.ParamPoints <= 0 {
		c.ParamPoints = d.ParamPoints
	}
	if c.ParamSets <= 0 {
		c.ParamSets = d.ParamSets
	}
	return c
}

// Options wires a processor to its plugin.
type Options struct {
	Config
	Processor vst3.AudioProcessor
	Buses     *bus.Configuration
	// Timeline provides the transport snapshot, a private one when nil.
	Timeline *Timeline
	// Thread is the passive interop context of the audio thread. Pending
	// releases are flushed at the start of every block.
	Thread *interop.Context
}

// Processor runs one plugin instance's audio blocks. Process is called
// from a single audio thread; everything else is safe from any goroutine.
type Processor struct {
	cfg    Config
	proc   vst3.AudioProcessor
	clock  *Timeline
	thread *interop.Context
	arena  *Arena

	// gate is only contended by Close.
	gate   sync.Mutex
	closed atomic.Bool

	midiIn   *midi.InputQueue
	events   *midi.EventList
	relay    *midi.OutputRelay
	redirect chan gomidi.Message
	params   *automation.InputExchange
	out      *automation.OutputExchange

	inBuses   []*bus.Info
	outBuses  []*bus.Info
	scratch   [][][]float32
	eventsIn  bool
	eventsOut bool

	data   vst3.ProcessData
	ctx    vst3.ProcessContext
	ev     vst3.Event
	onMIDI func(gomidi.Message)

	failures atomic.Int64
	lastErr  atomic.Pointer[error]
}

// New preallocates everything a block needs.
func New(opts Options) *Processor {
	cfg := opts.Config.withDefaults()
	p := &Processor{
		cfg:      cfg,
		proc:     opts.Processor,
		clock:    opts.Timeline,
		thread:   opts.Thread,
		arena:    Zeros(),
		midiIn:   midi.NewInputQueue(cfg.MIDIQueue),
		events:   midi.NewEventList(cfg.EventCapacity, cfg.SysexBytes),
		relay:    midi.NewOutputRelay(cfg.OutputLists, cfg.EventCapacity, cfg.SysexBytes),
		redirect: make(chan gomidi.Message, cfg.Redirect),
		params:   automation.NewInputExchange(automation.NewPool(cfg.ParamSets, cfg.ParamQueues, cfg.ParamPoints)),
		out:      automation.NewOutputExchange(cfg.ParamQueues, cfg.ParamPoints),
	}
	if p.clock == nil {
		p.clock = NewTimeline(cfg.SampleRate)
	}
	p.onMIDI = p.translate
	p.arena.Zero(cfg.MaxBlock)

	buses := opts.Buses
	if buses == nil {
		buses = &bus.Configuration{}
	}
	p.inBuses = buses.Buses(bus.MediaTypeAudio, bus.DirectionInput)
	p.outBuses = buses.Buses(bus.MediaTypeAudio, bus.DirectionOutput)
	p.eventsIn = buses.GetBusCount(bus.MediaTypeEvent, bus.DirectionInput) > 0
	p.eventsOut = buses.GetBusCount(bus.MediaTypeEvent, bus.DirectionOutput) > 0

	p.data.Inputs = make([]vst3.AudioBusBuffers, len(p.inBuses))
	for i, b := range p.inBuses {
		p.data.Inputs[i].Channels = make([][]float32, b.ChannelCount)
	}
	p.data.Outputs = make([]vst3.AudioBusBuffers, len(p.outBuses))
	p.scratch = make([][][]float32, len(p.outBuses))
	for i, b := range p.outBuses {
		p.data.Outputs[i].Channels = make([][]float32, b.ChannelCount)
		p.scratch[i] = make([][]float32, b.ChannelCount)
		for ch := range p.scratch[i] {
			p.scratch[i][ch] = make([]float32, cfg.MaxBlock)
		}
	}
	return p
}

// Setup is the configuration to hand to SetupProcessing.
func (p *Processor) Setup() vst3.ProcessSetup {
	return vst3.ProcessSetup{
		ProcessMode:        vst3.ProcessModeRealtime,
		SymbolicSampleSize: vst3.SampleSize32,
		MaxSamplesPerBlock: int32(p.cfg.MaxBlock),
		SampleRate:         p.cfg.SampleRate,
	}
}

// Prepare checks 32-bit support and negotiates the process setup. It must
// run on the plugin's control thread.
func Prepare(proc vst3.AudioProcessor, setup vst3.ProcessSetup) error {
	if err := proc.CanProcessSampleSize(vst3.SampleSize32); err != nil && !vst3.IsNotImplemented(err) {
		return fmt.Errorf("32-bit processing unsupported: %w", err)
	}
	if err := proc.SetupProcessing(setup); err != nil && !vst3.IsNotImplemented(err) {
		return fmt.Errorf("setup processing: %w", err)
	}
	return nil
}

// MIDIIn is the queue producers push MIDI into.
func (p *Processor) MIDIIn() *midi.InputQueue { return p.midiIn }

// Redirected delivers controller, pitch bend and program change messages
// drained from MIDIIn. They need the plugin's MIDI mapping, which is only
// available on the control thread.
func (p *Processor) Redirected() <-chan gomidi.Message { return p.redirect }

// OutputEvents relays the events the plugin emitted.
func (p *Processor) OutputEvents() *midi.OutputRelay { return p.relay }

// InputChanges collects control-side parameter edits for the next block.
func (p *Processor) InputChanges() *automation.InputExchange { return p.params }

// OutputChanges publishes the plugin's output parameter changes.
func (p *Processor) OutputChanges() *automation.OutputExchange { return p.out }

// Timeline returns the clock snapshots are taken from.
func (p *Processor) Timeline() *Timeline { return p.clock }

// MaxBlock returns the largest block handed to the plugin.
func (p *Processor) MaxBlock() int { return p.cfg.MaxBlock }

// Failures returns how many blocks were dropped.
func (p *Processor) Failures() int64 { return p.failures.Load() }

// LastError returns the error of the last dropped block.
func (p *Processor) LastError() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// Process runs one block of n samples. in and out are the main busses'
// channel buffers; missing input channels read silence and missing output
// channels go to scratch. n is clamped to the negotiated maximum block.
// A failing plugin drops only this block: outputs are silenced and the
// error is returned, the processor stays usable.
func (p *Processor) Process(n int, in, out [][]float32) error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.gate.Lock()
	defer p.gate.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}
	if p.thread != nil {
		p.thread.Enter()
		defer p.thread.Leave()
		p.thread.Drain()
	}
	if n > p.cfg.MaxBlock {
		n = p.cfg.MaxBlock
	}
	if n <= 0 {
		return nil
	}

	p.events.Clear()
	p.midiIn.Drain(p.onMIDI)
	changes := p.params.Take()
	p.assemble(n, in, out)
	p.clock.Snapshot(&p.ctx)

	d := &p.data
	d.ProcessMode = vst3.ProcessModeRealtime
	d.SymbolicSampleSize = vst3.SampleSize32
	d.NumSamples = int32(n)
	d.InputParameterChanges = changes
	d.OutputParameterChanges = p.out.Pending()
	d.InputEvents, d.OutputEvents = nil, nil
	if p.eventsIn {
		d.InputEvents = p.events
	}
	if p.eventsOut {
		d.OutputEvents = p.relay.List()
	}
	d.Context = &p.ctx

	err := p.call()
	p.params.Recycle(changes)
	if err != nil {
		metrics.BlocksFailed.Inc()
		p.failures.Add(1)
		p.lastErr.Store(&err)
		p.relay.List().Clear()
		for _, ch := range out {
			clear(ch[:min(n, len(ch))])
		}
		return err
	}
	metrics.BlocksProcessed.Inc()
	p.relay.Flush()
	p.out.Publish()
	return nil
}

func (p *Processor) call() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: process panicked: %v", vst3.ErrInternal, r)
		}
	}()
	return p.proc.Process(&p.data)
}

// assemble points the bus buffers at this block's memory. The first main
// bus in each direction carries the live buffers, every other bus reads
// shared silence or writes scratch.
func (p *Processor) assemble(n int, in, out [][]float32) {
	zero := p.arena.Zero(n)
	live := true
	for i, b := range p.inBuses {
		bb := &p.data.Inputs[i]
		bb.SilenceFlags = 0
		main := live && b.BusType == bus.TypeMain
		if main {
			live = false
		}
		for ch := range bb.Channels {
			if main && ch < len(in) && len(in[ch]) >= n {
				bb.Channels[ch] = in[ch][:n]
				continue
			}
			bb.Channels[ch] = zero
			if ch < 64 {
				bb.SilenceFlags |= 1 << uint(ch)
			}
		}
	}
	live = true
	for i, b := range p.outBuses {
		bb := &p.data.Outputs[i]
		bb.SilenceFlags = 0
		main := live && b.BusType == bus.TypeMain
		if main {
			live = false
		}
		for ch := range bb.Channels {
			if main && ch < len(out) && len(out[ch]) >= n {
				bb.Channels[ch] = out[ch][:n]
			} else {
				bb.Channels[ch] = p.scratch[i][ch][:n]
			}
		}
	}
}

func (p *Processor) translate(msg gomidi.Message) {
	switch midi.ToEvent(msg, 0, 0, &p.ev) {
	case midi.Inline:
		if err := p.events.AddEvent(&p.ev); err != nil {
			metrics.MIDIEventsDropped.Inc()
		}
	case midi.Mapped:
		select {
		case p.redirect <- msg:
		default:
			metrics.MIDIEventsDropped.Inc()
		}
	default:
		metrics.MIDIEventsDropped.Inc()
	}
}

// Close stops the processor: no block starts after it returns, and an
// in-flight block is waited for. release then runs while blocks are held
// off, so native resources can be freed safely.
func (p *Processor) Close(release func()) {
	p.closed.Store(true)
	p.gate.Lock()
	defer p.gate.Unlock()
	if release != nil {
		release()
	}
}

// Closed reports whether Close was called.
func (p *Processor) Closed() bool { return p.closed.Load() }
