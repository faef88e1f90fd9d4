package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/justyntemme/vst3host/pkg/framework/bus"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/framework/param"
	"github.com/justyntemme/vst3host/pkg/framework/process"
	"github.com/justyntemme/vst3host/pkg/framework/state"
	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/metrics"
	"github.com/justyntemme/vst3host/pkg/midi"
	"github.com/justyntemme/vst3host/pkg/provider"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

var (
	// ErrUnknownParameter is returned for a parameter id the plugin does
	// not expose.
	ErrUnknownParameter = errors.New("host: unknown parameter")
	// ErrReadOnly is returned when setting a read-only parameter.
	ErrReadOnly = errors.New("host: parameter is read-only")
)

// Unit is one node of the plugin's unit hierarchy.
type Unit struct {
	ID            int32
	ParentID      int32
	Name          string
	ProgramListID int32
}

// Instance is one open plugin.
type Instance struct {
	host   *Host
	module *moduleEntry
	info   vst3.ClassInfo
	log    *debug.Logger

	prov    *provider.Provider
	buses   *bus.Configuration
	params  *param.Registry
	state   *state.Manager
	proc    *process.Processor
	audio   *interop.Context
	handler *componentHandler
	mapping *interop.Ref

	active     bool
	processing bool
	latency    atomic.Uint32

	fifo    fifos
	midiOut *midi.Broadcaster
	editor  editor

	stop chan struct{}
	wg   sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// instantiate creates and starts an instance of classID. Control loop only.
func (h *Host) instantiate(e *moduleEntry, classID vst3.TUID) (*Instance, error) {
	info, err := e.factory.Find(classID)
	if err != nil {
		return nil, err
	}
	prov, err := provider.Create(e.factory, classID, h.app, h.table)
	if err != nil {
		return nil, err
	}
	i := &Instance{
		host:    h,
		module:  e,
		info:    info,
		log:     h.log.With(zap.String("plugin", info.Name)),
		prov:    prov,
		audio:   interop.NewPassive("audio:" + info.Name),
		midiOut: midi.NewBroadcaster(),
		stop:    make(chan struct{}),
	}
	if err := i.setup(); err != nil {
		err = multierr.Append(err, i.teardown())
		i.audio.Close()
		return nil, err
	}
	i.wg.Add(1)
	go i.pump()
	metrics.InstancesOpen.Inc()
	i.log.Info("instance open", zap.Bool("single", prov.Single()), zap.Uint32("latency", i.latency.Load()))
	return i, nil
}

func (i *Instance) setup() error {
	comp, proc, ctrl := i.prov.Component(), i.prov.Processor(), i.prov.Controller()

	buses, err := bus.Read(comp)
	if err != nil {
		return err
	}
	if err := buses.Activate(comp); err != nil {
		return err
	}
	if err := buses.Negotiate(proc); err != nil {
		return err
	}
	i.buses = buses

	i.proc = process.New(process.Options{
		Config:    i.host.cfg.Process(),
		Processor: proc,
		Buses:     buses,
		Timeline:  i.host.clock,
		Thread:    i.audio,
	})
	i.fifo = newFifos(buses.MainChannels(bus.DirectionInput), buses.MainChannels(bus.DirectionOutput), i.proc.MaxBlock())

	if i.params, err = param.Load(ctrl); err != nil {
		return err
	}
	i.state = state.NewManager(i.prov.ClassID(), comp, ctrl, i.prov.Single())
	if err := i.state.SyncController(); err != nil {
		return err
	}
	i.params.Refresh(ctrl)

	i.handler = newComponentHandler(i)
	if err := ignoreOptional(ctrl.SetComponentHandler(i.handler)); err != nil {
		return fmt.Errorf("set component handler: %w", err)
	}
	if m, err := vst3.Query[vst3.MidiMapping](ctrl, vst3.IIDMidiMapping); err == nil {
		i.mapping = i.host.table.Wrap(m)
	}

	if err := process.Prepare(proc, i.proc.Setup()); err != nil {
		return err
	}
	if err := ignoreOptional(comp.SetActive(true)); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	i.active = true
	if err := ignoreOptional(proc.SetProcessing(true)); err != nil {
		return fmt.Errorf("start processing: %w", err)
	}
	i.processing = true
	i.latency.Store(proc.LatencySamples())
	return nil
}

// teardown stops and releases the plugin in reverse setup order. It copes
// with a partial setup. Control loop only.
func (i *Instance) teardown() error {
	var err error
	err = multierr.Append(err, i.hideEditor())
	if i.processing {
		err = multierr.Append(err, ignoreOptional(i.prov.Processor().SetProcessing(false)))
	}
	if i.active {
		err = multierr.Append(err, ignoreOptional(i.prov.Component().SetActive(false)))
	}
	i.mapping.Release()
	if i.handler != nil {
		err = multierr.Append(err, ignoreOptional(i.prov.Controller().SetComponentHandler(nil)))
	}
	err = multierr.Append(err, i.prov.Close())
	if i.handler != nil {
		interop.Unexpose(i.handler)
		i.handler.Release()
	}
	return err
}

func ignoreOptional(err error) error {
	if err != nil && (vst3.IsNotImplemented(err) || errors.Is(err, vst3.ErrFalse)) {
		return nil
	}
	return err
}

// Info returns the descriptor of the instantiated class.
func (i *Instance) Info() vst3.ClassInfo { return i.info }

// Path returns the module path the instance was created from.
func (i *Instance) Path() string { return i.module.path }

// Buses returns the plugin's bus layout.
func (i *Instance) Buses() *bus.Configuration { return i.buses }

// Single reports whether the plugin's component is also its controller.
func (i *Instance) Single() bool { return i.prov.Single() }

// Latency returns the plugin's reported latency in samples.
func (i *Instance) Latency() uint32 { return i.latency.Load() }

// TailSamples returns the plugin's tail length in samples.
func (i *Instance) TailSamples() (uint32, error) {
	var tail uint32
	err := i.call(func() error {
		tail = i.prov.Processor().TailSamples()
		return nil
	})
	return tail, err
}

// Failures returns how many audio blocks the plugin failed.
func (i *Instance) Failures() int64 { return i.proc.Failures() }

// LastError returns the error of the last failed block.
func (i *Instance) LastError() error { return i.proc.LastError() }

// call runs fn on the control loop unless the instance is closed.
func (i *Instance) call(fn func() error) error {
	if i.closed.Load() {
		return ErrClosed
	}
	return i.host.control.Call(fn)
}

// post queues fn on the control loop, dropping it once closed.
func (i *Instance) post(fn func()) {
	if i.closed.Load() {
		return
	}
	if err := i.host.control.Post(fn); err != nil {
		i.log.Debug("control loop gone", zap.Error(err))
	}
}

// Process runs one block with caller-owned buffers: in and out are the
// main busses' channels. Audio thread only.
func (i *Instance) Process(n int, in, out [][]float32) error {
	if err := i.proc.Process(n, in, out); err != nil {
		if errors.Is(err, process.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Parameters returns a snapshot of every parameter.
func (i *Instance) Parameters() []param.Info { return i.params.Infos() }

// GetParameter returns the normalized value of parameter id.
func (i *Instance) GetParameter(id vst3.ParamID) (float64, error) {
	p := i.params.Get(id)
	if p == nil {
		return 0, fmt.Errorf("%w: %d", ErrUnknownParameter, id)
	}
	return p.GetValue(), nil
}

// SetParameter sets parameter id to a normalized value. The controller is
// updated at once and the processor with the next block.
func (i *Instance) SetParameter(id vst3.ParamID, value float64) error {
	p := i.params.Get(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownParameter, id)
	}
	if p.ReadOnly() {
		return fmt.Errorf("%w: %d", ErrReadOnly, id)
	}
	return i.call(func() error { return i.setParameter(id, value) })
}

func (i *Instance) setParameter(id vst3.ParamID, value float64) error {
	if err := ignoreOptional(i.prov.Controller().SetParamNormalized(id, value)); err != nil {
		return fmt.Errorf("set parameter %d: %w", id, err)
	}
	i.edited(id, value)
	return nil
}

// edited forwards a parameter edit made on the controller to the
// processor.
func (i *Instance) edited(id vst3.ParamID, value float64) {
	if p := i.params.Get(id); p != nil {
		p.SetValue(value)
	}
	i.proc.InputChanges().Add(id, 0, value)
	i.state.MarkDirty()
}

// GetState saves the plugin state. The result is only accepted by
// instances of the same class.
func (i *Instance) GetState() ([]byte, error) {
	var data []byte
	err := i.call(func() (err error) {
		data, err = i.state.Save()
		return err
	})
	return data, err
}

// SetState restores a state saved by GetState.
func (i *Instance) SetState(data []byte) error {
	return i.call(func() error {
		if err := i.state.Load(data); err != nil {
			return err
		}
		i.params.Refresh(i.prov.Controller())
		return nil
	})
}

// Dirty reports whether the state changed since the last GetState or
// SetState.
func (i *Instance) Dirty() bool { return i.state.Dirty() }

// Units enumerates the plugin's unit hierarchy, empty when the plugin
// has none.
func (i *Instance) Units() ([]Unit, error) {
	var units []Unit
	err := i.call(func() error {
		ui, err := vst3.Query[vst3.UnitInfoProvider](i.prov.Controller(), vst3.IIDUnitInfo)
		if err != nil {
			return nil
		}
		defer ui.Release()
		n := ui.UnitCount()
		for k := int32(0); k < n; k++ {
			info, err := ui.UnitInfo(k)
			if err != nil {
				continue
			}
			units = append(units, Unit{
				ID:            info.ID,
				ParentID:      info.ParentUnitID,
				Name:          info.Name.String(),
				ProgramListID: info.ProgramListID,
			})
		}
		return nil
	})
	return units, err
}

// Close stops the instance: no block starts after it returns, the plugin
// is deactivated and released, and the module is unloaded when this was
// its last instance.
func (i *Instance) Close() error {
	i.closeOnce.Do(func() {
		i.closed.Store(true)
		close(i.stop)
		i.wg.Wait()
		i.proc.Close(func() {
			i.closeErr = i.host.control.Call(i.teardown)
		})
		i.audio.Close()
		i.midiOut.Close()
		i.host.forget(i)
		i.closeErr = multierr.Append(i.closeErr, i.host.release(i.module))
		metrics.InstancesOpen.Dec()
		i.log.Info("instance closed")
	})
	return i.closeErr
}

// Closed reports whether Close was called.
func (i *Instance) Closed() bool { return i.closed.Load() }

// fifos queue main bus samples between the application and the audio
// callback, one ring buffer of little-endian float32 per channel.
type fifos struct {
	in, out []*ringbuffer.RingBuffer
	// block buffers, used by the audio callback only
	inBuf, outBuf [][]float32
	procBytes     []byte
	// producer and consumer scratch
	pushBytes, pullBytes []byte
}

// fifoBlocks is the capacity of each channel FIFO in maximum blocks.
const fifoBlocks = 8

func newFifos(inCh, outCh, maxBlock int) fifos {
	size := fifoBlocks * maxBlock * sampleBytes
	f := fifos{
		inBuf:     make([][]float32, inCh),
		outBuf:    make([][]float32, outCh),
		procBytes: make([]byte, maxBlock*sampleBytes),
		pushBytes: make([]byte, maxBlock*sampleBytes),
		pullBytes: make([]byte, maxBlock*sampleBytes),
	}
	for ch := 0; ch < inCh; ch++ {
		f.in = append(f.in, ringbuffer.New(size))
		f.inBuf[ch] = make([]float32, maxBlock)
	}
	for ch := 0; ch < outCh; ch++ {
		f.out = append(f.out, ringbuffer.New(size))
		f.outBuf[ch] = make([]float32, maxBlock)
	}
	return f
}

// ProcessBlock runs one block of n samples from the input FIFOs into the
// output FIFOs. Missing input reads as silence. Audio thread only.
func (i *Instance) ProcessBlock(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n = min(n, i.proc.MaxBlock())
	if n <= 0 {
		return nil
	}
	f := &i.fifo
	for ch, rb := range f.in {
		got := readSamples(rb, f.inBuf[ch][:n], f.procBytes)
		clear(f.inBuf[ch][got:n])
	}
	err := i.Process(n, f.inBuf, f.outBuf)
	if errors.Is(err, ErrClosed) {
		return err
	}
	for ch, rb := range f.out {
		if w := writeSamples(rb, f.outBuf[ch][:n], f.procBytes); w < n {
			i.log.Trace("output fifo full", zap.Int("channel", ch), zap.Int("dropped", n-w))
		}
	}
	return err
}

// PushAudioIn queues main input samples, one slice per channel, and
// returns how many frames were accepted.
func (i *Instance) PushAudioIn(bufs [][]float32) int {
	f := &i.fifo
	frames := framesOf(bufs, len(f.in))
	if frames == 0 {
		return 0
	}
	for _, rb := range f.in {
		frames = min(frames, rb.Free()/sampleBytes)
	}
	for ch, rb := range f.in {
		writeSamples(rb, bufs[ch][:frames], f.pushBytes)
	}
	return frames
}

// PullAudioOut dequeues processed output samples into bufs, one slice per
// channel, and returns how many frames were written.
func (i *Instance) PullAudioOut(bufs [][]float32) int {
	f := &i.fifo
	frames := framesOf(bufs, len(f.out))
	if frames == 0 {
		return 0
	}
	for _, rb := range f.out {
		frames = min(frames, rb.Length()/sampleBytes)
	}
	for ch, rb := range f.out {
		readSamples(rb, bufs[ch][:frames], f.pullBytes)
	}
	return frames
}

func framesOf(bufs [][]float32, channels int) int {
	if channels == 0 || len(bufs) < channels {
		return 0
	}
	frames := len(bufs[0])
	for _, b := range bufs[:channels] {
		frames = min(frames, len(b))
	}
	return frames
}
