package host

import (
	"context"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/midi"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// PushMIDI queues msg for the next block. It blocks while the queue is
// full, until ctx is done.
func (i *Instance) PushMIDI(ctx context.Context, msg gomidi.Message) error {
	if i.closed.Load() {
		return ErrClosed
	}
	return i.proc.MIDIIn().Push(ctx, msg)
}

// SubscribeMIDIOut returns the MIDI messages the plugin emits, buffered by
// buf, and a function ending the subscription. A subscriber that falls
// behind loses messages.
func (i *Instance) SubscribeMIDIOut(buf int) (<-chan gomidi.Message, func()) {
	return i.midiOut.Subscribe(buf)
}

// pump moves what the audio thread hands off to the control side.
func (i *Instance) pump() {
	defer i.wg.Done()
	relay := i.proc.OutputEvents()
	for {
		select {
		case <-i.stop:
			return
		case msg := <-i.proc.Redirected():
			i.post(func() { i.applyMapped(msg) })
		case <-i.proc.OutputChanges().Ready():
			i.post(i.applyOutputChanges)
		case l := <-relay.Lists():
			i.relayEvents(l)
			relay.Recycle(l)
		}
	}
}

// applyMapped resolves a controller message through the plugin's MIDI
// mapping into a parameter edit. Control loop only.
func (i *Instance) applyMapped(msg gomidi.Message) {
	if i.closed.Load() {
		return
	}
	channel, ctrl, value, ok := midi.Controller(msg)
	if !ok {
		return
	}
	mapping, ok := interop.As[vst3.MidiMapping](i.mapping)
	if !ok {
		i.log.Trace("no midi mapping, message dropped", zap.Stringer("msg", msg))
		return
	}
	id, err := mapping.MidiControllerAssignment(0, channel, ctrl)
	if err != nil {
		i.log.Trace("controller not mapped", zap.Int16("ctrl", ctrl), zap.Error(err))
		return
	}
	if err := i.setParameter(id, value); err != nil {
		i.log.Debug("mapped edit failed", zap.Uint32("id", id), zap.Error(err))
	}
}

// applyOutputChanges claims the plugin's published output parameter
// changes and hands them to the controller. Control loop only.
func (i *Instance) applyOutputChanges() {
	out := i.proc.OutputChanges()
	c := out.Claim()
	if c == nil {
		return
	}
	defer out.Done(c)
	if i.closed.Load() {
		return
	}
	ctrl := i.prov.Controller()
	c.Each(func(id vst3.ParamID, value vst3.ParamValue) {
		if p := i.params.Get(id); p != nil {
			p.SetValue(value)
		}
		_ = ctrl.SetParamNormalized(id, value)
	})
	i.state.MarkDirty()
}

func (i *Instance) relayEvents(l *midi.EventList) {
	events := l.Events()
	for k := range events {
		msg, ok := midi.FromEvent(&events[k])
		if !ok {
			if events[k].Type == vst3.EventLegacyMIDICCOut {
				i.log.Trace("legacy controller has no midi form",
					zap.Uint8("ctrl", events[k].LegacyMIDICCOut().ControlNumber))
				continue
			}
			i.log.Trace("event has no midi form", zap.Uint16("type", events[k].Type))
			continue
		}
		i.midiOut.Publish(msg)
	}
}
