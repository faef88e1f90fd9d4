package midi

import (
	"math"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Common MIDI controller numbers.
const (
	CCModWheel    uint8 = 1
	CCBreath      uint8 = 2
	CCVolume      uint8 = 7
	CCPan         uint8 = 10
	CCExpression  uint8 = 11
	CCSustain     uint8 = 64
	CCAllSoundOff uint8 = 120
	CCResetAll    uint8 = 121
	CCAllNotesOff uint8 = 123
)

const pitchBendRange = 16383

// Kind classifies how an input message reaches the plugin.
type Kind int

const (
	// Unsupported messages are dropped.
	Unsupported Kind = iota
	// Inline messages become events in the block's event list.
	Inline
	// Mapped messages go through the plugin's MIDI mapping on the control
	// loop and become parameter edits.
	Mapped
)

func normalize7(v uint8) float32 { return float32(v) / 127 }

func denormalize7(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 127
	}
	return uint8(math.Round(float64(v) * 127))
}

// ToEvent translates msg into e when it maps onto a plugin event. Note
// velocities and pressures are normalized to 0..1. Sysex is referenced,
// not copied; EventList.AddEvent copies it.
func ToEvent(msg gomidi.Message, bus, offset int32, e *vst3.Event) Kind {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		e.SetNoteOn(bus, offset, vst3.NoteOnEvent{
			Channel:  int16(ch),
			Pitch:    int16(key),
			Velocity: normalize7(vel),
			NoteID:   -1,
		})
		return Inline
	case msg.GetNoteOff(&ch, &key, &vel):
		e.SetNoteOff(bus, offset, vst3.NoteOffEvent{
			Channel:  int16(ch),
			Pitch:    int16(key),
			Velocity: normalize7(vel),
			NoteID:   -1,
		})
		return Inline
	case msg.GetNoteEnd(&ch, &key):
		// note-on with zero velocity
		e.SetNoteOff(bus, offset, vst3.NoteOffEvent{
			Channel: int16(ch),
			Pitch:   int16(key),
			NoteID:  -1,
		})
		return Inline
	case msg.GetPolyAfterTouch(&ch, &key, &vel):
		e.SetPolyPressure(bus, offset, vst3.PolyPressureEvent{
			Channel:  int16(ch),
			Pitch:    int16(key),
			Pressure: normalize7(vel),
			NoteID:   -1,
		})
		return Inline
	case len(msg) > 1 && msg[0] == 0xF0:
		e.SetData(bus, offset, msg)
		return Inline
	}
	if _, _, _, ok := Controller(msg); ok {
		return Mapped
	}
	return Unsupported
}

// Controller extracts the controller number and normalized value of a
// message resolved through MIDI mapping: control change, channel pressure,
// pitch bend and program change.
func Controller(msg gomidi.Message) (channel int16, ctrl vst3.CtrlNumber, value float64, ok bool) {
	var ch, a, b uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetControlChange(&ch, &a, &b):
		return int16(ch), vst3.CtrlNumber(a), float64(b) / 127, true
	case msg.GetAfterTouch(&ch, &a):
		return int16(ch), vst3.CtrlAfterTouch, float64(a) / 127, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return int16(ch), vst3.CtrlPitchBend, float64(abs) / pitchBendRange, true
	case msg.GetProgramChange(&ch, &a):
		return int16(ch), vst3.CtrlProgramChange, float64(a) / 127, true
	}
	return 0, 0, 0, false
}

// FromEvent translates a plugin output event into a MIDI message. Note
// expression, chord and scale events have no MIDI form and report false.
func FromEvent(e *vst3.Event) (gomidi.Message, bool) {
	switch e.Type {
	case vst3.EventNoteOn:
		n := e.NoteOn()
		vel := denormalize7(n.Velocity)
		if vel == 0 {
			vel = 1
		}
		return gomidi.NoteOn(uint8(n.Channel), uint8(n.Pitch), vel), true
	case vst3.EventNoteOff:
		n := e.NoteOff()
		return gomidi.NoteOffVelocity(uint8(n.Channel), uint8(n.Pitch), denormalize7(n.Velocity)), true
	case vst3.EventPolyPressure:
		p := e.PolyPressure()
		return gomidi.PolyAfterTouch(uint8(p.Channel), uint8(p.Pitch), denormalize7(p.Pressure)), true
	case vst3.EventData:
		if e.Data().Type != vst3.DataTypeMidiSysEx {
			return nil, false
		}
		data := e.DataBytes()
		if len(data) == 0 {
			return nil, false
		}
		if data[0] == 0xF0 {
			return gomidi.Message(append([]byte(nil), data...)), true
		}
		return gomidi.SysEx(data), true
	case vst3.EventLegacyMIDICCOut:
		return fromLegacyCC(e.LegacyMIDICCOut())
	}
	return nil, false
}

func fromLegacyCC(cc *vst3.LegacyMIDICCOutEvent) (gomidi.Message, bool) {
	ch := uint8(cc.Channel) & 0x0F
	v1, v2 := uint8(cc.Value)&0x7F, uint8(cc.Value2)&0x7F
	switch ctrl := vst3.CtrlNumber(cc.ControlNumber); {
	case ctrl < 128:
		return gomidi.ControlChange(ch, uint8(ctrl), v1), true
	case ctrl == vst3.CtrlProgramChange:
		return gomidi.ProgramChange(ch, v1), true
	case ctrl == vst3.CtrlPolyPressure:
		return gomidi.PolyAfterTouch(ch, v1, v2), true
	case ctrl == vst3.CtrlAfterTouch:
		return gomidi.AfterTouch(ch, v1), true
	case ctrl == vst3.CtrlPitchBend:
		bend := int16(uint16(v2)<<7|uint16(v1)) - 8192
		return gomidi.Pitchbend(ch, bend), true
	case ctrl == vst3.CtrlQuarterFrame:
		return gomidi.MTC(v1), true
	}
	return nil, false
}
