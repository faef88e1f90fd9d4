package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

func TestToEvent(t *testing.T) {
	tests := []struct {
		name  string
		msg   gomidi.Message
		kind  Kind
		check func(t *testing.T, e *vst3.Event)
	}{
		{
			name: "note on",
			msg:  gomidi.NoteOn(2, 60, 127),
			kind: Inline,
			check: func(t *testing.T, e *vst3.Event) {
				require.Equal(t, vst3.EventNoteOn, e.Type)
				n := e.NoteOn()
				assert.Equal(t, int16(2), n.Channel)
				assert.Equal(t, int16(60), n.Pitch)
				assert.InDelta(t, 1.0, n.Velocity, 1e-6)
				assert.Equal(t, int32(-1), n.NoteID)
			},
		},
		{
			name: "note off with velocity",
			msg:  gomidi.NoteOffVelocity(1, 62, 64),
			kind: Inline,
			check: func(t *testing.T, e *vst3.Event) {
				require.Equal(t, vst3.EventNoteOff, e.Type)
				assert.Equal(t, int16(62), e.NoteOff().Pitch)
				assert.InDelta(t, 64.0/127, e.NoteOff().Velocity, 1e-6)
			},
		},
		{
			name: "note on with zero velocity",
			msg:  gomidi.NoteOn(0, 48, 0),
			kind: Inline,
			check: func(t *testing.T, e *vst3.Event) {
				require.Equal(t, vst3.EventNoteOff, e.Type)
				assert.Equal(t, int16(48), e.NoteOff().Pitch)
			},
		},
		{
			name: "poly pressure",
			msg:  gomidi.PolyAfterTouch(3, 70, 127),
			kind: Inline,
			check: func(t *testing.T, e *vst3.Event) {
				require.Equal(t, vst3.EventPolyPressure, e.Type)
				assert.Equal(t, int16(70), e.PolyPressure().Pitch)
				assert.InDelta(t, 1.0, e.PolyPressure().Pressure, 1e-6)
			},
		},
		{
			name: "sysex",
			msg:  gomidi.Message{0xF0, 0x43, 0x10, 0xF7},
			kind: Inline,
			check: func(t *testing.T, e *vst3.Event) {
				require.Equal(t, vst3.EventData, e.Type)
				assert.Equal(t, []byte{0xF0, 0x43, 0x10, 0xF7}, e.DataBytes())
			},
		},
		{name: "control change", msg: gomidi.ControlChange(0, CCVolume, 100), kind: Mapped},
		{name: "pitch bend", msg: gomidi.Pitchbend(0, 100), kind: Mapped},
		{name: "program change", msg: gomidi.ProgramChange(0, 5), kind: Mapped},
		{name: "channel pressure", msg: gomidi.AfterTouch(0, 5), kind: Mapped},
		{name: "clock", msg: gomidi.TimingClock(), kind: Unsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e vst3.Event
			kind := ToEvent(tt.msg, 0, 16, &e)
			assert.Equal(t, tt.kind, kind)
			if tt.check != nil {
				assert.Equal(t, int32(16), e.SampleOffset)
				tt.check(t, &e)
			}
		})
	}
}

func TestController(t *testing.T) {
	tests := []struct {
		name  string
		msg   gomidi.Message
		ctrl  vst3.CtrlNumber
		value float64
	}{
		{"control change", gomidi.ControlChange(4, CCModWheel, 127), vst3.CtrlNumber(CCModWheel), 1},
		{"channel pressure", gomidi.AfterTouch(4, 0), vst3.CtrlAfterTouch, 0},
		{"pitch bend centre", gomidi.Pitchbend(4, 0), vst3.CtrlPitchBend, 8192.0 / 16383},
		{"program change", gomidi.ProgramChange(4, 127), vst3.CtrlProgramChange, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, ctrl, v, ok := Controller(tt.msg)
			require.True(t, ok)
			assert.Equal(t, int16(4), ch)
			assert.Equal(t, tt.ctrl, ctrl)
			assert.InDelta(t, tt.value, v, 1e-9)
		})
	}

	_, _, _, ok := Controller(gomidi.NoteOn(0, 60, 1))
	assert.False(t, ok)
}

func TestFromEvent(t *testing.T) {
	legacy := func(ctrl uint8, ch, v1, v2 int8) *vst3.Event {
		var e vst3.Event
		e.SetLegacyMIDICCOut(0, 0, vst3.LegacyMIDICCOutEvent{ControlNumber: ctrl, Channel: ch, Value: v1, Value2: v2})
		return &e
	}
	noteOn := func(vel float32) *vst3.Event {
		var e vst3.Event
		e.SetNoteOn(0, 0, vst3.NoteOnEvent{Channel: 1, Pitch: 60, Velocity: vel})
		return &e
	}
	var noteOff vst3.Event
	noteOff.SetNoteOff(0, 0, vst3.NoteOffEvent{Channel: 1, Pitch: 60, Velocity: 0.5})
	var sysex vst3.Event
	sysexData := []byte{0xF0, 0x01, 0x02, 0xF7}
	sysex.SetData(0, 0, sysexData)
	var chord vst3.Event
	chord.Type = vst3.EventChord

	tests := []struct {
		name string
		e    *vst3.Event
		want gomidi.Message
		ok   bool
	}{
		{"note on", noteOn(100.0 / 127), gomidi.NoteOn(1, 60, 100), true},
		{"note on zero velocity stays a note on", noteOn(0), gomidi.NoteOn(1, 60, 1), true},
		{"note off", &noteOff, gomidi.NoteOffVelocity(1, 60, 64), true},
		{"sysex", &sysex, gomidi.Message{0xF0, 0x01, 0x02, 0xF7}, true},
		{"generic controller", legacy(7, 2, 90, 0), gomidi.ControlChange(2, 7, 90), true},
		{"program change", legacy(130, 2, 12, 0), gomidi.ProgramChange(2, 12), true},
		{"poly pressure", legacy(131, 2, 60, 33), gomidi.PolyAfterTouch(2, 60, 33), true},
		{"channel pressure", legacy(128, 2, 50, 0), gomidi.AfterTouch(2, 50), true},
		{"pitch bend centre", legacy(129, 2, 0, 64), gomidi.Pitchbend(2, 0), true},
		{"quarter frame", legacy(132, 0, 0x23, 0), gomidi.MTC(0x23), true},
		{"unknown controller", legacy(200, 0, 1, 0), nil, false},
		{"chord unsupported", &chord, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromEvent(tt.e)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
