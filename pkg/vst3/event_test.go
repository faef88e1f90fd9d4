package vst3

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestEventPayloads(t *testing.T) {
	var e Event

	e.SetNoteOn(0, 12, NoteOnEvent{Channel: 3, Pitch: 60, Velocity: 0.5, NoteID: -1})
	assert.Equal(t, EventNoteOn, e.Type)
	assert.Equal(t, int32(12), e.SampleOffset)
	assert.Equal(t, int16(60), e.NoteOn().Pitch)
	assert.Equal(t, float32(0.5), e.NoteOn().Velocity)

	e.SetNoteOff(1, 4, NoteOffEvent{Channel: 3, Pitch: 61})
	assert.Equal(t, EventNoteOff, e.Type)
	assert.Equal(t, int32(1), e.BusIndex)
	assert.Equal(t, float32(0), e.NoteOff().Velocity, "payload must be cleared")

	e.SetLegacyMIDICCOut(0, 0, LegacyMIDICCOutEvent{ControlNumber: 7, Channel: 2, Value: 100})
	assert.Equal(t, uint8(7), e.LegacyMIDICCOut().ControlNumber)

	sysex := []byte{0xF0, 0x7E, 0x7F, 0xF7}
	e.SetData(0, 0, sysex)
	assert.Equal(t, DataTypeMidiSysEx, e.Data().Type)
	assert.Equal(t, sysex, e.DataBytes())
}

func TestDataEvent(t *testing.T) {
	assert.Equal(t, uintptr(48), unsafe.Sizeof(Event{}))
	assert.Equal(t, uintptr(16), unsafe.Sizeof(DataEvent{}))

	tests := []struct {
		name string
		data []byte
		want []byte
	}{
		{name: "sysex", data: []byte{0xF0, 0x01, 0xF7}, want: []byte{0xF0, 0x01, 0xF7}},
		{name: "empty", data: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Event
			e.SetData(2, 8, tt.data)
			assert.Equal(t, EventData, e.Type)
			assert.Equal(t, uint32(len(tt.data)), e.Data().Size)
			assert.Equal(t, tt.want, e.DataBytes())

			// a copied event still references the same bytes
			c := e
			assert.Equal(t, tt.want, c.DataBytes())
		})
	}
}
