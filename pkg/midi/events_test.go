package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

func TestEventListAddEvent(t *testing.T) {
	l := NewEventList(2, 8)

	var on vst3.Event
	on.SetNoteOn(0, 4, vst3.NoteOnEvent{Pitch: 60, Velocity: 1})
	require.NoError(t, l.AddEvent(&on))

	sysex := []byte{0xF0, 0x7E, 0x7F, 0xF7}
	var data vst3.Event
	data.SetData(0, 8, sysex)
	require.NoError(t, l.AddEvent(&data))

	assert.ErrorIs(t, l.AddEvent(&on), vst3.ErrOutOfMemory)
	assert.ErrorIs(t, l.AddEvent(nil), vst3.ErrInvalidArgument)
	assert.Equal(t, int32(2), l.EventCount())

	// the list owns a copy of the payload
	sysex[1] = 0
	var got vst3.Event
	require.NoError(t, l.Event(1, &got))
	assert.Equal(t, []byte{0xF0, 0x7E, 0x7F, 0xF7}, got.DataBytes())
	assert.Equal(t, int32(8), got.SampleOffset)

	assert.ErrorIs(t, l.Event(2, &got), vst3.ErrInvalidArgument)

	l.Clear()
	assert.Zero(t, l.Len())
}

func TestEventListSysexArenaFull(t *testing.T) {
	l := NewEventList(4, 4)
	var e vst3.Event
	e.SetData(0, 0, []byte{0xF0, 1, 2, 3, 0xF7})
	assert.ErrorIs(t, l.AddEvent(&e), vst3.ErrOutOfMemory)
	assert.Zero(t, l.Len())
}

func TestEventListNoAllocs(t *testing.T) {
	l := NewEventList(8, 64)
	var on vst3.Event
	on.SetNoteOn(0, 0, vst3.NoteOnEvent{Pitch: 60, Velocity: 0.5})
	var data vst3.Event
	payload := []byte{0xF0, 0x01, 0xF7}
	data.SetData(0, 0, payload)

	allocs := testing.AllocsPerRun(100, func() {
		_ = l.AddEvent(&on)
		_ = l.AddEvent(&data)
		l.Clear()
	})
	assert.Zero(t, allocs)
}

func TestOutputRelay(t *testing.T) {
	r := NewOutputRelay(2, 4, 16)

	assert.False(t, r.Flush(), "empty list is not flushed")

	var e vst3.Event
	e.SetNoteOn(0, 0, vst3.NoteOnEvent{Pitch: 64, Velocity: 0.5})
	require.NoError(t, r.List().AddEvent(&e))
	require.True(t, r.Flush())
	assert.Zero(t, r.List().Len())

	// control side is behind: the next flush has no free list
	require.NoError(t, r.List().AddEvent(&e))
	assert.False(t, r.Flush())
	assert.Zero(t, r.List().Len())

	l := <-r.Lists()
	assert.Equal(t, 1, l.Len())
	r.Recycle(l)

	require.NoError(t, r.List().AddEvent(&e))
	assert.True(t, r.Flush())
}
