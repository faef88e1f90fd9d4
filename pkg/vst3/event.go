package vst3

import "unsafe"

// Event types
const (
	EventNoteOn          uint16 = 0
	EventNoteOff         uint16 = 1
	EventData            uint16 = 2
	EventPolyPressure    uint16 = 3
	EventNoteExprValue   uint16 = 4
	EventNoteExprText    uint16 = 5
	EventChord           uint16 = 6
	EventScale           uint16 = 7
	EventLegacyMIDICCOut uint16 = 65535
)

// Event flags
const (
	EventIsLive        uint16 = 1 << 0
	EventUserReserved1 uint16 = 1 << 14
	EventUserReserved2 uint16 = 1 << 15
)

// Data event payload types
const DataTypeMidiSysEx uint32 = 0

// Controller numbers beyond the 0..127 MIDI CC range used by legacy CC
// events and MIDI mapping queries.
const (
	CtrlAfterTouch    CtrlNumber = 128
	CtrlPitchBend     CtrlNumber = 129
	CtrlProgramChange CtrlNumber = 130
	CtrlPolyPressure  CtrlNumber = 131
	CtrlQuarterFrame  CtrlNumber = 132
)

// Event is the tagged union exchanged through IEventList. Its layout
// matches the 48-byte C struct: header fields then a 24-byte payload.
type Event struct {
	BusIndex     int32
	SampleOffset int32
	PPQPosition  float64
	Flags        uint16
	Type         uint16
	_            uint32
	payload      [3]uint64
}

// NoteOnEvent payload
type NoteOnEvent struct {
	Channel  int16
	Pitch    int16
	Tuning   float32
	Velocity float32
	Length   int32
	NoteID   int32
}

// NoteOffEvent payload
type NoteOffEvent struct {
	Channel  int16
	Pitch    int16
	Velocity float32
	NoteID   int32
	Tuning   float32
}

// DataEvent payload. Bytes points at Size bytes owned by the event list.
// The payload words are not scanned by the garbage collector, so the owner
// of those bytes must keep them reachable.
type DataEvent struct {
	Size  uint32
	Type  uint32
	Bytes unsafe.Pointer
}

// PolyPressureEvent payload
type PolyPressureEvent struct {
	Channel  int16
	Pitch    int16
	Pressure float32
	NoteID   int32
}

// NoteExpressionValueEvent payload
type NoteExpressionValueEvent struct {
	TypeID uint32
	NoteID int32
	Value  float64
}

// LegacyMIDICCOutEvent payload
type LegacyMIDICCOutEvent struct {
	ControlNumber uint8
	Channel       int8
	Value         int8
	Value2        int8
}

func (e *Event) clearPayload() { e.payload = [3]uint64{} }

// NoteOn views the payload as a note-on.
func (e *Event) NoteOn() *NoteOnEvent { return (*NoteOnEvent)(unsafe.Pointer(&e.payload)) }

// NoteOff views the payload as a note-off.
func (e *Event) NoteOff() *NoteOffEvent { return (*NoteOffEvent)(unsafe.Pointer(&e.payload)) }

// Data views the payload as a data event.
func (e *Event) Data() *DataEvent { return (*DataEvent)(unsafe.Pointer(&e.payload)) }

// PolyPressure views the payload as poly pressure.
func (e *Event) PolyPressure() *PolyPressureEvent {
	return (*PolyPressureEvent)(unsafe.Pointer(&e.payload))
}

// NoteExpressionValue views the payload as a note expression value.
func (e *Event) NoteExpressionValue() *NoteExpressionValueEvent {
	return (*NoteExpressionValueEvent)(unsafe.Pointer(&e.payload))
}

// LegacyMIDICCOut views the payload as a legacy controller event.
func (e *Event) LegacyMIDICCOut() *LegacyMIDICCOutEvent {
	return (*LegacyMIDICCOutEvent)(unsafe.Pointer(&e.payload))
}

// SetNoteOn resets e to a note-on event.
func (e *Event) SetNoteOn(bus, offset int32, n NoteOnEvent) {
	e.reset(bus, offset, EventNoteOn)
	*e.NoteOn() = n
}

// SetNoteOff resets e to a note-off event.
func (e *Event) SetNoteOff(bus, offset int32, n NoteOffEvent) {
	e.reset(bus, offset, EventNoteOff)
	*e.NoteOff() = n
}

// SetPolyPressure resets e to a poly pressure event.
func (e *Event) SetPolyPressure(bus, offset int32, p PolyPressureEvent) {
	e.reset(bus, offset, EventPolyPressure)
	*e.PolyPressure() = p
}

// SetData resets e to a sysex data event referencing buf. The caller keeps
// buf alive and unmoved for as long as the event is in use.
func (e *Event) SetData(bus, offset int32, buf []byte) {
	e.reset(bus, offset, EventData)
	d := e.Data()
	d.Type = DataTypeMidiSysEx
	d.Size = uint32(len(buf))
	if len(buf) > 0 {
		d.Bytes = unsafe.Pointer(&buf[0])
	}
}

// SetLegacyMIDICCOut resets e to a legacy controller event.
func (e *Event) SetLegacyMIDICCOut(bus, offset int32, cc LegacyMIDICCOutEvent) {
	e.reset(bus, offset, EventLegacyMIDICCOut)
	*e.LegacyMIDICCOut() = cc
}

func (e *Event) reset(bus, offset int32, typ uint16) {
	e.BusIndex = bus
	e.SampleOffset = offset
	e.PPQPosition = 0
	e.Flags = EventIsLive
	e.Type = typ
	e.clearPayload()
}

// DataBytes returns the bytes referenced by a data event.
func (e *Event) DataBytes() []byte {
	d := e.Data()
	if d.Bytes == nil || d.Size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(d.Bytes), d.Size)
}
