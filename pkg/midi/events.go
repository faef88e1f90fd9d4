package midi

import (
	"github.com/justyntemme/vst3host/pkg/metrics"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// EventList is a fixed-capacity vst3.EventList. Sysex payloads are copied
// into an arena owned by the list, so data events stay valid after the
// producer's buffer is gone. Neither AddEvent nor Clear allocates.
type EventList struct {
	events []vst3.Event
	arena  []byte
}

// NewEventList creates a list for up to capacity events and sysexBytes of
// sysex payload per block.
func NewEventList(capacity, sysexBytes int) *EventList {
	return &EventList{
		events: make([]vst3.Event, 0, capacity),
		arena:  make([]byte, 0, sysexBytes),
	}
}

// EventCount returns the number of events.
func (l *EventList) EventCount() int32 { return int32(len(l.events)) }

// Event copies the event at index into e.
func (l *EventList) Event(index int32, e *vst3.Event) error {
	if index < 0 || int(index) >= len(l.events) || e == nil {
		return vst3.ErrInvalidArgument
	}
	*e = l.events[index]
	return nil
}

// AddEvent appends a copy of e. It fails with ErrOutOfMemory when the list
// or the sysex arena is full.
func (l *EventList) AddEvent(e *vst3.Event) error {
	if e == nil {
		return vst3.ErrInvalidArgument
	}
	if len(l.events) == cap(l.events) {
		return vst3.ErrOutOfMemory
	}
	ev := *e
	if ev.Type == vst3.EventData {
		data := e.DataBytes()
		if len(l.arena)+len(data) > cap(l.arena) {
			return vst3.ErrOutOfMemory
		}
		start := len(l.arena)
		l.arena = append(l.arena, data...)
		ev.SetData(e.BusIndex, e.SampleOffset, l.arena[start:len(l.arena):len(l.arena)])
		ev.PPQPosition, ev.Flags = e.PPQPosition, e.Flags
	}
	l.events = append(l.events, ev)
	return nil
}

// Events returns the events in insertion order.
func (l *EventList) Events() []vst3.Event { return l.events }

// Len returns the number of events.
func (l *EventList) Len() int { return len(l.events) }

// Clear empties the list, keeping its storage.
func (l *EventList) Clear() {
	l.events = l.events[:0]
	l.arena = l.arena[:0]
}

// OutputRelay moves the plugin's output events off the audio thread. The
// audio thread fills List during a block and calls Flush; the control side
// receives filled lists from Lists and hands them back with Recycle.
type OutputRelay struct {
	list *EventList
	full chan *EventList
	free chan *EventList
}

// NewOutputRelay creates a relay cycling through lists event lists.
func NewOutputRelay(lists, capacity, sysexBytes int) *OutputRelay {
	if lists < 2 {
		lists = 2
	}
	r := &OutputRelay{
		list: NewEventList(capacity, sysexBytes),
		full: make(chan *EventList, lists),
		free: make(chan *EventList, lists),
	}
	for i := 1; i < lists; i++ {
		r.free <- NewEventList(capacity, sysexBytes)
	}
	return r
}

// List returns the list the plugin writes into. Audio thread only.
func (r *OutputRelay) List() *EventList { return r.list }

// Flush hands the current list to the control side. When the control side
// is behind and no empty list is available, the events are dropped and
// counted. Audio thread only.
func (r *OutputRelay) Flush() bool {
	if r.list.Len() == 0 {
		return false
	}
	select {
	case fresh := <-r.free:
		r.full <- r.list
		r.list = fresh
		return true
	default:
		metrics.MIDIEventsDropped.Add(float64(r.list.Len()))
		r.list.Clear()
		return false
	}
}

// Lists delivers flushed lists.
func (r *OutputRelay) Lists() <-chan *EventList { return r.full }

// Recycle clears l and returns it to the audio thread.
func (r *OutputRelay) Recycle(l *EventList) {
	l.Clear()
	select {
	case r.free <- l:
	default:
	}
}
