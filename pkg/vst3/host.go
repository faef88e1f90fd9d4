package vst3

// Interfaces the host implements and hands to plugins.

// HostApplication is IHostApplication.
type HostApplication interface {
	Unknown
	Name() string
	CreateInstance(cid, iid TUID) (Unknown, error)
}

// ComponentHandler is IComponentHandler.
type ComponentHandler interface {
	Unknown
	BeginEdit(id ParamID) error
	PerformEdit(id ParamID, value ParamValue) error
	EndEdit(id ParamID) error
	RestartComponent(flags int32) error
}

// PlugFrame is IPlugFrame.
type PlugFrame interface {
	Unknown
	ResizeView(view PlugView, rect *ViewRect) error
}

// Stream is IBStream.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Tell() (int64, error)
}

// Message is IMessage.
type Message interface {
	Unknown
	MessageID() string
	SetMessageID(id string)
	Attributes() AttributeList
}

// AttributeList is IAttributeList.
type AttributeList interface {
	Unknown
	SetInt(id string, v int64) error
	Int(id string) (int64, error)
	SetFloat(id string, v float64) error
	Float(id string) (float64, error)
	SetString(id string, v string) error
	String(id string) (string, error)
	SetBinary(id string, data []byte) error
	Binary(id string) ([]byte, error)
}

// ParameterChanges is IParameterChanges.
type ParameterChanges interface {
	ParameterCount() int32
	// ParameterData returns nil for an out-of-range index.
	ParameterData(index int32) ParamValueQueue
	AddParameterData(id ParamID) (ParamValueQueue, int32)
}

// ParamValueQueue is IParamValueQueue.
type ParamValueQueue interface {
	ParameterID() ParamID
	PointCount() int32
	Point(index int32) (offset int32, value ParamValue, err error)
	AddPoint(offset int32, value ParamValue) (int32, error)
}

// EventList is IEventList.
type EventList interface {
	EventCount() int32
	Event(index int32, e *Event) error
	AddEvent(e *Event) error
}
