package host

import (
	"slices"
	"sync"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Application is the host context handed to plugins. It names the host
// and creates the message objects plugins send to each other.
type Application struct {
	vst3.RefCount
	name string
}

// NewApplication creates the host context for a host called name.
func NewApplication(name string) *Application {
	a := &Application{name: name}
	a.Init()
	return a
}

// QueryInterface implements vst3.Unknown.
func (a *Application) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDHostApplication:
		a.AddRef()
		return a, nil
	}
	return nil, vst3.ErrNoInterface
}

// Name implements vst3.HostApplication.
func (a *Application) Name() string { return a.name }

// CreateInstance implements vst3.HostApplication. Only messages and
// attribute lists can be created.
func (a *Application) CreateInstance(cid, iid vst3.TUID) (vst3.Unknown, error) {
	switch {
	case cid == vst3.IIDMessage && iid == vst3.IIDMessage:
		return NewMessage(), nil
	case cid == vst3.IIDAttributeList && iid == vst3.IIDAttributeList:
		return NewAttributeList(), nil
	}
	return nil, vst3.ErrNoInterface
}

// Message is the host implementation of IMessage.
type Message struct {
	vst3.RefCount
	mu    sync.Mutex
	id    string
	attrs *AttributeList
}

// NewMessage creates an empty message with one reference.
func NewMessage() *Message {
	m := &Message{attrs: NewAttributeList()}
	m.Init()
	m.OnFinalRelease = func() { m.attrs.Release() }
	return m
}

// QueryInterface implements vst3.Unknown.
func (m *Message) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDMessage:
		m.AddRef()
		return m, nil
	}
	return nil, vst3.ErrNoInterface
}

// MessageID implements vst3.Message.
func (m *Message) MessageID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// SetMessageID implements vst3.Message.
func (m *Message) SetMessageID(id string) {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
}

// Attributes implements vst3.Message.
func (m *Message) Attributes() vst3.AttributeList { return m.attrs }

// AttributeList is the host implementation of IAttributeList. A missing
// attribute or one stored with another type reads as ErrFalse.
type AttributeList struct {
	vst3.RefCount
	mu     sync.Mutex
	values map[string]any
}

// NewAttributeList creates an empty list with one reference.
func NewAttributeList() *AttributeList {
	l := &AttributeList{values: make(map[string]any)}
	l.Init()
	return l
}

// QueryInterface implements vst3.Unknown.
func (l *AttributeList) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDAttributeList:
		l.AddRef()
		return l, nil
	}
	return nil, vst3.ErrNoInterface
}

func (l *AttributeList) set(id string, v any) error {
	if id == "" {
		return vst3.ErrInvalidArgument
	}
	l.mu.Lock()
	l.values[id] = v
	l.mu.Unlock()
	return nil
}

func get[T any](l *AttributeList, id string) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.values[id].(T)
	if !ok {
		var zero T
		return zero, vst3.ErrFalse
	}
	return v, nil
}

// SetInt implements vst3.AttributeList.
func (l *AttributeList) SetInt(id string, v int64) error { return l.set(id, v) }

// Int implements vst3.AttributeList.
func (l *AttributeList) Int(id string) (int64, error) { return get[int64](l, id) }

// SetFloat implements vst3.AttributeList.
func (l *AttributeList) SetFloat(id string, v float64) error { return l.set(id, v) }

// Float implements vst3.AttributeList.
func (l *AttributeList) Float(id string) (float64, error) { return get[float64](l, id) }

// SetString implements vst3.AttributeList.
func (l *AttributeList) SetString(id string, v string) error { return l.set(id, v) }

// String implements vst3.AttributeList.
func (l *AttributeList) String(id string) (string, error) { return get[string](l, id) }

// SetBinary implements vst3.AttributeList. The data is copied.
func (l *AttributeList) SetBinary(id string, data []byte) error {
	return l.set(id, slices.Clone(data))
}

// Binary implements vst3.AttributeList.
func (l *AttributeList) Binary(id string) ([]byte, error) { return get[[]byte](l, id) }
