package testplugin

import (
	"sync"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// send builds a message, through the host application when it offers one,
// and hands it to peer.
func send(peer vst3.ConnectionPoint, host vst3.Unknown, id string) error {
	if peer == nil {
		return vst3.ErrNotInitialized
	}
	msg := newMessage(host)
	defer msg.Release()
	msg.SetMessageID(id)
	if attrs := msg.Attributes(); attrs != nil {
		_ = attrs.SetString("origin", "testplugin")
	}
	return peer.Notify(msg)
}

func newMessage(host vst3.Unknown) vst3.Message {
	if app, err := vst3.Query[vst3.HostApplication](host, vst3.IIDHostApplication); err == nil {
		defer app.Release()
		if u, err := app.CreateInstance(vst3.IIDMessage, vst3.IIDMessage); err == nil {
			if m, ok := u.(vst3.Message); ok {
				return m
			}
			u.Release()
		}
	}
	m := &message{attrs: map[string]any{}}
	m.Init()
	return m
}

// message is the fallback used without a host application.
type message struct {
	vst3.RefCount
	mu    sync.Mutex
	id    string
	attrs map[string]any
}

func (m *message) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	if iid == vst3.IIDMessage || iid == vst3.IIDFUnknown {
		m.AddRef()
		return m, nil
	}
	return nil, vst3.ErrNoInterface
}

func (m *message) MessageID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *message) SetMessageID(id string) {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
}

func (m *message) Attributes() vst3.AttributeList { return nil }
