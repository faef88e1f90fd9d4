package provider

import (
	"errors"
	"fmt"
	"sync"

	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

var (
	// ErrAlreadyConnected is returned when connecting a connected proxy.
	ErrAlreadyConnected = errors.New("provider: proxy already connected")
	// ErrNotConnected is returned when disconnecting an endpoint the proxy
	// is not connected to.
	ErrNotConnected = errors.New("provider: endpoint not connected")
)

// ConnectionProxy stands between one half of a plugin and the other. The
// source half talks to the proxy; messages reach the destination on the
// context that was current when the proxy was created.
type ConnectionProxy struct {
	vst3.RefCount

	src vst3.ConnectionPoint
	ctx *interop.Context

	mu  sync.Mutex
	dst vst3.ConnectionPoint
}

// NewConnectionProxy creates a proxy for src bound to the calling context.
func NewConnectionProxy(src vst3.ConnectionPoint) *ConnectionProxy {
	p := &ConnectionProxy{src: src, ctx: interop.Current()}
	p.Init()
	return p
}

// QueryInterface implements vst3.Unknown.
func (p *ConnectionProxy) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDConnectionPoint:
		p.AddRef()
		return p, nil
	}
	return nil, vst3.ErrNoInterface
}

// Context returns the context messages are delivered on, nil when the
// proxy was created on a foreign thread.
func (p *ConnectionProxy) Context() *interop.Context { return p.ctx }

// Connected reports whether the proxy has a destination.
func (p *ConnectionProxy) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dst != nil
}

// Connect makes other the destination and connects the source to the
// proxy.
func (p *ConnectionProxy) Connect(other vst3.ConnectionPoint) error {
	if other == nil {
		return vst3.ErrInvalidArgument
	}
	p.mu.Lock()
	if p.dst != nil {
		p.mu.Unlock()
		return ErrAlreadyConnected
	}
	p.dst = other
	p.mu.Unlock()

	if err := p.src.Connect(p); err != nil {
		p.mu.Lock()
		p.dst = nil
		p.mu.Unlock()
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Disconnect detaches other, which must be the current destination.
func (p *ConnectionProxy) Disconnect(other vst3.ConnectionPoint) error {
	p.mu.Lock()
	dst := p.dst
	if dst == nil || other == nil || (other != dst && !interop.SameObject(other, dst)) {
		p.mu.Unlock()
		return ErrNotConnected
	}
	p.dst = nil
	p.mu.Unlock()

	if err := p.src.Disconnect(p); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Notify delivers msg to the destination. From another thread the message
// is retained and delivered later on the proxy's context.
func (p *ConnectionProxy) Notify(msg vst3.Message) error {
	if msg == nil {
		return vst3.ErrInvalidArgument
	}
	if p.ctx == nil || p.ctx.IsCurrent() {
		return p.deliver(msg)
	}
	msg.AddRef()
	err := p.ctx.Post(func() {
		_ = p.deliver(msg)
		msg.Release()
	})
	if err != nil {
		msg.Release()
		return err
	}
	return nil
}

func (p *ConnectionProxy) deliver(msg vst3.Message) error {
	p.mu.Lock()
	dst := p.dst
	p.mu.Unlock()
	if dst == nil {
		return ErrNotConnected
	}
	return dst.Notify(msg)
}
