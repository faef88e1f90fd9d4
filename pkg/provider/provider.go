// Package provider instantiates a plugin's component and controller from a
// class id and wires the two halves together when they are distinct
// objects.
package provider

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/justyntemme/vst3host/pkg/factory"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// ErrNoController is returned for a component that is not its own
// controller and names no controller class.
var ErrNoController = errors.New("provider: no edit controller")

var log = debug.Default().Named("provider")

// Provider owns one plugin instance: the component, its audio processor
// interface and the edit controller.
type Provider struct {
	table   *interop.Table
	classID vst3.TUID
	single  bool

	component  *interop.Ref
	processor  *interop.Ref
	controller *interop.Ref

	compInit bool
	ctrlInit bool

	compPoint, ctrlPoint *interop.Ref
	compProxy, ctrlProxy *ConnectionProxy

	closed bool
}

// Create instantiates class classID from f and initializes it with host.
// Objects are wrapped in table. On failure everything created so far is
// torn down.
func Create(f *factory.Factory, classID vst3.TUID, host vst3.Unknown, table *interop.Table) (*Provider, error) {
	p := &Provider{table: table, classID: classID}
	if err := p.setup(f, host); err != nil {
		return nil, multierr.Append(err, p.Close())
	}
	return p, nil
}

func (p *Provider) setup(f *factory.Factory, host vst3.Unknown) error {
	obj, err := f.CreateInstance(p.classID, vst3.IIDComponent)
	if err != nil {
		return fmt.Errorf("component: %w", err)
	}
	p.component = p.table.Wrap(obj)
	comp, ok := interop.As[vst3.Component](p.component)
	if !ok {
		return fmt.Errorf("component: %w", vst3.ErrNoInterface)
	}
	if err := comp.Initialize(host); err != nil {
		return fmt.Errorf("initialize component: %w", err)
	}
	p.compInit = true

	proc, err := vst3.Query[vst3.AudioProcessor](comp, vst3.IIDAudioProcessor)
	if err != nil {
		return fmt.Errorf("audio processor: %w", err)
	}
	p.processor = p.table.Wrap(proc)

	if ctrl, err := vst3.Query[vst3.EditController](comp, vst3.IIDEditController); err == nil {
		p.single = true
		p.controller = p.table.Wrap(ctrl)
		log.Debug("single object plugin", zap.Stringer("class", p.classID))
		return nil
	}

	cid, err := comp.ControllerClassID()
	if err != nil || cid.IsZero() {
		return ErrNoController
	}
	obj, err = f.CreateInstance(cid, vst3.IIDEditController)
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	p.controller = p.table.Wrap(obj)
	ctrl, ok := interop.As[vst3.EditController](p.controller)
	if !ok {
		return fmt.Errorf("controller: %w", vst3.ErrNoInterface)
	}
	if err := ctrl.Initialize(host); err != nil {
		return fmt.Errorf("initialize controller: %w", err)
	}
	p.ctrlInit = true
	return p.connect(comp, ctrl)
}

// connect wires the halves through a proxy each. Halves without a
// connection point simply do not talk.
func (p *Provider) connect(comp vst3.Component, ctrl vst3.EditController) error {
	compCP, err := vst3.Query[vst3.ConnectionPoint](comp, vst3.IIDConnectionPoint)
	if err != nil {
		return nil
	}
	p.compPoint = p.table.Wrap(compCP)
	ctrlCP, err := vst3.Query[vst3.ConnectionPoint](ctrl, vst3.IIDConnectionPoint)
	if err != nil {
		return nil
	}
	p.ctrlPoint = p.table.Wrap(ctrlCP)

	p.compProxy = NewConnectionProxy(compCP)
	p.ctrlProxy = NewConnectionProxy(ctrlCP)
	if err := p.compProxy.Connect(ctrlCP); err != nil {
		return fmt.Errorf("component: %w", err)
	}
	if err := p.ctrlProxy.Connect(compCP); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	return nil
}

// ClassID returns the class the provider instantiated.
func (p *Provider) ClassID() vst3.TUID { return p.classID }

// Single reports whether component and controller are one object.
func (p *Provider) Single() bool { return p.single }

// Table returns the ownership table holding the plugin's objects.
func (p *Provider) Table() *interop.Table { return p.table }

// Component returns the component.
func (p *Provider) Component() vst3.Component {
	c, _ := interop.As[vst3.Component](p.component)
	return c
}

// Processor returns the component's audio processor interface.
func (p *Provider) Processor() vst3.AudioProcessor {
	a, _ := interop.As[vst3.AudioProcessor](p.processor)
	return a
}

// Controller returns the edit controller.
func (p *Provider) Controller() vst3.EditController {
	c, _ := interop.As[vst3.EditController](p.controller)
	return c
}

// Connected reports whether the halves are wired through proxies.
func (p *Provider) Connected() bool {
	return p.compProxy != nil && p.compProxy.Connected() && p.ctrlProxy.Connected()
}

// Proxies returns the component side and controller side proxies, nil when
// the halves are not connected.
func (p *Provider) Proxies() (component, controller *ConnectionProxy) {
	return p.compProxy, p.ctrlProxy
}

// Close disconnects the halves, terminates the controller and then the
// component, and releases every reference. It is safe to call on a
// partially created provider and more than once.
func (p *Provider) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	if p.compProxy != nil && p.compProxy.Connected() {
		ctrlCP, _ := interop.As[vst3.ConnectionPoint](p.ctrlPoint)
		err = multierr.Append(err, p.compProxy.Disconnect(ctrlCP))
	}
	if p.ctrlProxy != nil && p.ctrlProxy.Connected() {
		compCP, _ := interop.As[vst3.ConnectionPoint](p.compPoint)
		err = multierr.Append(err, p.ctrlProxy.Disconnect(compCP))
	}
	if p.ctrlInit {
		err = multierr.Append(err, ignoreOptional(p.Controller().Terminate()))
	}
	if p.compInit {
		err = multierr.Append(err, ignoreOptional(p.Component().Terminate()))
	}
	for _, r := range []*interop.Ref{p.ctrlPoint, p.compPoint, p.controller, p.processor, p.component} {
		r.Release()
	}
	if p.compProxy != nil {
		interop.Unexpose(p.compProxy, p.ctrlProxy)
		p.compProxy.Release()
		p.ctrlProxy.Release()
	}
	if err != nil {
		log.Warn("plugin teardown", zap.Stringer("class", p.classID), zap.Error(err))
	}
	return err
}

func ignoreOptional(err error) error {
	if err != nil && vst3.IsNotImplemented(err) {
		return nil
	}
	return err
}
