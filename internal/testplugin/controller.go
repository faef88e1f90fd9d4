package testplugin

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Controller is the separate controller object of a split plugin.
type Controller struct {
	vst3.RefCount
	*paramSet

	opts Options
	Log  *Log

	mu             sync.Mutex
	host           vst3.Unknown
	peer           vst3.ConnectionPoint
	componentState []byte
	state          []byte
	terminated     atomic.Bool

	// OnNotify observes messages arriving at the controller.
	OnNotify func(msg vst3.Message)
	// Released is closed when the last reference is dropped.
	Released chan struct{}
}

// NewController creates a controller with one reference.
func NewController(opts Options, log *Log) *Controller {
	if log == nil {
		log = &Log{}
	}
	c := &Controller{
		paramSet: newParamSet(log, opts),
		opts:     opts,
		Log:      log,
		Released: make(chan struct{}),
	}
	c.Init()
	c.OnFinalRelease = func() {
		log.Add("controller.release")
		close(c.Released)
	}
	return c
}

// QueryInterface implements vst3.Unknown.
func (c *Controller) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDPluginBase, vst3.IIDEditController:
	case vst3.IIDConnectionPoint:
		if c.opts.NoConnection {
			return nil, vst3.ErrNoInterface
		}
	case vst3.IIDMidiMapping:
		if c.opts.NoMidiMapping {
			return nil, vst3.ErrNoInterface
		}
	case vst3.IIDUnitInfo:
		if c.opts.NoUnits {
			return nil, vst3.ErrNoInterface
		}
	default:
		return nil, vst3.ErrNoInterface
	}
	c.AddRef()
	return c, nil
}

// Initialize implements vst3.PluginBase.
func (c *Controller) Initialize(host vst3.Unknown) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if host != nil {
		host.AddRef()
	}
	c.host = host
	c.Log.Add("controller.initialize")
	return nil
}

// Terminate implements vst3.PluginBase.
func (c *Controller) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.host != nil {
		c.host.Release()
		c.host = nil
	}
	c.paramSet.releaseHandler()
	c.terminated.Store(true)
	c.Log.Add("controller.terminate")
	return nil
}

// SetComponentState implements vst3.EditController.
func (c *Controller) SetComponentState(s vst3.Stream) error {
	data, err := vst3.ReadAll(s)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.componentState = data
	c.mu.Unlock()
	if len(data) == 8 {
		_ = c.SetParamNormalized(ParamGain, math.Float64frombits(binary.LittleEndian.Uint64(data)))
	}
	c.Log.Add("controller.setComponentState")
	return nil
}

// ComponentState returns the last component state pushed by the host.
func (c *Controller) ComponentState() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.componentState
}

// SetState implements vst3.EditController.
func (c *Controller) SetState(s vst3.Stream) error {
	data, err := vst3.ReadAll(s)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state = data
	c.mu.Unlock()
	c.Log.Add("controller.setState")
	return nil
}

// GetState implements vst3.EditController. The state is the text "ctrl"
// followed by whatever was last restored.
func (c *Controller) GetState(s vst3.Stream) error {
	c.mu.Lock()
	data := c.state
	c.mu.Unlock()
	if data == nil {
		data = []byte("ctrl")
	}
	_, err := s.Write(data)
	return err
}

// CreateView implements vst3.EditController.
func (c *Controller) CreateView(name string) (vst3.PlugView, error) {
	return c.createView(name)
}

// Connect implements vst3.ConnectionPoint.
func (c *Controller) Connect(other vst3.ConnectionPoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.peer != nil {
		return vst3.ErrInvalidArgument
	}
	other.AddRef()
	c.peer = other
	c.Log.Add("controller.connect")
	return nil
}

// Disconnect implements vst3.ConnectionPoint.
func (c *Controller) Disconnect(other vst3.ConnectionPoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.peer == nil || c.peer != other {
		return vst3.ErrInvalidArgument
	}
	c.peer.Release()
	c.peer = nil
	c.Log.Add("controller.disconnect")
	return nil
}

// Notify implements vst3.ConnectionPoint.
func (c *Controller) Notify(msg vst3.Message) error {
	c.Log.Add("controller.notify:" + msg.MessageID())
	if c.OnNotify != nil {
		c.OnNotify(msg)
	}
	return nil
}

// Send notifies the connected component.
func (c *Controller) Send(id string) error {
	c.mu.Lock()
	peer, host := c.peer, c.host
	c.mu.Unlock()
	return send(peer, host, id)
}

// Terminated reports whether Terminate was called.
func (c *Controller) Terminated() bool { return c.terminated.Load() }
