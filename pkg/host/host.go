// Package host is the entry point for applications embedding plugins: it
// opens modules, instantiates plugins and exposes each instance's audio,
// MIDI, parameter, state and editor surface.
//
// Every call into a plugin outside the audio callback runs on one
// host-wide control loop. The audio callback runs on the caller's thread.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/justyntemme/vst3host/pkg/config"
	"github.com/justyntemme/vst3host/pkg/factory"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/framework/process"
	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/module"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// ErrClosed is returned by calls on a closed host or instance.
var ErrClosed = errors.New("host: closed")

// controlQueue is the capacity of the control loop's task queue.
const controlQueue = 256

// Option configures a Host.
type Option func(*Host)

// WithOpener replaces the platform loader, e.g. with in-process modules.
func WithOpener(open module.Opener) Option {
	return func(h *Host) { h.open = open }
}

// Host owns the loaded modules and the open instances.
type Host struct {
	cfg     *config.Config
	log     *debug.Logger
	open    module.Opener
	app     *Application
	control *interop.Context
	table   *interop.Table
	clock   *process.Timeline

	group singleflight.Group

	mu        sync.Mutex
	modules   map[string]*moduleEntry
	instances map[*Instance]struct{}
	closed    bool
}

// moduleEntry is a loaded module shared by the instances created from it.
type moduleEntry struct {
	path    string
	mod     *module.Module
	factory *factory.Factory
	users   int
}

// New creates a host. A nil cfg uses the defaults, a nil logger the
// package default.
func New(cfg *config.Config, logger *debug.Logger, opts ...Option) (*Host, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("host config: %w", err)
	}
	if logger == nil {
		logger = debug.Default()
	}
	h := &Host{
		cfg:       cfg,
		log:       logger.Named("host"),
		open:      module.OpenLibrary,
		app:       NewApplication(cfg.Host.Name),
		table:     interop.NewTable(),
		clock:     process.NewTimeline(cfg.Audio.SampleRate),
		modules:   make(map[string]*moduleEntry),
		instances: make(map[*Instance]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.control = interop.NewLoop("control", controlQueue)
	return h, nil
}

// Config returns the host configuration.
func (h *Host) Config() *config.Config { return h.cfg }

// Timeline is the transport shared by every instance. The audio driver
// advances it once per cycle, after all instances processed the cycle.
func (h *Host) Timeline() *process.Timeline { return h.clock }

// Control returns the control loop plugins are called on.
func (h *Host) Control() *interop.Context { return h.control }

// Application returns the host context handed to plugins.
func (h *Host) Application() *Application { return h.app }

// Classes lists the classes of the module at path.
func (h *Host) Classes(ctx context.Context, path string) ([]vst3.ClassInfo, error) {
	e, err := h.acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	var classes []vst3.ClassInfo
	err = h.control.Call(func() error {
		classes = e.factory.Classes()
		return nil
	})
	return classes, multierr.Append(err, h.release(e))
}

// Effects lists the audio effect classes of the module at path. A module
// without effects yields an empty list.
func (h *Host) Effects(ctx context.Context, path string) ([]vst3.ClassInfo, error) {
	e, err := h.acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	var effects []vst3.ClassInfo
	err = h.control.Call(func() error {
		effects = e.factory.Effects()
		return nil
	})
	return effects, multierr.Append(err, h.release(e))
}

// Open loads the module at path, when not loaded yet, and instantiates
// class classID from it.
func (h *Host) Open(ctx context.Context, path string, classID vst3.TUID) (*Instance, error) {
	e, err := h.acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	var inst *Instance
	err = h.control.Call(func() (err error) {
		inst, err = h.instantiate(e, classID)
		return err
	})
	if err != nil {
		h.log.Warn("instantiation failed", zap.String("path", path), zap.Stringer("class", classID), zap.Error(err))
		return nil, multierr.Append(err, h.release(e))
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, multierr.Append(ErrClosed, inst.Close())
	}
	h.instances[inst] = struct{}{}
	h.mu.Unlock()
	return inst, nil
}

// Instances returns the open instances.
func (h *Host) Instances() []*Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Instance, 0, len(h.instances))
	for i := range h.instances {
		out = append(out, i)
	}
	return out
}

// acquire returns the loaded module for path with one more user.
// Concurrent first opens of the same path load it once.
func (h *Host) acquire(ctx context.Context, path string) (*moduleEntry, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return nil, ErrClosed
		}
		if e, ok := h.modules[path]; ok {
			e.users++
			h.mu.Unlock()
			return e, nil
		}
		h.mu.Unlock()

		_, err, _ := h.group.Do(path, func() (any, error) {
			h.mu.Lock()
			e, ok := h.modules[path]
			h.mu.Unlock()
			if ok {
				return e, nil
			}
			e, err := h.load(path)
			if err != nil {
				return nil, err
			}
			h.mu.Lock()
			h.modules[path] = e
			h.mu.Unlock()
			return e, nil
		})
		if err != nil {
			return nil, err
		}
	}
}

func (h *Host) load(path string) (*moduleEntry, error) {
	e := &moduleEntry{path: path}
	err := h.control.Call(func() error {
		m, err := module.OpenWith(path, h.open)
		if err != nil {
			return err
		}
		e.mod = m
		e.factory = factory.New(path, m.Factory())
		if err := e.factory.SetHostContext(h.app); err != nil {
			h.log.Debug("factory refused host context", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.log.Info("module loaded", zap.String("path", path))
	return e, nil
}

// release drops one user of e and unloads the module with the last one.
func (h *Host) release(e *moduleEntry) error {
	h.mu.Lock()
	e.users--
	if e.users > 0 {
		h.mu.Unlock()
		return nil
	}
	if h.modules[e.path] == e {
		delete(h.modules, e.path)
	}
	h.mu.Unlock()

	err := h.control.Call(func() error {
		if err := e.factory.SetHostContext(nil); err != nil {
			h.log.Debug("factory host context reset", zap.Error(err))
		}
		return e.mod.Close()
	})
	factory.Invalidate(e.path)
	h.log.Info("module unloaded", zap.String("path", e.path))
	return err
}

func (h *Host) forget(i *Instance) {
	h.mu.Lock()
	delete(h.instances, i)
	h.mu.Unlock()
}

// Close closes every open instance, unloads the modules and stops the
// control loop.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	var err error
	for _, i := range h.Instances() {
		err = multierr.Append(err, i.Close())
	}
	h.control.Close()
	interop.Unexpose(h.app)
	if live := h.table.Len(); live > 0 {
		h.log.Warn("plugin objects still referenced after close", zap.Int("count", live))
	}
	return err
}
