// Package module finds plugin bundles on disk, loads their binaries and
// hands out the plugin factory. Every failure is reported as an error the
// caller treats as "plugin unavailable".
package module

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/metrics"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

var (
	// ErrNotFound is returned when a path holds no loadable binary.
	ErrNotFound = errors.New("module: not found")
	// ErrNoArch is returned for a bundle without a binary for this machine.
	ErrNoArch = errors.New("module: no binary for this architecture")
	// ErrLoad is returned when the operating system refuses the binary.
	ErrLoad = errors.New("module: load failed")
	// ErrNoFactory is returned when the factory export is missing or null.
	ErrNoFactory = errors.New("module: no plugin factory")
	// ErrInitFailed is returned when the module's init hook reports failure.
	ErrInitFailed = errors.New("module: init hook failed")
)

var log = debug.Default().Named("module")

// Library is a loaded plugin binary.
type Library interface {
	Path() string
	// Init runs the module entry hook, if the binary exports one.
	Init() error
	// Factory calls the factory export. The factory carries one reference
	// owned by the caller.
	Factory() (vst3.PluginFactory, error)
	// Exit runs the module exit hook, if the binary exports one.
	Exit() error
	// Close unloads the binary.
	Close() error
}

// Opener opens the binary behind a plugin path.
type Opener func(path string) (Library, error)

// OpenLibrary resolves path, which may be a bundle directory, and loads
// the binary with the platform loader.
func OpenLibrary(path string) (Library, error) {
	bin, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	lib, err := openNative(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, bin, err)
	}
	return lib, nil
}

// Module is a library whose init hook ran and whose factory was obtained.
type Module struct {
	lib     Library
	factory vst3.PluginFactory
	once    sync.Once
	err     error
}

// Open loads the module at path with the platform loader.
func Open(path string) (*Module, error) {
	return OpenWith(path, OpenLibrary)
}

// OpenWith loads the module at path through open.
func OpenWith(path string, open Opener) (*Module, error) {
	lib, err := open(path)
	if err != nil {
		reason := "load"
		switch {
		case errors.Is(err, ErrNotFound):
			reason = "not_found"
		case errors.Is(err, ErrNoArch):
			reason = "arch"
		}
		metrics.ModuleOpenFailures.WithLabelValues(reason).Inc()
		log.Debug("module unavailable", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	return Load(lib)
}

// Load runs lib's init hook and obtains its factory. On failure the
// library is exited as far as it was entered and closed.
func Load(lib Library) (*Module, error) {
	if err := lib.Init(); err != nil {
		metrics.ModuleOpenFailures.WithLabelValues("init").Inc()
		return nil, multierr.Append(fmt.Errorf("%w: %s: %v", ErrInitFailed, lib.Path(), err), lib.Close())
	}
	f, err := lib.Factory()
	if err == nil && f == nil {
		err = ErrNoFactory
	}
	if err != nil {
		metrics.ModuleOpenFailures.WithLabelValues("factory").Inc()
		if !errors.Is(err, ErrNoFactory) {
			err = fmt.Errorf("%w: %v", ErrNoFactory, err)
		}
		return nil, multierr.Combine(fmt.Errorf("%s: %w", lib.Path(), err), lib.Exit(), lib.Close())
	}
	metrics.ModulesLoaded.Inc()
	log.Debug("module loaded", zap.String("path", lib.Path()))
	return &Module{lib: lib, factory: f}, nil
}

// Path returns the path of the loaded binary.
func (m *Module) Path() string { return m.lib.Path() }

// Factory returns the module's factory. The module keeps its reference.
func (m *Module) Factory() vst3.PluginFactory { return m.factory }

// Close releases the factory, runs the exit hook and unloads the binary.
// Every object created from the factory must be released before.
func (m *Module) Close() error {
	m.once.Do(func() {
		m.factory.Release()
		m.err = multierr.Combine(m.lib.Exit(), m.lib.Close())
		metrics.ModulesLoaded.Dec()
		log.Debug("module closed", zap.String("path", m.lib.Path()))
	})
	return m.err
}
