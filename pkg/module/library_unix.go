//go:build linux || darwin

package module

import (
	"github.com/ebitengine/purego"

	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// dlLibrary is a binary loaded with dlopen.
type dlLibrary struct {
	path   string
	handle uintptr
	hooks  hooks
}

func openNative(path string) (Library, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &dlLibrary{path: path, handle: h}, nil
}

func (l *dlLibrary) Path() string { return l.path }

func (l *dlLibrary) sym(name string) uintptr {
	p, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return 0
	}
	return p
}

func (l *dlLibrary) Init() error { return l.hooks.enter(l) }

func (l *dlLibrary) Factory() (vst3.PluginFactory, error) {
	fn := l.sym("GetPluginFactory")
	if fn == 0 {
		return nil, ErrNoFactory
	}
	ptr, _, _ := purego.SyscallN(fn)
	if ptr == 0 {
		return nil, ErrNoFactory
	}
	f, ok := interop.Wrap(ptr, vst3.IIDPluginFactory).(vst3.PluginFactory)
	if !ok {
		return nil, ErrNoFactory
	}
	return f, nil
}

func (l *dlLibrary) Exit() error { return l.hooks.exit(l) }

func (l *dlLibrary) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}
