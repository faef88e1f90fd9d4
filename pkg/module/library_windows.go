package module

import (
	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"

	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// dllLibrary is a binary loaded with LoadLibraryEx.
type dllLibrary struct {
	path    string
	handle  windows.Handle
	entered bool
}

func openNative(path string) (Library, error) {
	h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return nil, err
	}
	return &dllLibrary{path: path, handle: h}, nil
}

func (l *dllLibrary) Path() string { return l.path }

func (l *dllLibrary) sym(name string) uintptr {
	p, err := windows.GetProcAddress(l.handle, name)
	if err != nil {
		return 0
	}
	return p
}

// Init calls InitDll, which returns a C bool.
func (l *dllLibrary) Init() error {
	fn := l.sym("InitDll")
	if fn == 0 {
		return nil
	}
	if ok, _, _ := purego.SyscallN(fn); ok&0xff == 0 {
		return ErrInitFailed
	}
	l.entered = true
	return nil
}

func (l *dllLibrary) Factory() (vst3.PluginFactory, error) {
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

func (l *dllLibrary) Exit() error {
	if !l.entered {
		return nil
	}
	l.entered = false
	if fn := l.sym("ExitDll"); fn != 0 {
		purego.SyscallN(fn)
	}
	return nil
}

func (l *dllLibrary) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := windows.FreeLibrary(l.handle)
	l.handle = 0
	return err
}
