package module

import "github.com/ebitengine/purego"

// hooks calls ModuleEntry and ModuleExit, which take the dlopen handle
// and return a C bool.
type hooks struct {
	entered bool
}

func (h *hooks) enter(l *dlLibrary) error {
	fn := l.sym("ModuleEntry")
	if fn == 0 {
		return nil
	}
	if ok, _, _ := purego.SyscallN(fn, l.handle); ok&0xff == 0 {
		return ErrInitFailed
	}
	h.entered = true
	return nil
}

func (h *hooks) exit(l *dlLibrary) error {
	if !h.entered {
		return nil
	}
	h.entered = false
	if fn := l.sym("ModuleExit"); fn != 0 {
		purego.SyscallN(fn)
	}
	return nil
}
