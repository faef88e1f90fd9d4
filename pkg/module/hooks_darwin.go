package module

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/ebitengine/purego"
)

// hooks calls bundleEntry and bundleExit, which take a CFBundleRef of the
// plugin bundle.
type hooks struct {
	bundle  uintptr
	entered bool
}

var (
	cfOnce    sync.Once
	cfErr     error
	cfURL     func(alloc uintptr, path *byte, length int, isDir bool) uintptr
	cfBundle  func(alloc, url uintptr) uintptr
	cfRelease func(ref uintptr)
)

func loadCoreFoundation() error {
	cfOnce.Do(func() {
		lib, err := purego.Dlopen("/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation", purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			cfErr = err
			return
		}
		purego.RegisterLibFunc(&cfURL, lib, "CFURLCreateFromFileSystemRepresentation")
		purego.RegisterLibFunc(&cfBundle, lib, "CFBundleCreate")
		purego.RegisterLibFunc(&cfRelease, lib, "CFRelease")
	})
	return cfErr
}

// bundleDir returns the .vst3 directory containing binary, or binary when
// it is not inside a bundle.
func bundleDir(binary string) string {
	dir := filepath.Dir(binary)
	if filepath.Base(dir) == "MacOS" && filepath.Base(filepath.Dir(dir)) == "Contents" {
		return filepath.Dir(filepath.Dir(dir))
	}
	return binary
}

func (h *hooks) enter(l *dlLibrary) error {
	fn := l.sym("bundleEntry")
	if fn == 0 {
		return nil
	}
	if err := loadCoreFoundation(); err != nil {
		return err
	}
	path := bundleDir(l.path)
	buf := append([]byte(path), 0)
	url := cfURL(0, &buf[0], len(path), !strings.HasSuffix(path, ".so"))
	if url == 0 {
		return ErrInitFailed
	}
	defer cfRelease(url)
	h.bundle = cfBundle(0, url)
	if h.bundle == 0 {
		return ErrInitFailed
	}
	if ok, _, _ := purego.SyscallN(fn, h.bundle); ok&0xff == 0 {
		cfRelease(h.bundle)
		h.bundle = 0
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
	if fn := l.sym("bundleExit"); fn != 0 {
		purego.SyscallN(fn)
	}
	if h.bundle != 0 {
		cfRelease(h.bundle)
		h.bundle = 0
	}
	return nil
}
