package interop

import (
	"sync"

	"github.com/ebitengine/purego"
)

var (
	pthreadSelfOnce sync.Once
	pthreadSelf     func() uintptr
)

// threadID returns pthread_self, which is unique among live threads.
func threadID() uint64 {
	pthreadSelfOnce.Do(func() {
		lib, err := purego.Dlopen("/usr/lib/libSystem.B.dylib", purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			return
		}
		purego.RegisterLibFunc(&pthreadSelf, lib, "pthread_self")
	})
	if pthreadSelf == nil {
		return 0
	}
	return uint64(pthreadSelf())
}
