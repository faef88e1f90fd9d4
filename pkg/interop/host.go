package interop

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// shell is the native face of a Go host object: its first word is the
// vtable pointer, so a *shell is a valid interface pointer for plugins.
type shell struct {
	vtbl   uintptr
	obj    any
	iid    vst3.TUID
	refs   atomic.Int32
	cstr   []byte
	pinner runtime.Pinner
}

func (s *shell) ptr() uintptr { return uintptr(unsafe.Pointer(s)) }

func shellAt(this uintptr) *shell { return (*shell)(ptrAt(this)) }

func (s *shell) addRef() uint32 {
	if u, ok := s.obj.(vst3.Unknown); ok {
		return u.AddRef()
	}
	return uint32(s.refs.Add(1))
}

func (s *shell) release() uint32 {
	if u, ok := s.obj.(vst3.Unknown); ok {
		return u.Release()
	}
	for {
		cur := s.refs.Load()
		if cur <= 0 {
			return 0
		}
		if s.refs.CompareAndSwap(cur, cur-1) {
			return uint32(cur - 1)
		}
	}
}

var (
	shellsByObj sync.Map
	shellsByPtr sync.Map
)

// Owner is implemented by host objects that hand other host objects to
// plugins, such as a parameter change set and its queues. Unexpose drops
// the owned objects' shells along with the owner's.
type Owner interface {
	Owned() []any
}

// releaseWatcher is implemented by objects embedding vst3.RefCount.
type releaseWatcher interface {
	WatchRelease(fn func())
}

// Expose returns the native interface pointer for a host object, creating
// its shell on first use. Native wrappers return their own pointer. Plugin
// reference counting is forwarded to objects implementing vst3.Unknown,
// and their shell is dropped with their last reference. Other objects keep
// their shell until Unexpose.
func Expose(obj any) uintptr {
	p, _ := expose(obj)
	return p
}

// expose is Expose that also reports whether a new shell was created.
func expose(obj any) (uintptr, bool) {
	if obj == nil {
		return 0, false
	}
	if n, ok := obj.(Native); ok {
		return n.Ptr(), false
	}
	if s, ok := shellsByObj.Load(obj); ok {
		return s.(*shell).ptr(), false
	}
	vtbl, iid := vtableFor(obj)
	if vtbl == 0 {
		return 0, false
	}
	s := &shell{vtbl: vtbl, obj: obj, iid: iid}
	s.refs.Store(1)
	s.pinner.Pin(s)
	if actual, loaded := shellsByObj.LoadOrStore(obj, s); loaded {
		s.pinner.Unpin()
		return actual.(*shell).ptr(), false
	}
	shellsByPtr.Store(s.ptr(), s)
	if w, ok := obj.(releaseWatcher); ok {
		w.WatchRelease(func() { unexposeShell(obj, s) })
	}
	return s.ptr(), true
}

// Unexpose drops the shells of host objects that plugins can no longer
// reach.
func Unexpose(objs ...any) {
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if v, ok := shellsByObj.Load(obj); ok {
			unexposeShell(obj, v.(*shell))
		}
		if o, ok := obj.(Owner); ok {
			Unexpose(o.Owned()...)
		}
	}
}

// unexposeShell drops s if it is still obj's shell.
func unexposeShell(obj any, s *shell) {
	if !shellsByObj.CompareAndDelete(obj, s) {
		return
	}
	shellsByPtr.Delete(s.ptr())
	s.pinner.Unpin()
}

// Exposed reports whether obj currently has a shell.
func Exposed(obj any) bool {
	_, ok := shellsByObj.Load(obj)
	return ok
}

func lookupShell(ptr uintptr) (any, bool) {
	v, ok := shellsByPtr.Load(ptr)
	if !ok {
		return nil, false
	}
	return v.(*shell).obj, true
}

func vtableFor(obj any) (uintptr, vst3.TUID) {
	switch obj.(type) {
	case vst3.ConnectionPoint:
		return connectionVtbl.ptr(buildConnectionVtbl), vst3.IIDConnectionPoint
	case vst3.Message:
		return messageVtbl.ptr(buildMessageVtbl), vst3.IIDMessage
	case vst3.AttributeList:
		return attributesVtbl.ptr(buildAttributesVtbl), vst3.IIDAttributeList
	case vst3.HostApplication:
		return hostAppVtbl.ptr(buildHostAppVtbl), vst3.IIDHostApplication
	case vst3.ComponentHandler:
		return handlerVtbl.ptr(buildHandlerVtbl), vst3.IIDComponentHandler
	case vst3.PlugFrame:
		return frameVtbl.ptr(buildFrameVtbl), vst3.IIDPlugFrame
	case vst3.Stream:
		return streamVtbl.ptr(buildStreamVtbl), vst3.IIDBStream
	case vst3.ParameterChanges:
		return changesVtbl.ptr(buildChangesVtbl), vst3.IIDParameterChanges
	case vst3.ParamValueQueue:
		return queueVtbl.ptr(buildQueueVtbl), vst3.IIDParamValueQueue
	case vst3.EventList:
		return eventsVtbl.ptr(buildEventsVtbl), vst3.IIDEventList
	}
	return 0, vst3.TUID{}
}

// vtable is a lazily built, never freed array of callback pointers.
type vtable struct {
	once sync.Once
	fns  []uintptr
}

func (v *vtable) ptr(build func() []uintptr) uintptr {
	v.once.Do(func() { v.fns = build() })
	return uintptr(unsafe.Pointer(&v.fns[0]))
}

var (
	connectionVtbl vtable
	messageVtbl    vtable
	attributesVtbl vtable
	hostAppVtbl    vtable
	handlerVtbl    vtable
	frameVtbl      vtable
	streamVtbl     vtable
	changesVtbl    vtable
	queueVtbl      vtable
	eventsVtbl     vtable
)
