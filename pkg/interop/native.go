package interop

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// FUnknown vtable slots shared by every interface.
const (
	slotQueryInterface = 0
	slotAddRef         = 1
	slotRelease        = 2
)

// Object is a native interface pointer: a pointer to a pointer to a
// vtable of C function pointers.
type Object struct {
	ptr uintptr
}

// Ptr returns the native pointer.
func (o *Object) Ptr() uintptr { return o.ptr }

// ptrAt views an address that crossed the native boundary. The address may
// point into Go memory the host handed out as a uintptr, which checkptr
// cannot trace back to its allocation.
//
//go:nocheckptr
func ptrAt(p uintptr) unsafe.Pointer { return unsafe.Pointer(p) }

func (o *Object) fn(slot int) uintptr {
	vtbl := *(*uintptr)(ptrAt(o.ptr))
	return *(*uintptr)(ptrAt(vtbl + uintptr(slot)*ptrSize))
}

func (o *Object) call0(slot int) uintptr {
	r, _, _ := purego.SyscallN(o.fn(slot), o.ptr)
	return r
}

func (o *Object) call1(slot int, a uintptr) uintptr {
	r, _, _ := purego.SyscallN(o.fn(slot), o.ptr, a)
	return r
}

func (o *Object) call2(slot int, a, b uintptr) uintptr {
	r, _, _ := purego.SyscallN(o.fn(slot), o.ptr, a, b)
	return r
}

func (o *Object) call3(slot int, a, b, c uintptr) uintptr {
	r, _, _ := purego.SyscallN(o.fn(slot), o.ptr, a, b, c)
	return r
}

func (o *Object) call4(slot int, a, b, c, d uintptr) uintptr {
	r, _, _ := purego.SyscallN(o.fn(slot), o.ptr, a, b, c, d)
	return r
}

func result(r uintptr) error {
	return vst3.Result(int32(r)).Err()
}

// QueryInterface implements vst3.Unknown. The returned wrapper matches iid.
func (o *Object) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	p, err := o.queryRaw(iid)
	if err != nil {
		return nil, err
	}
	return Wrap(p, iid), nil
}

func (o *Object) queryRaw(iid vst3.TUID) (uintptr, error) {
	var out uintptr
	r := o.call2(slotQueryInterface, uintptr(unsafe.Pointer(&iid)), uintptr(unsafe.Pointer(&out)))
	if err := result(r); err != nil {
		return 0, err
	}
	if out == 0 {
		return 0, vst3.ErrNoInterface
	}
	return out, nil
}

// AddRef implements vst3.Unknown.
func (o *Object) AddRef() uint32 { return uint32(o.call0(slotAddRef)) }

// Release implements vst3.Unknown.
func (o *Object) Release() uint32 { return uint32(o.call0(slotRelease)) }

// Wrap returns the typed wrapper for a native pointer known to implement
// iid. It adopts the reference the pointer carries.
func Wrap(ptr uintptr, iid vst3.TUID) vst3.Unknown {
	if ptr == 0 {
		return nil
	}
	if obj, ok := lookupShell(ptr); ok {
		if u, ok := obj.(vst3.Unknown); ok {
			return u
		}
	}
	o := Object{ptr: ptr}
	switch iid {
	case vst3.IIDPluginFactory, vst3.IIDPluginFactory2, vst3.IIDPluginFactory3:
		return &nativeFactory{Object: o}
	case vst3.IIDComponent:
		return &nativeComponent{Object: o}
	case vst3.IIDAudioProcessor:
		return &nativeProcessor{Object: o}
	case vst3.IIDEditController:
		return &nativeController{Object: o}
	case vst3.IIDConnectionPoint:
		return &nativeConnectionPoint{Object: o}
	case vst3.IIDMessage:
		return &nativeMessage{Object: o}
	case vst3.IIDAttributeList:
		return &nativeAttributeList{Object: o}
	case vst3.IIDMidiMapping:
		return &nativeMidiMapping{Object: o}
	case vst3.IIDUnitInfo:
		return &nativeUnitInfo{Object: o}
	case vst3.IIDPlugView:
		return &nativeView{Object: o}
	case vst3.IIDPlugViewContentScaleSupport:
		return &nativeContentScale{Object: o}
	}
	return &o
}

// SameObject reports whether a and b are interfaces of one object, by
// comparing their FUnknown identities.
func SameObject(a, b vst3.Unknown) bool {
	if a == nil || b == nil {
		return false
	}
	ua, err := a.QueryInterface(vst3.IIDFUnknown)
	if err != nil {
		return false
	}
	defer ua.Release()
	ub, err := b.QueryInterface(vst3.IIDFUnknown)
	if err != nil {
		return false
	}
	defer ub.Release()
	return identity(ua) == identity(ub)
}

var bindings sync.Map

// bind returns a Go function calling the native function pointer fn with
// the C ABI, for signatures SyscallN cannot express (floating point).
// Bindings are cached per function pointer.
func bind[F any](fn uintptr) F {
	if v, ok := bindings.Load(fn); ok {
		if f, ok := v.(F); ok {
			return f
		}
	}
	var f F
	purego.RegisterFunc(&f, fn)
	bindings.Store(fn, f)
	return f
}

// cString returns a NUL-terminated copy of s for passing as FIDString.
func cString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// goString reads a NUL-terminated C string.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(ptrAt(p + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(ptrAt(p)), n))
}

// goString16 reads a NUL-terminated UTF-16 string.
func goString16(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*uint16)(ptrAt(p + uintptr(n)*2)) != 0 {
		n++
	}
	return vst3.UTF16ToString(unsafe.Slice((*uint16)(ptrAt(p)), n))
}
