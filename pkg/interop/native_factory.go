package interop

import (
	"unsafe"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// IPluginFactory slots
const (
	slotGetFactoryInfo = 3
	slotCountClasses   = 4
	slotGetClassInfo   = 5
	slotCreateInstance = 6
	slotGetClassInfo2  = 7
	slotSetHostContext = 9
)

type nativeFactory struct {
	Object
}

func (f *nativeFactory) FactoryInfo() (vst3.FactoryInfo, error) {
	var info vst3.FactoryInfo
	err := result(f.call1(slotGetFactoryInfo, uintptr(unsafe.Pointer(&info))))
	return info, err
}

func (f *nativeFactory) CountClasses() int32 {
	return int32(f.call0(slotCountClasses))
}

func (f *nativeFactory) vendor() string {
	info, err := f.FactoryInfo()
	if err != nil {
		return ""
	}
	return vst3.Char8ToString(info.Vendor[:])
}

// ClassInfo prefers IPluginFactory2 for the extended descriptor.
func (f *nativeFactory) ClassInfo(index int32) (vst3.ClassInfo, error) {
	vendor := f.vendor()
	if p, err := f.queryRaw(vst3.IIDPluginFactory2); err == nil {
		f2 := Object{ptr: p}
		defer f2.Release()
		var raw vst3.ClassInfo2Raw
		if err := result(f2.call2(slotGetClassInfo2, uintptr(index), uintptr(unsafe.Pointer(&raw)))); err == nil {
			return raw.Decode(vendor), nil
		}
	}
	var raw vst3.ClassInfoRaw
	if err := result(f.call2(slotGetClassInfo, uintptr(index), uintptr(unsafe.Pointer(&raw)))); err != nil {
		return vst3.ClassInfo{}, err
	}
	return raw.Decode(vendor), nil
}

func (f *nativeFactory) CreateInstance(cid, iid vst3.TUID) (vst3.Unknown, error) {
	var out uintptr
	r := f.call3(slotCreateInstance,
		uintptr(unsafe.Pointer(&cid)), uintptr(unsafe.Pointer(&iid)), uintptr(unsafe.Pointer(&out)))
	if err := result(r); err != nil {
		return nil, err
	}
	if out == 0 {
		return nil, vst3.ErrNoInterface
	}
	return Wrap(out, iid), nil
}

func (f *nativeFactory) SetHostContext(host vst3.Unknown) error {
	p, err := f.queryRaw(vst3.IIDPluginFactory3)
	if err != nil {
		return vst3.ErrNotImplemented
	}
	f3 := Object{ptr: p}
	defer f3.Release()
	return result(f3.call1(slotSetHostContext, Expose(host)))
}
