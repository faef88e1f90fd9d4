package interop

import (
	"unicode/utf16"
	"unsafe"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// IConnectionPoint slots
const (
	slotConnect    = 3
	slotDisconnect = 4
	slotNotify     = 5
)

type nativeConnectionPoint struct {
	Object
}

func (c *nativeConnectionPoint) Connect(other vst3.ConnectionPoint) error {
	return result(c.call1(slotConnect, exposeOrZero(other)))
}

func (c *nativeConnectionPoint) Disconnect(other vst3.ConnectionPoint) error {
	return result(c.call1(slotDisconnect, exposeOrZero(other)))
}

func (c *nativeConnectionPoint) Notify(msg vst3.Message) error {
	return result(c.call1(slotNotify, exposeOrZero(msg)))
}

// IMessage slots
const (
	slotGetMessageID  = 3
	slotSetMessageID  = 4
	slotGetAttributes = 5
)

type nativeMessage struct {
	Object
}

func (m *nativeMessage) MessageID() string {
	return goString(m.call0(slotGetMessageID))
}

func (m *nativeMessage) SetMessageID(id string) {
	cid := cString(id)
	m.call1(slotSetMessageID, uintptr(unsafe.Pointer(&cid[0])))
}

// Attributes returns a borrowed list, valid while the message lives.
func (m *nativeMessage) Attributes() vst3.AttributeList {
	p := m.call0(slotGetAttributes)
	if p == 0 {
		return nil
	}
	if obj, ok := lookupShell(p); ok {
		if l, ok := obj.(vst3.AttributeList); ok {
			return l
		}
	}
	return &nativeAttributeList{Object: Object{ptr: p}}
}

// IAttributeList slots
const (
	slotSetInt    = 3
	slotGetInt    = 4
	slotSetFloat  = 5
	slotGetFloat  = 6
	slotSetString = 7
	slotGetString = 8
	slotSetBinary = 9
	slotGetBinary = 10
)

type nativeAttributeList struct {
	Object
}

func (l *nativeAttributeList) SetInt(id string, v int64) error {
	cid := cString(id)
	return result(l.call2(slotSetInt, uintptr(unsafe.Pointer(&cid[0])), uintptr(v)))
}

func (l *nativeAttributeList) Int(id string) (int64, error) {
	cid := cString(id)
	var v int64
	err := result(l.call2(slotGetInt, uintptr(unsafe.Pointer(&cid[0])), uintptr(unsafe.Pointer(&v))))
	return v, err
}

func (l *nativeAttributeList) SetFloat(id string, v float64) error {
	cid := cString(id)
	f := bind[func(uintptr, *byte, float64) int32](l.fn(slotSetFloat))
	return vst3.Result(f(l.ptr, &cid[0], v)).Err()
}

func (l *nativeAttributeList) Float(id string) (float64, error) {
	cid := cString(id)
	var v float64
	err := result(l.call2(slotGetFloat, uintptr(unsafe.Pointer(&cid[0])), uintptr(unsafe.Pointer(&v))))
	return v, err
}

func (l *nativeAttributeList) SetString(id string, v string) error {
	cid := cString(id)
	buf := utf16z(v)
	return result(l.call2(slotSetString, uintptr(unsafe.Pointer(&cid[0])), uintptr(unsafe.Pointer(&buf[0]))))
}

func (l *nativeAttributeList) String(id string) (string, error) {
	cid := cString(id)
	var buf [1024]uint16
	r := l.call3(slotGetString, uintptr(unsafe.Pointer(&cid[0])), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)*2))
	if err := result(r); err != nil {
		return "", err
	}
	return vst3.UTF16ToString(buf[:]), nil
}

func (l *nativeAttributeList) SetBinary(id string, data []byte) error {
	cid := cString(id)
	var p uintptr
	if len(data) > 0 {
		p = uintptr(unsafe.Pointer(&data[0]))
	}
	return result(l.call3(slotSetBinary, uintptr(unsafe.Pointer(&cid[0])), p, uintptr(len(data))))
}

// Binary returns a copy of the attribute's bytes.
func (l *nativeAttributeList) Binary(id string) ([]byte, error) {
	cid := cString(id)
	var p uintptr
	var size uint32
	r := l.call3(slotGetBinary, uintptr(unsafe.Pointer(&cid[0])), uintptr(unsafe.Pointer(&p)), uintptr(unsafe.Pointer(&size)))
	if err := result(r); err != nil {
		return nil, err
	}
	if p == 0 || size == 0 {
		return nil, nil
	}
	return append([]byte(nil), unsafe.Slice((*byte)(ptrAt(p)), size)...), nil
}

// IPlugView slots
const (
	slotIsPlatformTypeSupported = 3
	slotAttached                = 4
	slotRemoved                 = 5
	slotGetSize                 = 9
	slotOnSize                  = 10
	slotOnFocus                 = 11
	slotSetFrame                = 12
	slotCanResize               = 13
)

type nativeView struct {
	Object
}

func (v *nativeView) IsPlatformTypeSupported(platform string) error {
	cp := cString(platform)
	return result(v.call1(slotIsPlatformTypeSupported, uintptr(unsafe.Pointer(&cp[0]))))
}

func (v *nativeView) Attached(parent uintptr, platform string) error {
	cp := cString(platform)
	return result(v.call2(slotAttached, parent, uintptr(unsafe.Pointer(&cp[0]))))
}

func (v *nativeView) Removed() error {
	return result(v.call0(slotRemoved))
}

func (v *nativeView) Size() (vst3.ViewRect, error) {
	var r vst3.ViewRect
	err := result(v.call1(slotGetSize, uintptr(unsafe.Pointer(&r))))
	return r, err
}

func (v *nativeView) OnSize(r vst3.ViewRect) error {
	return result(v.call1(slotOnSize, uintptr(unsafe.Pointer(&r))))
}

func (v *nativeView) OnFocus(state bool) error {
	return result(v.call1(slotOnFocus, uintptr(vst3.Bool(state))))
}

func (v *nativeView) SetFrame(frame vst3.PlugFrame) error {
	return result(v.call1(slotSetFrame, exposeOrZero(frame)))
}

func (v *nativeView) CanResize() error {
	return result(v.call0(slotCanResize))
}

const slotSetContentScaleFactor = 3

type nativeContentScale struct {
	Object
}

func (s *nativeContentScale) SetContentScaleFactor(factor float32) error {
	f := bind[func(uintptr, float32) int32](s.fn(slotSetContentScaleFactor))
	return vst3.Result(f(s.ptr, factor)).Err()
}

func utf16z(s string) []uint16 {
	return append(utf16.Encode([]rune(s)), 0)
}
