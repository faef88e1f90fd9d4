package interop

import (
	"unsafe"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// IEditController slots
const (
	slotSetComponentState      = 5
	slotCtrlSetState           = 6
	slotCtrlGetState           = 7
	slotGetParameterCount      = 8
	slotGetParameterInfo       = 9
	slotGetParamStringByValue  = 10
	slotGetParamValueByString  = 11
	slotNormalizedParamToPlain = 12
	slotPlainParamToNormalized = 13
	slotGetParamNormalized     = 14
	slotSetParamNormalized     = 15
	slotSetComponentHandler    = 16
	slotCreateView             = 17
)

type nativeController struct {
	Object
}

func (c *nativeController) Initialize(host vst3.Unknown) error {
	return result(c.call1(slotInitialize, Expose(host)))
}

func (c *nativeController) Terminate() error {
	return result(c.call0(slotTerminate))
}

func (c *nativeController) SetComponentState(s vst3.Stream) error {
	return result(c.call1(slotSetComponentState, Expose(s)))
}

func (c *nativeController) SetState(s vst3.Stream) error {
	return result(c.call1(slotCtrlSetState, Expose(s)))
}

func (c *nativeController) GetState(s vst3.Stream) error {
	return result(c.call1(slotCtrlGetState, Expose(s)))
}

func (c *nativeController) ParameterCount() int32 {
	return int32(c.call0(slotGetParameterCount))
}

func (c *nativeController) ParameterInfo(index int32) (vst3.ParameterInfo, error) {
	var info vst3.ParameterInfo
	err := result(c.call2(slotGetParameterInfo, uintptr(index), uintptr(unsafe.Pointer(&info))))
	return info, err
}

func (c *nativeController) ParamStringByValue(id vst3.ParamID, value vst3.ParamValue) (string, error) {
	var out vst3.String128
	f := bind[func(uintptr, uint32, float64, *vst3.String128) int32](c.fn(slotGetParamStringByValue))
	if err := vst3.Result(f(c.ptr, id, value, &out)).Err(); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (c *nativeController) ParamValueByString(id vst3.ParamID, text string) (vst3.ParamValue, error) {
	s := vst3.NewString128(text)
	var v vst3.ParamValue
	r := c.call3(slotGetParamValueByString, uintptr(id), uintptr(unsafe.Pointer(&s[0])), uintptr(unsafe.Pointer(&v)))
	return v, result(r)
}

func (c *nativeController) NormalizedParamToPlain(id vst3.ParamID, value vst3.ParamValue) vst3.ParamValue {
	f := bind[func(uintptr, uint32, float64) float64](c.fn(slotNormalizedParamToPlain))
	return f(c.ptr, id, value)
}

func (c *nativeController) PlainParamToNormalized(id vst3.ParamID, plain vst3.ParamValue) vst3.ParamValue {
	f := bind[func(uintptr, uint32, float64) float64](c.fn(slotPlainParamToNormalized))
	return f(c.ptr, id, plain)
}

func (c *nativeController) ParamNormalized(id vst3.ParamID) vst3.ParamValue {
	f := bind[func(uintptr, uint32) float64](c.fn(slotGetParamNormalized))
	return f(c.ptr, id)
}

func (c *nativeController) SetParamNormalized(id vst3.ParamID, value vst3.ParamValue) error {
	f := bind[func(uintptr, uint32, float64) int32](c.fn(slotSetParamNormalized))
	return vst3.Result(f(c.ptr, id, value)).Err()
}

func (c *nativeController) SetComponentHandler(h vst3.ComponentHandler) error {
	var p uintptr
	if h != nil {
		p = Expose(h)
	}
	return result(c.call1(slotSetComponentHandler, p))
}

// CreateView returns ErrNotImplemented when the plugin has no view of that
// name; the view pointer carries a reference.
func (c *nativeController) CreateView(name string) (vst3.PlugView, error) {
	cname := cString(name)
	p := c.call1(slotCreateView, uintptr(unsafe.Pointer(&cname[0])))
	if p == 0 {
		return nil, vst3.ErrNotImplemented
	}
	return &nativeView{Object: Object{ptr: p}}, nil
}

const slotGetMidiControllerAssignment = 3

type nativeMidiMapping struct {
	Object
}

func (m *nativeMidiMapping) MidiControllerAssignment(bus int32, channel int16, ctrl vst3.CtrlNumber) (vst3.ParamID, error) {
	var id vst3.ParamID
	r := m.call4(slotGetMidiControllerAssignment,
		uintptr(bus), uintptr(uint16(channel)), uintptr(uint16(ctrl)), uintptr(unsafe.Pointer(&id)))
	return id, result(r)
}

// IUnitInfo slots
const (
	slotGetUnitCount = 3
	slotGetUnitInfo  = 4
)

type nativeUnitInfo struct {
	Object
}

func (u *nativeUnitInfo) UnitCount() int32 {
	return int32(u.call0(slotGetUnitCount))
}

func (u *nativeUnitInfo) UnitInfo(index int32) (vst3.UnitInfo, error) {
	var info vst3.UnitInfo
	err := result(u.call2(slotGetUnitInfo, uintptr(index), uintptr(unsafe.Pointer(&info))))
	return info, err
}
