package testplugin

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Parameter ids
const (
	ParamGain   vst3.ParamID = 0
	ParamMode   vst3.ParamID = 1
	ParamBypass vst3.ParamID = 2
	ParamMeter  vst3.ParamID = 10
)

var paramInfos = []vst3.ParameterInfo{
	{
		ID:                     ParamGain,
		Title:                  vst3.NewString128("Gain"),
		ShortTitle:             vst3.NewString128("Gain"),
		Units:                  vst3.NewString128("dB"),
		DefaultNormalizedValue: 1,
		Flags:                  vst3.ParameterCanAutomate,
	},
	{
		ID:                     ParamMode,
		Title:                  vst3.NewString128("Mode"),
		StepCount:              2,
		DefaultNormalizedValue: 0,
		Flags:                  vst3.ParameterCanAutomate | vst3.ParameterIsList,
		UnitID:                 1,
	},
	{
		ID:        ParamBypass,
		Title:     vst3.NewString128("Bypass"),
		StepCount: 1,
		Flags:     vst3.ParameterCanAutomate | vst3.ParameterIsBypass,
	},
	{
		ID:    ParamMeter,
		Title: vst3.NewString128("Output"),
		Flags: vst3.ParameterIsReadOnly,
	},
}

// paramSet is the controller half shared by the single-object plugin and
// the split controller.
type paramSet struct {
	mu      sync.Mutex
	values  map[vst3.ParamID]vst3.ParamValue
	handler vst3.ComponentHandler
	units   bool
	mapping bool
	log     *Log
	view    *View
}

func newParamSet(log *Log, opts Options) *paramSet {
	ps := &paramSet{
		values:  make(map[vst3.ParamID]vst3.ParamValue),
		units:   !opts.NoUnits,
		mapping: !opts.NoMidiMapping,
		log:     log,
	}
	for _, info := range paramInfos {
		ps.values[info.ID] = info.DefaultNormalizedValue
	}
	return ps
}

func (ps *paramSet) ParameterCount() int32 { return int32(len(paramInfos)) }

func (ps *paramSet) ParameterInfo(index int32) (vst3.ParameterInfo, error) {
	if index < 0 || int(index) >= len(paramInfos) {
		return vst3.ParameterInfo{}, vst3.ErrInvalidArgument
	}
	return paramInfos[index], nil
}

func (ps *paramSet) ParamStringByValue(id vst3.ParamID, value vst3.ParamValue) (string, error) {
	switch id {
	case ParamGain, ParamMeter:
		return strconv.FormatFloat(value, 'f', 2, 64), nil
	case ParamMode:
		return [...]string{"A", "B", "C"}[int(value*2+0.5)], nil
	case ParamBypass:
		if value >= 0.5 {
			return "On", nil
		}
		return "Off", nil
	}
	return "", vst3.ErrInvalidArgument
}

func (ps *paramSet) ParamValueByString(id vst3.ParamID, text string) (vst3.ParamValue, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vst3.ErrInvalidArgument, err)
	}
	return v, nil
}

func (ps *paramSet) NormalizedParamToPlain(id vst3.ParamID, value vst3.ParamValue) vst3.ParamValue {
	if id == ParamMode {
		return value * 2
	}
	return value
}

func (ps *paramSet) PlainParamToNormalized(id vst3.ParamID, plain vst3.ParamValue) vst3.ParamValue {
	if id == ParamMode {
		return plain / 2
	}
	return plain
}

func (ps *paramSet) ParamNormalized(id vst3.ParamID) vst3.ParamValue {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.values[id]
}

func (ps *paramSet) SetParamNormalized(id vst3.ParamID, value vst3.ParamValue) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, ok := ps.values[id]; !ok {
		return vst3.ErrInvalidArgument
	}
	ps.values[id] = value
	return nil
}

func (ps *paramSet) SetComponentHandler(h vst3.ComponentHandler) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.handler != nil {
		ps.handler.Release()
	}
	if h != nil {
		h.AddRef()
	}
	ps.handler = h
	ps.log.Add("setComponentHandler")
	return nil
}

func (ps *paramSet) createView(name string) (vst3.PlugView, error) {
	if name != vst3.ViewTypeEditor {
		return nil, vst3.ErrFalse
	}
	v := NewView(ps.log)
	ps.mu.Lock()
	ps.view = v
	ps.mu.Unlock()
	return v, nil
}

// View returns the last editor view created.
func (ps *paramSet) View() *View {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.view
}

func (ps *paramSet) releaseHandler() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.handler != nil {
		ps.handler.Release()
		ps.handler = nil
	}
}

// Edit simulates a UI gesture: the controller updates its value and tells
// the host through the component handler.
func (ps *paramSet) Edit(id vst3.ParamID, value vst3.ParamValue) error {
	ps.mu.Lock()
	h := ps.handler
	ps.values[id] = value
	ps.mu.Unlock()
	if h == nil {
		return vst3.ErrNotInitialized
	}
	if err := h.BeginEdit(id); err != nil {
		return err
	}
	if err := h.PerformEdit(id, value); err != nil {
		return err
	}
	return h.EndEdit(id)
}

// Restart asks the host to restart with flags.
func (ps *paramSet) Restart(flags int32) error {
	ps.mu.Lock()
	h := ps.handler
	ps.mu.Unlock()
	if h == nil {
		return vst3.ErrNotInitialized
	}
	return h.RestartComponent(flags)
}

func (ps *paramSet) MidiControllerAssignment(bus int32, channel int16, ctrl vst3.CtrlNumber) (vst3.ParamID, error) {
	if !ps.mapping {
		return 0, vst3.ErrNotImplemented
	}
	switch ctrl {
	case 7:
		return ParamGain, nil
	case vst3.CtrlPitchBend, vst3.CtrlProgramChange:
		return ParamMode, nil
	}
	return 0, vst3.ErrFalse
}

var unitInfos = []vst3.UnitInfo{
	{ID: 0, ParentUnitID: -1, Name: vst3.NewString128("Root"), ProgramListID: -1},
	{ID: 1, ParentUnitID: 0, Name: vst3.NewString128("Modes"), ProgramListID: -1},
}

func (ps *paramSet) UnitCount() int32 {
	if !ps.units {
		return 0
	}
	return int32(len(unitInfos))
}

func (ps *paramSet) UnitInfo(index int32) (vst3.UnitInfo, error) {
	if !ps.units || index < 0 || int(index) >= len(unitInfos) {
		return vst3.UnitInfo{}, vst3.ErrInvalidArgument
	}
	return unitInfos[index], nil
}
