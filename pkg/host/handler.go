package host

import (
	"go.uber.org/zap"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// componentHandler receives edits and restart requests from the
// controller.
type componentHandler struct {
	vst3.RefCount
	inst *Instance
}

func newComponentHandler(i *Instance) *componentHandler {
	h := &componentHandler{inst: i}
	h.Init()
	return h
}

func (h *componentHandler) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDComponentHandler:
		h.AddRef()
		return h, nil
	}
	return nil, vst3.ErrNoInterface
}

func (h *componentHandler) BeginEdit(id vst3.ParamID) error {
	h.inst.log.Trace("begin edit", zap.Uint32("id", id))
	return nil
}

// PerformEdit forwards a controller edit to the processor. It may be
// called from the plugin's UI thread.
func (h *componentHandler) PerformEdit(id vst3.ParamID, value vst3.ParamValue) error {
	if h.inst.params.Get(id) == nil {
		return vst3.ErrInvalidArgument
	}
	h.inst.edited(id, value)
	return nil
}

func (h *componentHandler) EndEdit(id vst3.ParamID) error {
	h.inst.log.Trace("end edit", zap.Uint32("id", id))
	return nil
}

// RestartComponent applies the changes the plugin announces on the
// control loop.
func (h *componentHandler) RestartComponent(flags int32) error {
	i := h.inst
	if i.host.control.IsCurrent() {
		i.restart(flags)
		return nil
	}
	i.post(func() { i.restart(flags) })
	return nil
}

func (i *Instance) restart(flags int32) {
	if i.closed.Load() {
		return
	}
	ctrl := i.prov.Controller()
	if flags&vst3.RestartLatencyChanged != 0 {
		i.latency.Store(i.prov.Processor().LatencySamples())
	}
	if flags&vst3.RestartParamTitlesChanged != 0 {
		if err := i.params.Reload(ctrl); err != nil {
			i.log.Warn("reload parameters", zap.Error(err))
		}
	} else if flags&vst3.RestartParamValuesChanged != 0 {
		i.params.Refresh(ctrl)
	}
	if flags&(vst3.RestartIOChanged|vst3.RestartReloadComponent) != 0 {
		i.log.Info("restart requires reopening the plugin", zap.Int32("flags", flags))
	}
	i.log.Debug("restart component", zap.Int32("flags", flags), zap.Uint32("latency", i.latency.Load()))
}
