package vst3

// Unknown is FUnknown. QueryInterface hands out a new reference that the
// caller must Release.
type Unknown interface {
	QueryInterface(iid TUID) (Unknown, error)
	AddRef() uint32
	Release() uint32
}

// Query asks u for iid and asserts the result to T. On a type mismatch the
// extra reference is dropped and ErrNoInterface returned.
func Query[T any](u Unknown, iid TUID) (T, error) {
	var zero T
	if u == nil {
		return zero, ErrNoInterface
	}
	obj, err := u.QueryInterface(iid)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		obj.Release()
		return zero, ErrNoInterface
	}
	return t, nil
}

// PluginBase is IPluginBase.
type PluginBase interface {
	Unknown
	Initialize(host Unknown) error
	Terminate() error
}

// PluginFactory merges IPluginFactory, IPluginFactory2 and IPluginFactory3.
// Implementations fall back to the oldest interface the module supports.
type PluginFactory interface {
	Unknown
	FactoryInfo() (FactoryInfo, error)
	CountClasses() int32
	ClassInfo(index int32) (ClassInfo, error)
	CreateInstance(cid, iid TUID) (Unknown, error)
	// SetHostContext returns ErrNotImplemented without IPluginFactory3.
	SetHostContext(host Unknown) error
}

// Component is IComponent.
type Component interface {
	PluginBase
	ControllerClassID() (TUID, error)
	SetIOMode(mode int32) error
	BusCount(media MediaType, dir BusDirection) int32
	BusInfo(media MediaType, dir BusDirection, index int32) (BusInfo, error)
	ActivateBus(media MediaType, dir BusDirection, index int32, state bool) error
	SetActive(state bool) error
	SetState(s Stream) error
	GetState(s Stream) error
}

// AudioProcessor is IAudioProcessor.
type AudioProcessor interface {
	Unknown
	SetBusArrangements(inputs, outputs []SpeakerArrangement) error
	BusArrangement(dir BusDirection, index int32) (SpeakerArrangement, error)
	CanProcessSampleSize(size int32) error
	LatencySamples() uint32
	SetupProcessing(setup ProcessSetup) error
	SetProcessing(state bool) error
	Process(data *ProcessData) error
	TailSamples() uint32
}

// EditController is IEditController.
type EditController interface {
	PluginBase
	SetComponentState(s Stream) error
	SetState(s Stream) error
	GetState(s Stream) error
	ParameterCount() int32
	ParameterInfo(index int32) (ParameterInfo, error)
	ParamStringByValue(id ParamID, value ParamValue) (string, error)
	ParamValueByString(id ParamID, text string) (ParamValue, error)
	NormalizedParamToPlain(id ParamID, value ParamValue) ParamValue
	PlainParamToNormalized(id ParamID, plain ParamValue) ParamValue
	ParamNormalized(id ParamID) ParamValue
	SetParamNormalized(id ParamID, value ParamValue) error
	SetComponentHandler(handler ComponentHandler) error
	CreateView(name string) (PlugView, error)
}

// ConnectionPoint is IConnectionPoint.
type ConnectionPoint interface {
	Unknown
	Connect(other ConnectionPoint) error
	Disconnect(other ConnectionPoint) error
	Notify(msg Message) error
}

// MidiMapping is IMidiMapping.
type MidiMapping interface {
	Unknown
	MidiControllerAssignment(bus int32, channel int16, ctrl CtrlNumber) (ParamID, error)
}

// UnitInfoProvider is IUnitInfo, reduced to unit enumeration.
type UnitInfoProvider interface {
	Unknown
	UnitCount() int32
	UnitInfo(index int32) (UnitInfo, error)
}

// PlugView is IPlugView.
type PlugView interface {
	Unknown
	IsPlatformTypeSupported(platform string) error
	Attached(parent uintptr, platform string) error
	Removed() error
	Size() (ViewRect, error)
	OnSize(r ViewRect) error
	OnFocus(state bool) error
	SetFrame(frame PlugFrame) error
	CanResize() error
}

// ContentScaleSupport is IPlugViewContentScaleSupport.
type ContentScaleSupport interface {
	Unknown
	SetContentScaleFactor(factor float32) error
}
