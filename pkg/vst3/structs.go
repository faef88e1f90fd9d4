package vst3

import "strings"

// MediaType selects audio or event busses.
type MediaType = int32

// BusDirection selects input or output busses.
type BusDirection = int32

// Media types
const (
	MediaTypeAudio MediaType = 0
	MediaTypeEvent MediaType = 1
)

// Bus directions
const (
	BusDirectionInput  BusDirection = 0
	BusDirectionOutput BusDirection = 1
)

// Bus types
const (
	BusTypeMain int32 = 0
	BusTypeAux  int32 = 1
)

// Bus flags
const (
	BusDefaultActive    uint32 = 1 << 0
	BusIsControlVoltage uint32 = 1 << 1
)

// Parameter flags
const (
	ParameterCanAutomate     int32 = 1 << 0
	ParameterIsReadOnly      int32 = 1 << 1
	ParameterIsWrapAround    int32 = 1 << 2
	ParameterIsList          int32 = 1 << 3
	ParameterIsHidden        int32 = 1 << 4
	ParameterIsProgramChange int32 = 1 << 15
	ParameterIsBypass        int32 = 1 << 16
)

// Process modes
const (
	ProcessModeRealtime int32 = 0
	ProcessModePrefetch int32 = 1
	ProcessModeOffline  int32 = 2
)

// Symbolic sample sizes
const (
	SampleSize32 int32 = 0
	SampleSize64 int32 = 1
)

// IO modes
const (
	IOModeSimple            int32 = 0
	IOModeAdvanced          int32 = 1
	IOModeOfflineProcessing int32 = 2
)

// Restart flags passed to IComponentHandler.RestartComponent.
const (
	RestartReloadComponent    int32 = 1 << 0
	RestartIOChanged          int32 = 1 << 1
	RestartParamValuesChanged int32 = 1 << 2
	RestartLatencyChanged     int32 = 1 << 3
	RestartParamTitlesChanged int32 = 1 << 4
)

// Speaker arrangements
const (
	SpeakerArrEmpty  SpeakerArrangement = 0
	SpeakerArrMono   SpeakerArrangement = 1 << 19
	SpeakerArrStereo SpeakerArrangement = 1<<0 | 1<<1
)

// Factory flags
const (
	FactoryClassesDiscardable      int32 = 1 << 0
	FactoryLicenseCheck            int32 = 1 << 1
	FactoryComponentNonDiscardable int32 = 1 << 3
	FactoryUnicode                 int32 = 1 << 4
)

// SpeakerCount returns the number of channels in an arrangement.
func SpeakerCount(arr SpeakerArrangement) int {
	n := 0
	for ; arr != 0; arr &= arr - 1 {
		n++
	}
	return n
}

// FactoryInfo is PFactoryInfo.
type FactoryInfo struct {
	Vendor [64]byte
	URL    [256]byte
	Email  [128]byte
	Flags  int32
}

// ClassInfoRaw is PClassInfo.
type ClassInfoRaw struct {
	CID         TUID
	Cardinality int32
	Category    [32]byte
	Name        [64]byte
}

// ClassInfo2Raw is PClassInfo2.
type ClassInfo2Raw struct {
	CID           TUID
	Cardinality   int32
	Category      [32]byte
	Name          [64]byte
	ClassFlags    uint32
	SubCategories [128]byte
	Vendor        [64]byte
	Version       [64]byte
	SDKVersion    [64]byte
}

// ClassInfo is the decoded descriptor of one instantiable class.
type ClassInfo struct {
	ID            TUID
	Cardinality   int32
	Category      string
	Name          string
	Vendor        string
	Version       string
	SDKVersion    string
	SubCategories []string
	Flags         uint32
}

// Decode converts PClassInfo, filling vendor from the factory.
func (r *ClassInfoRaw) Decode(vendor string) ClassInfo {
	return ClassInfo{
		ID:          r.CID,
		Cardinality: r.Cardinality,
		Category:    Char8ToString(r.Category[:]),
		Name:        Char8ToString(r.Name[:]),
		Vendor:      vendor,
	}
}

// Decode converts PClassInfo2. An empty vendor falls back to the factory's.
func (r *ClassInfo2Raw) Decode(vendor string) ClassInfo {
	info := ClassInfo{
		ID:          r.CID,
		Cardinality: r.Cardinality,
		Category:    Char8ToString(r.Category[:]),
		Name:        Char8ToString(r.Name[:]),
		Vendor:      Char8ToString(r.Vendor[:]),
		Version:     Char8ToString(r.Version[:]),
		SDKVersion:  Char8ToString(r.SDKVersion[:]),
		Flags:       r.ClassFlags,
	}
	if info.Vendor == "" {
		info.Vendor = vendor
	}
	if sub := Char8ToString(r.SubCategories[:]); sub != "" {
		info.SubCategories = strings.Split(sub, "|")
	}
	return info
}

// BusInfo describes one audio or event bus.
type BusInfo struct {
	MediaType    MediaType
	Direction    BusDirection
	ChannelCount int32
	Name         String128
	BusType      int32
	Flags        uint32
}

// ParameterInfo describes one parameter exposed by the controller.
type ParameterInfo struct {
	ID                     ParamID
	Title                  String128
	ShortTitle             String128
	Units                  String128
	StepCount              int32
	DefaultNormalizedValue ParamValue
	UnitID                 int32
	Flags                  int32
}

// UnitInfo describes one node of the plugin's unit hierarchy.
type UnitInfo struct {
	ID            int32
	ParentUnitID  int32
	Name          String128
	ProgramListID int32
}

// ProcessSetup is the negotiated processing configuration.
type ProcessSetup struct {
	ProcessMode        int32
	SymbolicSampleSize int32
	MaxSamplesPerBlock int32
	SampleRate         float64
}

// ViewRect is an editor rectangle in pixels.
type ViewRect struct {
	Left, Top, Right, Bottom int32
}

// Width of the rectangle.
func (r ViewRect) Width() int32 { return r.Right - r.Left }

// Height of the rectangle.
func (r ViewRect) Height() int32 { return r.Bottom - r.Top }

// Chord is the musical chord part of ProcessContext.
type Chord struct {
	KeyNote   uint8
	RootNote  uint8
	ChordMask int16
}

// FrameRate is the SMPTE frame rate part of ProcessContext.
type FrameRate struct {
	FramesPerSecond uint32
	Flags           uint32
}

// ProcessContext state flags
const (
	ContextPlaying               uint32 = 1 << 1
	ContextCycleActive           uint32 = 1 << 2
	ContextRecording             uint32 = 1 << 3
	ContextSystemTimeValid       uint32 = 1 << 8
	ContextProjectTimeMusicValid uint32 = 1 << 9
	ContextTempoValid            uint32 = 1 << 10
	ContextBarPositionValid      uint32 = 1 << 11
	ContextCycleValid            uint32 = 1 << 12
	ContextTimeSigValid          uint32 = 1 << 13
	ContextSmpteValid            uint32 = 1 << 14
	ContextClockValid            uint32 = 1 << 15
	ContextContTimeValid         uint32 = 1 << 17
	ContextChordValid            uint32 = 1 << 18
)

// ProcessContext is the transport and timing snapshot handed to Process.
type ProcessContext struct {
	State                 uint32
	SampleRate            float64
	ProjectTimeSamples    int64
	SystemTime            int64
	ContinuousTimeSamples int64
	ProjectTimeMusic      float64
	BarPositionMusic      float64
	CycleStartMusic       float64
	CycleEndMusic         float64
	Tempo                 float64
	TimeSigNumerator      int32
	TimeSigDenominator    int32
	Chord                 Chord
	SmpteOffsetSubframes  int32
	FrameRate             FrameRate
	SamplesToNextClock    int32
}
