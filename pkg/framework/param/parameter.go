// Package param mirrors a plugin's parameters on the host side: id, names,
// step layout and the last known normalized value, with the mapping between
// normalized values and discrete steps.
package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Kind is the typed view of a parameter's value.
type Kind int

const (
	// Continuous parameters take any value in [0,1].
	Continuous Kind = iota
	// Discrete parameters take StepCount+1 evenly spaced values.
	Discrete
	// Toggle parameters are discrete with two states.
	Toggle
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Discrete:
		return "discrete"
	case Toggle:
		return "toggle"
	}
	return "continuous"
}

// Flags for parameters
const (
	CanAutomate     = uint32(vst3.ParameterCanAutomate)
	IsReadOnly      = uint32(vst3.ParameterIsReadOnly)
	IsWrapAround    = uint32(vst3.ParameterIsWrapAround)
	IsList          = uint32(vst3.ParameterIsList)
	IsHidden        = uint32(vst3.ParameterIsHidden)
	IsProgramChange = uint32(vst3.ParameterIsProgramChange)
	IsBypass        = uint32(vst3.ParameterIsBypass)
)

// Parameter represents a plugin parameter
type Parameter struct {
	ID           uint32
	Name         string
	ShortName    string
	Unit         string
	DefaultValue float64
	StepCount    int32
	Flags        uint32
	UnitID       int32

	// Atomic value for lock-free access in audio thread
	value atomic.Uint64

	// Value formatting
	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// FromInfo builds a parameter from the controller's description and sets
// it to its default value.
func FromInfo(info vst3.ParameterInfo) *Parameter {
	p := &Parameter{
		ID:           info.ID,
		Name:         info.Title.String(),
		ShortName:    info.ShortTitle.String(),
		Unit:         info.Units.String(),
		DefaultValue: info.DefaultNormalizedValue,
		StepCount:    info.StepCount,
		Flags:        uint32(info.Flags),
		UnitID:       info.UnitID,
	}
	p.SetValue(info.DefaultNormalizedValue)
	return p
}

// Kind returns the typed view of the parameter.
func (p *Parameter) Kind() Kind {
	switch {
	case p.StepCount == 1:
		return Toggle
	case p.StepCount > 1:
		return Discrete
	}
	return Continuous
}

// GetValue returns the current normalized value (0-1)
func (p *Parameter) GetValue() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets the normalized value (0-1)
func (p *Parameter) SetValue(value float64) {
	p.value.Store(math.Float64bits(clamp(value)))
}

func clamp(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Step converts a normalized value to its step index. Continuous
// parameters have no steps and return 0.
func (p *Parameter) Step(normalized float64) int32 {
	if p.StepCount <= 0 {
		return 0
	}
	s := int32(math.Floor(clamp(normalized) * float64(p.StepCount+1)))
	if s > p.StepCount {
		s = p.StepCount
	}
	return s
}

// Normalized converts a step index to its normalized value.
func (p *Parameter) Normalized(step int32) float64 {
	if p.StepCount <= 0 {
		return 0
	}
	if step < 0 {
		step = 0
	} else if step > p.StepCount {
		step = p.StepCount
	}
	return float64(step) / float64(p.StepCount)
}

// GetStep returns the current step index.
func (p *Parameter) GetStep() int32 { return p.Step(p.GetValue()) }

// SetStep sets the value to a step index.
func (p *Parameter) SetStep(step int32) { p.SetValue(p.Normalized(step)) }

// GetBool returns a toggle's state.
func (p *Parameter) GetBool() bool { return p.GetValue() >= 0.5 }

// SetBool sets a toggle's state.
func (p *Parameter) SetBool(on bool) {
	if on {
		p.SetValue(1)
	} else {
		p.SetValue(0)
	}
}

// SetFormatter sets custom value formatting, typically backed by the
// controller's string conversion.
func (p *Parameter) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue returns formatted parameter value
func (p *Parameter) FormatValue(normalized float64) string {
	if p.formatFunc != nil {
		return p.formatFunc(normalized)
	}
	if p.StepCount > 0 {
		return strconv.Itoa(int(p.Step(normalized)))
	}
	return fmt.Sprintf("%.2f", normalized)
}

// ParseValue parses string to normalized value
func (p *Parameter) ParseValue(str string) (float64, error) {
	if p.parseFunc != nil {
		return p.parseFunc(str)
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err
	}
	if p.StepCount > 0 {
		return p.Normalized(int32(v)), nil
	}
	return clamp(v), nil
}

// Info is a snapshot of a parameter for callers outside the host.
type Info struct {
	ID           uint32
	Name         string
	ShortName    string
	Unit         string
	Kind         Kind
	StepCount    int32
	DefaultValue float64
	Value        float64
	Flags        uint32
	UnitID       int32
}

// Info returns a snapshot of the parameter.
func (p *Parameter) Info() Info {
	return Info{
		ID:           p.ID,
		Name:         p.Name,
		ShortName:    p.ShortName,
		Unit:         p.Unit,
		Kind:         p.Kind(),
		StepCount:    p.StepCount,
		DefaultValue: p.DefaultValue,
		Value:        p.GetValue(),
		Flags:        p.Flags,
		UnitID:       p.UnitID,
	}
}

// ReadOnly reports whether the plugin forbids host edits.
func (p *Parameter) ReadOnly() bool { return p.Flags&IsReadOnly != 0 }
