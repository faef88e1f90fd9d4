package vst3

// AudioBusBuffers holds the channel buffers of one bus for one block.
type AudioBusBuffers struct {
	SilenceFlags uint64
	Channels     [][]float32
}

// Channel returns a channel's buffer, nil when out of range.
func (b *AudioBusBuffers) Channel(index int) []float32 {
	if index < 0 || index >= len(b.Channels) {
		return nil
	}
	return b.Channels[index]
}

// NumChannels returns the number of channels.
func (b *AudioBusBuffers) NumChannels() int {
	return len(b.Channels)
}

// ProcessData is the per-call payload of AudioProcessor.Process. Native
// wrappers translate it to the C layout; everything referenced from it must
// stay valid for the duration of the call only.
type ProcessData struct {
	ProcessMode            int32
	SymbolicSampleSize     int32
	NumSamples             int32
	Inputs                 []AudioBusBuffers
	Outputs                []AudioBusBuffers
	InputParameterChanges  ParameterChanges
	OutputParameterChanges ParameterChanges
	InputEvents            EventList
	OutputEvents           EventList
	Context                *ProcessContext
}

// Input returns an input bus, nil when out of range.
func (d *ProcessData) Input(index int) *AudioBusBuffers {
	if index < 0 || index >= len(d.Inputs) {
		return nil
	}
	return &d.Inputs[index]
}

// Output returns an output bus, nil when out of range.
func (d *ProcessData) Output(index int) *AudioBusBuffers {
	if index < 0 || index >= len(d.Outputs) {
		return nil
	}
	return &d.Outputs[index]
}
