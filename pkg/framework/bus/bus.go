// Package bus reads and activates a plugin's audio and event busses.
package bus

import (
	"errors"
	"fmt"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// MediaType represents the type of bus
type MediaType = vst3.MediaType

const (
	// MediaTypeAudio represents audio bus type
	MediaTypeAudio = vst3.MediaTypeAudio
	// MediaTypeEvent represents event/MIDI bus type
	MediaTypeEvent = vst3.MediaTypeEvent
)

// Direction represents the bus direction
type Direction = vst3.BusDirection

const (
	// DirectionInput represents input bus
	DirectionInput = vst3.BusDirectionInput
	// DirectionOutput represents output bus
	DirectionOutput = vst3.BusDirectionOutput
)

// Type represents the bus type
type Type int32

const (
	// TypeMain represents main bus
	TypeMain Type = Type(vst3.BusTypeMain)
	// TypeAux represents auxiliary bus
	TypeAux Type = Type(vst3.BusTypeAux)
)

// Info contains bus configuration
type Info struct {
	MediaType     MediaType
	Direction     Direction
	ChannelCount  int32
	Name          string
	BusType       Type
	DefaultActive bool
	IsActive      bool
	Arrangement   vst3.SpeakerArrangement
}

// Configuration is a plugin's bus layout, read once after initialization.
type Configuration struct {
	audioBuses []Info
	eventBuses []Info
}

// Read enumerates every bus of comp.
func Read(comp vst3.Component) (*Configuration, error) {
	c := &Configuration{}
	for _, media := range []MediaType{MediaTypeAudio, MediaTypeEvent} {
		for _, dir := range []Direction{DirectionInput, DirectionOutput} {
			n := comp.BusCount(media, dir)
			for i := int32(0); i < n; i++ {
				raw, err := comp.BusInfo(media, dir, i)
				if err != nil {
					return nil, fmt.Errorf("bus info %d/%d/%d: %w", media, dir, i, err)
				}
				info := Info{
					MediaType:     media,
					Direction:     dir,
					ChannelCount:  raw.ChannelCount,
					Name:          raw.Name.String(),
					BusType:       Type(raw.BusType),
					DefaultActive: raw.Flags&vst3.BusDefaultActive != 0,
				}
				if media == MediaTypeAudio {
					c.audioBuses = append(c.audioBuses, info)
				} else {
					c.eventBuses = append(c.eventBuses, info)
				}
			}
		}
	}
	return c, nil
}

func (c *Configuration) buses(mediaType MediaType) []Info {
	if mediaType == MediaTypeEvent {
		return c.eventBuses
	}
	return c.audioBuses
}

// GetBusCount returns the number of buses for a given type and direction
func (c *Configuration) GetBusCount(mediaType MediaType, direction Direction) int32 {
	count := int32(0)
	for _, bus := range c.buses(mediaType) {
		if bus.Direction == direction {
			count++
		}
	}
	return count
}

// GetBusInfo returns information about a specific bus
func (c *Configuration) GetBusInfo(mediaType MediaType, direction Direction, index int32) *Info {
	buses := c.buses(mediaType)
	busIndex := int32(0)
	for i := range buses {
		if buses[i].Direction == direction {
			if busIndex == index {
				return &buses[i]
			}
			busIndex++
		}
	}
	return nil
}

// Buses returns the busses of one media type and direction in index order.
func (c *Configuration) Buses(mediaType MediaType, direction Direction) []*Info {
	var out []*Info
	buses := c.buses(mediaType)
	for i := range buses {
		if buses[i].Direction == direction {
			out = append(out, &buses[i])
		}
	}
	return out
}

// MainChannels returns the channel count of the first audio bus in a
// direction, zero when there is none.
func (c *Configuration) MainChannels(direction Direction) int {
	if b := c.GetBusInfo(MediaTypeAudio, direction, 0); b != nil {
		return int(b.ChannelCount)
	}
	return 0
}

// MaxChannels returns the largest channel count of any audio bus.
func (c *Configuration) MaxChannels() int {
	n := 0
	for _, b := range c.audioBuses {
		if int(b.ChannelCount) > n {
			n = int(b.ChannelCount)
		}
	}
	return n
}

// ShouldActivate is the host's activation policy: main audio busses and
// all event busses are active, auxiliary audio busses stay off.
func (i *Info) ShouldActivate() bool {
	return i.MediaType == MediaTypeEvent || i.BusType == TypeMain
}

// Activate applies the activation policy to comp. A bus the plugin refuses
// to switch stays in its previous state.
func (c *Configuration) Activate(comp vst3.Component) error {
	for _, media := range []MediaType{MediaTypeAudio, MediaTypeEvent} {
		for _, dir := range []Direction{DirectionInput, DirectionOutput} {
			for i, b := range c.Buses(media, dir) {
				want := b.ShouldActivate()
				err := comp.ActivateBus(media, dir, int32(i), want)
				switch {
				case err == nil:
					b.IsActive = want
				case vst3.IsNotImplemented(err) || errors.Is(err, vst3.ErrFalse):
					b.IsActive = b.DefaultActive
				default:
					return fmt.Errorf("activate bus %q: %w", b.Name, err)
				}
			}
		}
	}
	return nil
}

// Negotiate asks proc for its current speaker arrangements and proposes
// them back. Plugins without arrangement support keep their defaults.
func (c *Configuration) Negotiate(proc vst3.AudioProcessor) error {
	collect := func(dir Direction) []vst3.SpeakerArrangement {
		buses := c.Buses(MediaTypeAudio, dir)
		arr := make([]vst3.SpeakerArrangement, len(buses))
		for i, b := range buses {
			a, err := proc.BusArrangement(dir, int32(i))
			if err != nil {
				a = defaultArrangement(b.ChannelCount)
			}
			b.Arrangement = a
			arr[i] = a
		}
		return arr
	}
	inputs, outputs := collect(DirectionInput), collect(DirectionOutput)
	if err := proc.SetBusArrangements(inputs, outputs); err != nil {
		if vst3.IsNotImplemented(err) || errors.Is(err, vst3.ErrFalse) {
			return nil
		}
		return fmt.Errorf("set bus arrangements: %w", err)
	}
	return nil
}

func defaultArrangement(channels int32) vst3.SpeakerArrangement {
	switch channels {
	case 0:
		return vst3.SpeakerArrEmpty
	case 1:
		return vst3.SpeakerArrMono
	case 2:
		return vst3.SpeakerArrStereo
	}
	return vst3.SpeakerArrangement(1)<<uint(channels) - 1
}
