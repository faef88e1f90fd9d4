package bus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/internal/testplugin"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

func newPlugin(t *testing.T, opts testplugin.Options) *testplugin.Plugin {
	t.Helper()
	p := testplugin.NewPlugin(opts, nil)
	t.Cleanup(func() { p.Release() })
	return p
}

func TestRead(t *testing.T) {
	p := newPlugin(t, testplugin.Options{AuxInput: true})
	cfg, err := Read(p)
	require.NoError(t, err)

	assert.Equal(t, int32(2), cfg.GetBusCount(MediaTypeAudio, DirectionInput))
	assert.Equal(t, int32(1), cfg.GetBusCount(MediaTypeAudio, DirectionOutput))
	assert.Equal(t, int32(1), cfg.GetBusCount(MediaTypeEvent, DirectionInput))
	assert.Equal(t, int32(1), cfg.GetBusCount(MediaTypeEvent, DirectionOutput))

	main := cfg.GetBusInfo(MediaTypeAudio, DirectionInput, 0)
	require.NotNil(t, main)
	assert.Equal(t, "Input", main.Name)
	assert.Equal(t, TypeMain, main.BusType)
	assert.True(t, main.DefaultActive)

	aux := cfg.GetBusInfo(MediaTypeAudio, DirectionInput, 1)
	require.NotNil(t, aux)
	assert.Equal(t, "Sidechain", aux.Name)
	assert.Equal(t, TypeAux, aux.BusType)
	assert.False(t, aux.DefaultActive)

	assert.Nil(t, cfg.GetBusInfo(MediaTypeAudio, DirectionInput, 2))
	assert.Equal(t, 2, cfg.MainChannels(DirectionOutput))
	assert.Equal(t, 2, cfg.MaxChannels())
}

func TestShouldActivate(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want bool
	}{
		{"main audio", Info{MediaType: MediaTypeAudio, BusType: TypeMain}, true},
		{"aux audio", Info{MediaType: MediaTypeAudio, BusType: TypeAux}, false},
		{"main event", Info{MediaType: MediaTypeEvent, BusType: TypeMain}, true},
		{"aux event", Info{MediaType: MediaTypeEvent, BusType: TypeAux}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.ShouldActivate())
		})
	}
}

func TestActivate(t *testing.T) {
	p := newPlugin(t, testplugin.Options{AuxInput: true})
	cfg, err := Read(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Activate(p))

	assert.True(t, p.BusActive(MediaTypeAudio, DirectionInput, 0))
	assert.False(t, p.BusActive(MediaTypeAudio, DirectionInput, 1))
	assert.True(t, p.BusActive(MediaTypeAudio, DirectionOutput, 0))
	assert.True(t, p.BusActive(MediaTypeEvent, DirectionInput, 0))
	assert.True(t, p.BusActive(MediaTypeEvent, DirectionOutput, 0))

	assert.True(t, cfg.GetBusInfo(MediaTypeAudio, DirectionInput, 0).IsActive)
	assert.False(t, cfg.GetBusInfo(MediaTypeAudio, DirectionInput, 1).IsActive)
}

type refusingComponent struct {
	*testplugin.Plugin
	err error
}

func (r refusingComponent) ActivateBus(media vst3.MediaType, dir vst3.BusDirection, index int32, state bool) error {
	return r.err
}

func TestActivateRefused(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"not implemented", vst3.ErrNotImplemented, false},
		{"false", vst3.ErrFalse, false},
		{"internal", vst3.ErrInternal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPlugin(t, testplugin.Options{})
			cfg, err := Read(p)
			require.NoError(t, err)

			err = cfg.Activate(refusingComponent{p, tt.err})
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.GetBusInfo(MediaTypeAudio, DirectionInput, 0).IsActive)
		})
	}
}

func TestNegotiate(t *testing.T) {
	p := newPlugin(t, testplugin.Options{Channels: 1})
	cfg, err := Read(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Negotiate(p))

	in, out := p.Arrangements()
	assert.Equal(t, []vst3.SpeakerArrangement{vst3.SpeakerArrMono}, in)
	assert.Equal(t, []vst3.SpeakerArrangement{vst3.SpeakerArrMono}, out)
	assert.Equal(t, vst3.SpeakerArrMono, cfg.GetBusInfo(MediaTypeAudio, DirectionOutput, 0).Arrangement)
}

func TestDefaultArrangement(t *testing.T) {
	tests := []struct {
		channels int32
		want     int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{6, 6},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d channels", tt.channels), func(t *testing.T) {
			assert.Equal(t, tt.want, vst3.SpeakerCount(defaultArrangement(tt.channels)))
		})
	}
}
