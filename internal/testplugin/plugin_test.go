package testplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

func TestQueryInterfaceGating(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		iid  vst3.TUID
		ok   bool
	}{
		{"component", Options{}, vst3.IIDComponent, true},
		{"single controller", Options{}, vst3.IIDEditController, true},
		{"split controller", Options{Split: true}, vst3.IIDEditController, false},
		{"no connection", Options{NoConnection: true}, vst3.IIDConnectionPoint, false},
		{"no mapping", Options{NoMidiMapping: true}, vst3.IIDMidiMapping, false},
		{"units", Options{}, vst3.IIDUnitInfo, true},
		{"unknown", Options{}, vst3.IIDPlugView, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlugin(tt.opts, nil)
			defer p.Release()
			obj, err := p.QueryInterface(tt.iid)
			if !tt.ok {
				assert.ErrorIs(t, err, vst3.ErrNoInterface)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int32(2), p.Count())
			obj.Release()
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	p := NewPlugin(Options{}, nil)
	defer p.Release()

	s := vst3.NewMemoryStream(nil)
	require.NoError(t, p.GetState(s))
	_, err := s.Seek(0, 0)
	require.NoError(t, err)

	q := NewPlugin(Options{}, nil)
	defer q.Release()
	require.NoError(t, q.SetParamNormalized(ParamGain, 0.1))
	require.NoError(t, q.SetState(s))
	assert.Equal(t, 1.0, q.Gain())
	assert.Equal(t, 1.0, q.ParamNormalized(ParamGain))
	assert.ErrorIs(t, q.SetState(vst3.NewMemoryStream([]byte{1})), vst3.ErrInvalidArgument)
}

func TestFactoryCreate(t *testing.T) {
	f := NewFactory(Options{Split: true})
	assert.Equal(t, int32(2), f.CountClasses())

	info, err := f.ClassInfo(0)
	require.NoError(t, err)
	assert.Equal(t, vst3.CategoryAudioEffect, info.Category)
	info, err = f.ClassInfo(1)
	require.NoError(t, err)
	assert.Equal(t, ControllerClassID, info.ID)

	obj, err := f.CreateInstance(ProcessorClassID, vst3.IIDComponent)
	require.NoError(t, err)
	comp := obj.(vst3.Component)
	cid, err := comp.ControllerClassID()
	require.NoError(t, err)
	assert.Equal(t, ControllerClassID, cid)
	comp.Release()
	<-f.Plugins()[0].Released

	_, err = f.CreateInstance(vst3.TUID{1}, vst3.IIDComponent)
	assert.ErrorIs(t, err, vst3.ErrNoInterface)
}

func TestSendUsesFallbackMessage(t *testing.T) {
	log := &Log{}
	p := NewPlugin(Options{Split: true}, log)
	c := NewController(Options{Split: true}, log)
	defer p.Release()
	defer c.Release()

	var got string
	c.OnNotify = func(msg vst3.Message) { got = msg.MessageID() }
	require.NoError(t, p.Connect(c))
	require.NoError(t, p.Send("hello"))
	assert.Equal(t, "hello", got)
	assert.Equal(t, 1, log.Count("controller.notify:hello"))
	require.NoError(t, p.Disconnect(c))
	assert.ErrorIs(t, p.Send("again"), vst3.ErrNotInitialized)
}
