package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/internal/testplugin"
)

func newController(t *testing.T) *testplugin.Plugin {
	t.Helper()
	p := testplugin.NewPlugin(testplugin.Options{}, nil)
	t.Cleanup(func() { p.Release() })
	return p
}

func TestLoad(t *testing.T) {
	ctrl := newController(t)
	require.NoError(t, ctrl.SetParamNormalized(testplugin.ParamGain, 0.5))

	r, err := Load(ctrl)
	require.NoError(t, err)
	require.Equal(t, int32(4), r.Count())

	gain := r.GetByIndex(0)
	require.NotNil(t, gain)
	assert.Equal(t, testplugin.ParamGain, gain.ID)
	assert.Equal(t, "Gain", gain.Name)
	assert.Equal(t, 0.5, gain.GetValue())
	assert.Equal(t, 1.0, gain.DefaultValue)

	mode := r.Get(testplugin.ParamMode)
	require.NotNil(t, mode)
	assert.Equal(t, Discrete, mode.Kind())
	assert.Equal(t, int32(1), mode.UnitID)

	assert.True(t, r.Get(testplugin.ParamMeter).ReadOnly())
	assert.Nil(t, r.GetByIndex(4))
	assert.Nil(t, r.GetByIndex(-1))
	assert.Nil(t, r.Get(99))

	bypass := r.Bypass()
	require.NotNil(t, bypass)
	assert.Equal(t, testplugin.ParamBypass, bypass.ID)
}

func TestReloadKeepsPointers(t *testing.T) {
	ctrl := newController(t)
	r, err := Load(ctrl)
	require.NoError(t, err)
	before := r.Get(testplugin.ParamGain)

	require.NoError(t, ctrl.SetParamNormalized(testplugin.ParamGain, 0.2))
	require.NoError(t, r.Reload(ctrl))

	after := r.Get(testplugin.ParamGain)
	assert.Same(t, before, after)
	assert.Equal(t, 0.2, after.GetValue())
}

func TestRefresh(t *testing.T) {
	ctrl := newController(t)
	r, err := Load(ctrl)
	require.NoError(t, err)

	require.NoError(t, ctrl.SetParamNormalized(testplugin.ParamMode, 1))
	r.Refresh(ctrl)
	assert.Equal(t, int32(2), r.Get(testplugin.ParamMode).GetStep())
}

func TestAddAndInfos(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(&Parameter{ID: 1, Name: "a"}, &Parameter{ID: 2, Name: "b"}))
	assert.Error(t, r.Add(&Parameter{ID: 1}))

	infos := r.Infos()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, "b", infos[1].Name)
	assert.Nil(t, r.Bypass())
}
