package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/internal/testplugin"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// overcounting lists more classes than it can describe.
type overcounting struct {
	*testplugin.Factory
	calls int
}

func (o *overcounting) CountClasses() int32 {
	o.calls++
	return 3
}

// legacy is a factory without IPluginFactory3.
type legacy struct {
	*testplugin.Factory
}

func (legacy) SetHostContext(vst3.Unknown) error { return vst3.ErrNotImplemented }

func newFactory(t *testing.T, raw vst3.PluginFactory) *Factory {
	t.Helper()
	path := "/plugins/" + t.Name() + ".vst3"
	t.Cleanup(func() { Invalidate(path) })
	return New(path, raw)
}

func TestInfo(t *testing.T) {
	f := newFactory(t, testplugin.NewFactory(testplugin.Options{}))
	info, err := f.Info()
	require.NoError(t, err)
	assert.Equal(t, "Test Vendor", info.Vendor)
	assert.Equal(t, "https://example.invalid", info.URL)
	assert.Empty(t, info.Email)
	assert.True(t, info.Unicode())
}

func TestClasses(t *testing.T) {
	tests := []struct {
		name     string
		opts     testplugin.Options
		classes  int
		effects  int
		controls int
	}{
		{name: "single", classes: 1, effects: 1},
		{name: "split", opts: testplugin.Options{Split: true}, classes: 2, effects: 1, controls: 1},
		{name: "instrument only", opts: testplugin.Options{Category: "Instrument"}, classes: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFactory(t, testplugin.NewFactory(tt.opts))
			assert.Len(t, f.Classes(), tt.classes)
			effects := f.Effects()
			require.NotNil(t, effects)
			assert.Len(t, effects, tt.effects)
			assert.Len(t, f.ClassesOf(vst3.CategoryComponentController), tt.controls)
		})
	}
}

func TestClassesSkipsUndescribed(t *testing.T) {
	raw := &overcounting{Factory: testplugin.NewFactory(testplugin.Options{})}
	f := newFactory(t, raw)
	list := f.Classes()
	require.Len(t, list, 1)
	assert.Equal(t, testplugin.ProcessorClassID, list[0].ID)
	assert.Equal(t, []string{"Fx", "Dynamics"}, list[0].SubCategories)
}

func TestClassesCached(t *testing.T) {
	raw := &overcounting{Factory: testplugin.NewFactory(testplugin.Options{})}
	f := newFactory(t, raw)
	first := f.Classes()
	first[0].Name = "changed"
	second := f.Classes()
	assert.Equal(t, "Test Gain", second[0].Name)
	assert.Equal(t, 1, raw.calls)

	// A second wrapper of the same module shares the cache.
	assert.Len(t, New(f.Path(), raw).Classes(), 1)
	assert.Equal(t, 1, raw.calls)

	Invalidate(f.Path())
	f.Classes()
	assert.Equal(t, 2, raw.calls)
}

func TestFind(t *testing.T) {
	f := newFactory(t, testplugin.NewFactory(testplugin.Options{Split: true}))
	info, err := f.Find(testplugin.ControllerClassID)
	require.NoError(t, err)
	assert.Equal(t, "Test Gain Controller", info.Name)

	_, err = f.Find(vst3.InlineUID(1, 2, 3, 4))
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestCreateInstance(t *testing.T) {
	raw := testplugin.NewFactory(testplugin.Options{})
	f := newFactory(t, raw)

	obj, err := f.CreateInstance(testplugin.ProcessorClassID, vst3.IIDComponent)
	require.NoError(t, err)
	_, ok := obj.(vst3.Component)
	assert.True(t, ok)
	obj.Release()

	_, err = f.CreateInstance(vst3.InlineUID(1, 2, 3, 4), vst3.IIDComponent)
	assert.ErrorIs(t, err, vst3.ErrNoInterface)

	raw.FailCreate = true
	_, err = f.CreateInstance(testplugin.ProcessorClassID, vst3.IIDComponent)
	assert.ErrorIs(t, err, vst3.ErrInternal)
}

func TestSetHostContext(t *testing.T) {
	raw := testplugin.NewFactory(testplugin.Options{})
	host := testplugin.NewFactory(testplugin.Options{})

	require.NoError(t, newFactory(t, raw).SetHostContext(host))
	assert.Same(t, host, raw.HostContext())
	raw.Close()

	require.NoError(t, newFactory(t, legacy{raw}).SetHostContext(host))
	assert.Nil(t, raw.HostContext())
}
