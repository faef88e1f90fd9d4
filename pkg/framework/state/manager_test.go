package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/internal/testplugin"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

func TestBlobEncoding(t *testing.T) {
	tests := []struct {
		name string
		blob Blob
	}{
		{"both", Blob{ClassID: testplugin.ProcessorClassID, Component: []byte{1, 2, 3}, Controller: []byte("ctrl")}},
		{"component only", Blob{ClassID: testplugin.ProcessorClassID, Component: []byte{9}, Controller: []byte{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.blob.MarshalBinary()
			require.NoError(t, err)
			var got Blob
			require.NoError(t, got.UnmarshalBinary(data))
			assert.Equal(t, tt.blob, got)
		})
	}
}

func TestBlobRejectsGarbage(t *testing.T) {
	good, err := (&Blob{Component: []byte{1, 2, 3, 4}}).MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("NOTSTATE00000000")},
		{"truncated", good[:len(good)-3]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Blob
			assert.ErrorIs(t, b.UnmarshalBinary(tt.data), ErrInvalidFormat)
		})
	}
}

func TestSaveLoadSplit(t *testing.T) {
	opts := testplugin.Options{Split: true}
	p := testplugin.NewPlugin(opts, nil)
	c := testplugin.NewController(opts, nil)
	defer p.Release()
	defer c.Release()

	m := NewManager(testplugin.ProcessorClassID, p, c, false)
	require.NoError(t, p.SetState(vst3.NewMemoryStream(gainState(t, 0.25))))
	m.MarkDirty()

	data, err := m.Save()
	require.NoError(t, err)
	assert.False(t, m.Dirty())

	q := testplugin.NewPlugin(opts, nil)
	d := testplugin.NewController(opts, nil)
	defer q.Release()
	defer d.Release()
	n := NewManager(testplugin.ProcessorClassID, q, d, false)
	require.NoError(t, n.Load(data))

	assert.Equal(t, 0.25, q.Gain())
	assert.Equal(t, 0.25, d.ParamNormalized(testplugin.ParamGain))
	assert.Equal(t, gainState(t, 0.25), d.ComponentState())
	assert.Equal(t, 1, d.Log.Count("controller.setState"))
}

func TestLoadClassMismatch(t *testing.T) {
	p := testplugin.NewPlugin(testplugin.Options{}, nil)
	defer p.Release()
	m := NewManager(testplugin.ProcessorClassID, p, p, true)

	data, err := (&Blob{ClassID: testplugin.ControllerClassID, Component: gainState(t, 0.5)}).MarshalBinary()
	require.NoError(t, err)
	assert.ErrorIs(t, m.Load(data), ErrClassMismatch)
	assert.Equal(t, 1.0, p.Gain())
}

func TestSyncControllerSingle(t *testing.T) {
	log := &testplugin.Log{}
	p := testplugin.NewPlugin(testplugin.Options{}, log)
	defer p.Release()
	m := NewManager(testplugin.ProcessorClassID, p, p, true)

	require.NoError(t, m.SyncController())
	assert.Equal(t, 1, log.Count("controller.setComponentState"))

	data, err := m.Save()
	require.NoError(t, err)
	var b Blob
	require.NoError(t, b.UnmarshalBinary(data))
	assert.Empty(t, b.Controller)
}

func gainState(t *testing.T, v float64) []byte {
	t.Helper()
	s := vst3.NewMemoryStream(nil)
	require.NoError(t, s.WriteFloat64(v))
	return s.Bytes()
}
