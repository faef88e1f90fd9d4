package vst3

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStream(t *testing.T) {
	s := NewMemoryStream(nil)
	require.NoError(t, s.WriteInt32(-7))
	require.NoError(t, s.WriteFloat64(0.25))
	require.NoError(t, s.WriteString("preset"))

	pos, err := s.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(len(s.Bytes())), pos)

	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)

	i, err := s.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i)

	f, err := s.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	str, err := s.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "preset", str)

	n, err := s.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = s.Seek(-1, io.SeekStart)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReadAll(t *testing.T) {
	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i)
	}
	got, err := ReadAll(NewMemoryStream(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRefCount(t *testing.T) {
	released := 0
	var r RefCount
	r.Init()
	var order []string
	r.OnFinalRelease = func() {
		released++
		order = append(order, "final")
	}
	r.WatchRelease(func() { order = append(order, "watch") })

	assert.Equal(t, uint32(2), r.AddRef())
	assert.Equal(t, uint32(1), r.Release())
	assert.Empty(t, order)
	assert.Equal(t, uint32(0), r.Release())
	assert.Equal(t, uint32(0), r.Release())
	assert.Equal(t, 1, released)
	assert.Equal(t, []string{"final", "watch"}, order)
}
