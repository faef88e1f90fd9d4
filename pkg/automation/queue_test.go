package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

func TestValueQueueAddPoint(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   []Point
	}{
		{
			name:   "overwrite keeps length",
			points: []Point{{10, 0.5}, {5, 0.2}, {10, 0.9}},
			want:   []Point{{5, 0.2}, {10, 0.9}},
		},
		{
			name:   "ascending input",
			points: []Point{{0, 0.1}, {16, 0.2}, {32, 0.3}},
			want:   []Point{{0, 0.1}, {16, 0.2}, {32, 0.3}},
		},
		{
			name:   "descending input",
			points: []Point{{32, 0.3}, {16, 0.2}, {0, 0.1}},
			want:   []Point{{0, 0.1}, {16, 0.2}, {32, 0.3}},
		},
		{
			name:   "insert in the middle",
			points: []Point{{0, 0}, {64, 1}, {32, 0.5}, {48, 0.75}},
			want:   []Point{{0, 0}, {32, 0.5}, {48, 0.75}, {64, 1}},
		},
		{
			name:   "repeated offset",
			points: []Point{{7, 0.1}, {7, 0.2}, {7, 0.3}},
			want:   []Point{{7, 0.3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newValueQueue(1, 2)
			for _, p := range tt.points {
				_, err := q.AddPoint(p.Offset, p.Value)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, q.Points())
			assert.Equal(t, int32(len(tt.want)), q.PointCount())

			latest, ok := q.Latest()
			assert.True(t, ok)
			assert.Equal(t, tt.points[len(tt.points)-1].Value, latest)
		})
	}
}

func TestValueQueueOrderInvariant(t *testing.T) {
	q := newValueQueue(1, 4)
	offsets := []int32{50, 3, 99, 3, 27, 0, 64, 27, 12, 99, 1}
	for i, off := range offsets {
		_, err := q.AddPoint(off, float64(i)/10)
		require.NoError(t, err)
	}
	pts := q.Points()
	for i := 1; i < len(pts); i++ {
		assert.Less(t, pts[i-1].Offset, pts[i].Offset)
	}
	assert.Len(t, pts, 8)
}

func TestValueQueueIndexAndErrors(t *testing.T) {
	q := newValueQueue(9, 4)
	assert.Equal(t, vst3.ParamID(9), q.ParameterID())

	idx, err := q.AddPoint(10, 0.5)
	require.NoError(t, err)
	assert.Equal(t, int32(0), idx)
	idx, err = q.AddPoint(5, 0.2)
	require.NoError(t, err)
	assert.Equal(t, int32(0), idx)
	idx, err = q.AddPoint(10, 0.9)
	require.NoError(t, err)
	assert.Equal(t, int32(1), idx)

	_, err = q.AddPoint(-1, 0)
	assert.ErrorIs(t, err, vst3.ErrInvalidArgument)

	off, v, err := q.Point(1)
	require.NoError(t, err)
	assert.Equal(t, int32(10), off)
	assert.Equal(t, 0.9, v)

	_, _, err = q.Point(2)
	assert.ErrorIs(t, err, vst3.ErrInvalidArgument)
	_, _, err = q.Point(-1)
	assert.ErrorIs(t, err, vst3.ErrInvalidArgument)

	q.reset(3)
	assert.Equal(t, int32(0), q.PointCount())
	_, ok := q.Latest()
	assert.False(t, ok)
}

func TestChangesAddParameterData(t *testing.T) {
	c := NewChanges(2, 4)

	a, ai := c.AddParameterData(7)
	b, bi := c.AddParameterData(7)
	assert.Same(t, a.(*ValueQueue), b.(*ValueQueue))
	assert.Equal(t, ai, bi)
	assert.Equal(t, int32(1), c.ParameterCount())

	_, ci := c.AddParameterData(8)
	_, di := c.AddParameterData(9)
	assert.Equal(t, int32(1), ci)
	assert.Equal(t, int32(2), di)
	assert.Equal(t, int32(3), c.ParameterCount())

	assert.Nil(t, c.ParameterData(3))
	assert.Nil(t, c.ParameterData(-1))
	require.NotNil(t, c.ParameterData(2))
	assert.Equal(t, vst3.ParamID(9), c.ParameterData(2).ParameterID())
}

func TestChangesClearReusesSlots(t *testing.T) {
	c := NewChanges(1, 2)
	c.Add(1, 0, 0.1)
	c.Add(2, 0, 0.2)
	c.Add(3, 4, 0.3)
	slots := len(c.queues)

	c.Clear()
	assert.True(t, c.Empty())
	_, ok := c.Queue(1)
	assert.False(t, ok)

	allocs := testing.AllocsPerRun(100, func() {
		c.Add(10, 0, 0.5)
		c.Add(11, 1, 0.6)
		c.Add(12, 0, 0.7)
		c.Clear()
	})
	assert.Zero(t, allocs)
	assert.Equal(t, slots, len(c.queues))
}

func TestChangesEach(t *testing.T) {
	c := NewChanges(4, 4)
	c.Add(5, 10, 0.5)
	c.Add(3, 0, 0.1)
	c.Add(5, 2, 0.7)

	var ids []vst3.ParamID
	var values []vst3.ParamValue
	c.Each(func(id vst3.ParamID, v vst3.ParamValue) {
		ids = append(ids, id)
		values = append(values, v)
	})
	assert.Equal(t, []vst3.ParamID{5, 3}, ids)
	assert.Equal(t, []vst3.ParamValue{0.7, 0.1}, values)
}
