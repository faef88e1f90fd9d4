// Package automation moves per-block parameter automation between the
// control thread and the audio thread without allocating on the audio side.
package automation

import (
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Point is one (sample offset, normalized value) automation point.
type Point struct {
	Offset int32
	Value  vst3.ParamValue
}

// ValueQueue is the automation curve of one parameter within one block. It
// implements vst3.ParamValueQueue. Points are kept strictly ascending by
// offset; adding a point at an existing offset overwrites it.
type ValueQueue struct {
	id        vst3.ParamID
	points    []Point
	latest    vst3.ParamValue
	hasLatest bool
}

func newValueQueue(id vst3.ParamID, capacity int) *ValueQueue {
	return &ValueQueue{id: id, points: make([]Point, 0, capacity)}
}

// ParameterID returns the parameter the queue automates.
func (q *ValueQueue) ParameterID() vst3.ParamID { return q.id }

// PointCount returns the number of points.
func (q *ValueQueue) PointCount() int32 { return int32(len(q.points)) }

// Point returns the point at index.
func (q *ValueQueue) Point(index int32) (int32, vst3.ParamValue, error) {
	if index < 0 || int(index) >= len(q.points) {
		return 0, 0, vst3.ErrInvalidArgument
	}
	p := q.points[index]
	return p.Offset, p.Value, nil
}

// AddPoint inserts a point in offset order and returns its index. The slice
// only grows when a block carries more points than any block before it.
func (q *ValueQueue) AddPoint(offset int32, value vst3.ParamValue) (int32, error) {
	if offset < 0 {
		return -1, vst3.ErrInvalidArgument
	}
	q.latest, q.hasLatest = value, true

	i := 0
	for ; i < len(q.points); i++ {
		if q.points[i].Offset == offset {
			q.points[i].Value = value
			return int32(i), nil
		}
		if q.points[i].Offset > offset {
			break
		}
	}
	q.points = append(q.points, Point{})
	copy(q.points[i+1:], q.points[i:])
	q.points[i] = Point{Offset: offset, Value: value}
	return int32(i), nil
}

// Latest returns the most recently added value, the effective value once
// the block has been consumed.
func (q *ValueQueue) Latest() (vst3.ParamValue, bool) {
	return q.latest, q.hasLatest
}

// Points returns the curve. The slice is reused after the queue is cleared.
func (q *ValueQueue) Points() []Point { return q.points }

func (q *ValueQueue) reset(id vst3.ParamID) {
	q.id = id
	q.points = q.points[:0]
	q.latest, q.hasLatest = 0, false
}
