// Package midi carries MIDI between arbitrary producer threads, the audio
// thread and subscribers, translating to and from plugin events.
package midi

import (
	"context"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/justyntemme/vst3host/pkg/metrics"
)

// InputQueue is the bounded queue feeding MIDI into the audio thread.
// Producers block while it is full; the audio thread only drains.
type InputQueue struct {
	ch chan gomidi.Message
}

// NewInputQueue creates a queue holding up to capacity messages.
func NewInputQueue(capacity int) *InputQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &InputQueue{ch: make(chan gomidi.Message, capacity)}
}

// Push enqueues msg, waiting for room until ctx is done.
func (q *InputQueue) Push(ctx context.Context, msg gomidi.Message) error {
	select {
	case q.ch <- msg:
		metrics.MIDIEventsIn.Inc()
		return nil
	default:
	}
	select {
	case q.ch <- msg:
		metrics.MIDIEventsIn.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush enqueues msg without waiting.
func (q *InputQueue) TryPush(msg gomidi.Message) bool {
	select {
	case q.ch <- msg:
		metrics.MIDIEventsIn.Inc()
		return true
	default:
		return false
	}
}

// Drain hands queued messages to fn without blocking until a receive finds
// the queue empty, so producers that refill it meanwhile are drained too.
func (q *InputQueue) Drain(fn func(gomidi.Message)) int {
	n := 0
	for {
		select {
		case msg := <-q.ch:
			fn(msg)
			n++
		default:
			return n
		}
	}
}

// Len returns the number of queued messages.
func (q *InputQueue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *InputQueue) Cap() int { return cap(q.ch) }
