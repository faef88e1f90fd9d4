package midi

import (
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/justyntemme/vst3host/pkg/metrics"
)

// Broadcaster fans output messages out to subscribers. Slow subscribers
// lose messages rather than stall the sender.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan gomidi.Message
	next   int
	closed bool
}

// NewBroadcaster creates a broadcaster without subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan gomidi.Message)}
}

// Subscribe returns a channel of output messages buffered by buf and a
// cancel function that closes it.
func (b *Broadcaster) Subscribe(buf int) (<-chan gomidi.Message, func()) {
	ch := make(chan gomidi.Message, buf)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers msg to every subscriber that has room.
func (b *Broadcaster) Publish(msg gomidi.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
			metrics.MIDIEventsOut.Inc()
		default:
			metrics.MIDIEventsDropped.Inc()
		}
	}
}

// Subscribers returns the number of subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later subscriptions get a closed
// channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
