// Package testplugin is an in-process plugin implementing the vst3
// interfaces in Go, used to exercise the host without a native binary.
package testplugin

import (
	"slices"
	"sync"
)

// Log records the calls a plugin receives, in order.
type Log struct {
	mu    sync.Mutex
	calls []string
}

// Add records one call.
func (l *Log) Add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (l *Log) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// Index returns the position of the first matching call, -1 if absent.
func (l *Log) Index(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Index(l.calls, call)
}

// Count returns how often call was recorded.
func (l *Log) Count(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == call {
			n++
		}
	}
	return n
}
