package interop

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLoopContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := NewLoop("control", 8)
	defer loop.Close()

	t.Run("call runs on the loop thread", func(t *testing.T) {
		var onLoop bool
		require.NoError(t, loop.Call(func() error {
			onLoop = loop.IsCurrent() && Current() == loop
			return nil
		}))
		assert.True(t, onLoop)
		assert.False(t, loop.IsCurrent())
	})

	t.Run("call returns the error", func(t *testing.T) {
		want := errors.New("boom")
		assert.ErrorIs(t, loop.Call(func() error { return want }), want)
	})

	t.Run("nested call runs inline", func(t *testing.T) {
		var inner bool
		require.NoError(t, loop.Call(func() error {
			return loop.Call(func() error {
				inner = true
				return nil
			})
		}))
		assert.True(t, inner)
	})

	t.Run("post runs in order", func(t *testing.T) {
		var (
			mu  sync.Mutex
			got []int
		)
		done := make(chan struct{})
		for i := 0; i < 5; i++ {
			i := i
			require.NoError(t, loop.Post(func() {
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
				if i == 4 {
					close(done)
				}
			}))
		}
		<-done
		assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	})
}

func TestLoopClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := NewLoop("short", 4)
	ran := make(chan struct{}, 1)
	require.NoError(t, loop.Post(func() { ran <- struct{}{} }))
	loop.Close()
	loop.Close()

	// queued work runs before the loop exits
	select {
	case <-ran:
	default:
		t.Fatal("queued task did not run")
	}
	assert.True(t, loop.Closed())
	assert.ErrorIs(t, loop.Post(func() {}), ErrClosed)
	assert.ErrorIs(t, loop.Call(func() error { return nil }), ErrClosed)
}

func TestDeferredReleaseOnLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := NewLoop("owner", 8)
	defer loop.Close()

	table := NewTable()
	obj := &countingObject{}
	var ref *Ref
	require.NoError(t, loop.Call(func() error {
		ref = table.Wrap(obj)
		return nil
	}))
	assert.Same(t, loop, ref.Owner())

	// released from a foreign goroutine, flushed on the owner's thread
	ref.Release()
	require.Eventually(t, ref.Released, time.Second, time.Millisecond)
	assert.Same(t, loop, obj.lastReleaseContext())
}

func TestPassiveContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	audio := NewPassive("audio")
	table := NewTable()
	obj := &countingObject{}

	wrapped := make(chan *Ref)
	drain := make(chan struct{})
	finished := make(chan struct{})
	var drainedOn *Context
	go func() {
		defer close(finished)
		audio.Enter()
		defer audio.Leave()
		wrapped <- table.Wrap(obj)
		<-drain
		audio.Drain()
		drainedOn = obj.lastReleaseContext()
	}()

	ref := <-wrapped
	assert.Same(t, audio, ref.Owner())

	ref.Release()
	assert.False(t, ref.Released())
	assert.Equal(t, 1, audio.PendingReleases())

	var posted bool
	require.NoError(t, audio.Post(func() { posted = true }))
	assert.False(t, posted)

	close(drain)
	<-finished
	assert.True(t, ref.Released())
	assert.True(t, posted)
	assert.Equal(t, 0, audio.PendingReleases())
	assert.Same(t, audio, drainedOn)

	assert.Error(t, audio.Call(func() error { return nil }))
	audio.Close()
}

func TestPassiveCloseFlushesReleases(t *testing.T) {
	audio := NewPassive("audio")
	table := NewTable()
	obj := &countingObject{}

	wrapped := make(chan *Ref)
	go func() {
		audio.Enter()
		defer audio.Leave()
		wrapped <- table.Wrap(obj)
	}()
	ref := <-wrapped

	ref.Release()
	assert.False(t, ref.Released())
	audio.Close()
	assert.True(t, ref.Released())
	assert.Equal(t, int32(1), obj.releases.Load())
}

func TestReleaseAfterOwnerClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := NewLoop("gone", 1)
	table := NewTable()
	obj := &countingObject{}
	var ref *Ref
	require.NoError(t, loop.Call(func() error {
		ref = table.Wrap(obj)
		return nil
	}))
	loop.Close()

	ref.Release()
	assert.True(t, ref.Released())
}
