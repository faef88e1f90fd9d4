package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/goleak"
)

func TestBroadcaster(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewBroadcaster()
	a, cancelA := b.Subscribe(4)
	c, cancelC := b.Subscribe(1)
	assert.Equal(t, 2, b.Subscribers())

	b.Publish(gomidi.NoteOn(0, 60, 1))
	b.Publish(gomidi.NoteOn(0, 61, 1)) // c is full, dropped for c only

	assert.Len(t, a, 2)
	assert.Len(t, c, 1)

	cancelC()
	cancelC()
	_, open := <-c
	require.True(t, open, "buffered message is still delivered")
	_, open = <-c
	assert.False(t, open)
	assert.Equal(t, 1, b.Subscribers())

	b.Close()
	<-a
	<-a
	_, open = <-a
	assert.False(t, open)
	cancelA()

	late, cancel := b.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
	cancel()
}
