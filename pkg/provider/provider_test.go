package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/justyntemme/vst3host/internal/testplugin"
	"github.com/justyntemme/vst3host/pkg/factory"
	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

func newFactory(opts testplugin.Options) (*testplugin.Factory, *factory.Factory) {
	raw := testplugin.NewFactory(opts)
	return raw, factory.New("/plugins/Gain.vst3", raw)
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("object not released")
	}
}

func TestCreateSingle(t *testing.T) {
	raw, f := newFactory(testplugin.Options{})
	table := interop.NewTable()

	p, err := Create(f, testplugin.ProcessorClassID, nil, table)
	require.NoError(t, err)
	assert.True(t, p.Single())
	assert.False(t, p.Connected())
	assert.Equal(t, testplugin.ProcessorClassID, p.ClassID())

	plugin := raw.Plugins()[0]
	assert.Same(t, plugin, p.Component())
	assert.Same(t, plugin, p.Processor())
	assert.Same(t, plugin, p.Controller())
	assert.Equal(t, 1, table.Len())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	waitClosed(t, plugin.Released)
	assert.True(t, plugin.Terminated())
	assert.Zero(t, table.Len())
	assert.Equal(t, []string{"component.initialize", "component.terminate", "component.release"}, plugin.Log.Calls())
}

func TestCreateSplit(t *testing.T) {
	raw, f := newFactory(testplugin.Options{Split: true})
	table := interop.NewTable()

	p, err := Create(f, testplugin.ProcessorClassID, nil, table)
	require.NoError(t, err)
	assert.False(t, p.Single())
	assert.True(t, p.Connected())

	plugin, ctrl := raw.Plugins()[0], raw.Controllers()[0]
	assert.Same(t, ctrl, p.Controller())

	require.NoError(t, plugin.Send("ping"))
	require.NoError(t, ctrl.Send("pong"))
	assert.Equal(t, 1, raw.Log.Count("controller.notify:ping"))
	assert.Equal(t, 1, raw.Log.Count("component.notify:pong"))

	require.NoError(t, p.Close())
	waitClosed(t, plugin.Released)
	waitClosed(t, ctrl.Released)
	assert.Zero(t, table.Len())

	log := raw.Log
	assert.Less(t, log.Index("component.initialize"), log.Index("controller.initialize"))
	assert.Less(t, log.Index("controller.initialize"), log.Index("component.connect"))
	assert.Less(t, log.Index("component.disconnect"), log.Index("controller.terminate"))
	assert.Less(t, log.Index("controller.disconnect"), log.Index("controller.terminate"))
	assert.Less(t, log.Index("controller.terminate"), log.Index("component.terminate"))

	cp, cc := p.Proxies()
	assert.False(t, cp.Connected())
	assert.False(t, cc.Connected())
	assert.False(t, interop.Exposed(cp))
}

func TestCreateSplitWithoutConnection(t *testing.T) {
	raw, f := newFactory(testplugin.Options{Split: true, NoConnection: true})
	p, err := Create(f, testplugin.ProcessorClassID, nil, interop.NewTable())
	require.NoError(t, err)
	assert.False(t, p.Connected())
	require.NoError(t, p.Close())
	assert.Equal(t, -1, raw.Log.Index("component.connect"))
	assert.True(t, raw.Controllers()[0].Terminated())
}

func TestCreateFailures(t *testing.T) {
	tests := []struct {
		name    string
		classID vst3.TUID
		fail    bool
		want    error
	}{
		{name: "unknown class", classID: vst3.InlineUID(1, 2, 3, 4), want: vst3.ErrNoInterface},
		{name: "factory refuses", classID: testplugin.ProcessorClassID, fail: true, want: vst3.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, f := newFactory(testplugin.Options{})
			raw.FailCreate = tt.fail
			table := interop.NewTable()
			p, err := Create(f, tt.classID, nil, table)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, p)
			assert.Zero(t, table.Len())
		})
	}
}

func TestProxyConnectRules(t *testing.T) {
	src := testplugin.NewPlugin(testplugin.Options{}, nil)
	dst := testplugin.NewController(testplugin.Options{}, nil)
	other := testplugin.NewController(testplugin.Options{}, nil)
	proxy := NewConnectionProxy(src)

	assert.ErrorIs(t, proxy.Disconnect(dst), ErrNotConnected)
	require.NoError(t, proxy.Connect(dst))
	assert.ErrorIs(t, proxy.Connect(other), ErrAlreadyConnected)
	assert.ErrorIs(t, proxy.Disconnect(other), ErrNotConnected)
	assert.True(t, proxy.Connected())

	require.NoError(t, proxy.Disconnect(dst))
	assert.False(t, proxy.Connected())
	assert.ErrorIs(t, proxy.Disconnect(dst), ErrNotConnected)
	assert.ErrorIs(t, src.Send("late"), vst3.ErrNotInitialized)
}

func TestProxyNotifyInline(t *testing.T) {
	src := testplugin.NewPlugin(testplugin.Options{}, nil)
	dst := testplugin.NewController(testplugin.Options{}, nil)
	proxy := NewConnectionProxy(src)
	assert.Nil(t, proxy.Context())
	require.NoError(t, proxy.Connect(dst))

	require.NoError(t, src.Send("now"))
	assert.Equal(t, 1, dst.Log.Count("controller.notify:now"))
}

func TestProxyNotifyCrossThread(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop := interop.NewLoop("control", 8)
	defer loop.Close()

	raw, f := newFactory(testplugin.Options{Split: true})
	var p *Provider
	require.NoError(t, loop.Call(func() (err error) {
		p, err = Create(f, testplugin.ProcessorClassID, nil, interop.NewTable())
		return err
	}))
	cp, _ := p.Proxies()
	assert.Same(t, loop, cp.Context())

	plugin, ctrl := raw.Plugins()[0], raw.Controllers()[0]
	delivered := make(chan bool, 1)
	ctrl.OnNotify = func(vst3.Message) { delivered <- loop.IsCurrent() }

	gate := make(chan struct{})
	require.NoError(t, loop.Post(func() { <-gate }))

	require.NoError(t, plugin.Send("ping"))
	assert.Zero(t, raw.Log.Count("controller.notify:ping"))
	close(gate)

	select {
	case onLoop := <-delivered:
		assert.True(t, onLoop)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, loop.Call(p.Close))
	waitClosed(t, plugin.Released)
	waitClosed(t, ctrl.Released)
}
