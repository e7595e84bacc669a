package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sioclient "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/hoststate/hoststate/internal/probe/probetest"
	"github.com/hoststate/hoststate/internal/session"
)

type sioEvent struct {
	name    string
	payload string
}

// connectSocketIO dials the fixture's Socket.IO endpoint and forwards every
// monitor and apps event, JSON-encoded, to the returned channel.
func (f *fixture) connectSocketIO(t *testing.T) (*sioclient.Socket, <-chan sioEvent) {
	t.Helper()

	opts := sioclient.DefaultOptions()
	opts.SetPath("/socket.io/")
	opts.SetTransports(types.NewSet(sioclient.Polling, sioclient.WebSocket))

	sock, err := sioclient.Connect(f.http.URL, opts)
	require.NoError(t, err)
	require.NotNil(t, sock)
	t.Cleanup(func() { sock.Close() })

	events := make(chan sioEvent, 32)
	forward := func(name string) {
		sock.On(types.EventName(name), func(args ...any) {
			if len(args) == 0 {
				return
			}
			data, err := json.Marshal(args[0])
			if err != nil {
				return
			}
			events <- sioEvent{name: name, payload: string(data)}
		})
	}
	forward(string(session.ChannelMonitor))
	forward(string(session.ChannelApps))

	require.Eventually(t, sock.Connected, 10*time.Second, 20*time.Millisecond, "socket.io connect")
	return sock, events
}

func nextEvent(t *testing.T, events <-chan sioEvent) sioEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no socket.io event")
		return sioEvent{}
	}
}

func TestSocketIOPushes(t *testing.T) {
	f := newFixture(t, nil)
	sock, events := f.connectSocketIO(t)

	ev := nextEvent(t, events)
	assert.Equal(t, "monitor", ev.name)
	assert.JSONEq(t, `{"count":2}`, ev.payload)

	ev = nextEvent(t, events)
	assert.Equal(t, "apps", ev.name)
	assert.JSONEq(t, `{"activeBrowsers":["firefox"],"flaggedApps":[]}`, ev.payload)

	require.Equal(t, 1, f.registry.Count())

	f.probe.SetMonitors(3)
	ev = nextEvent(t, events)
	assert.Equal(t, "monitor", ev.name)
	assert.JSONEq(t, `{"count":3}`, ev.payload)
	ev = nextEvent(t, events)
	assert.Equal(t, "apps", ev.name)

	sock.Disconnect()
	require.Eventually(t, func() bool { return f.registry.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

type discardSink struct{}

func (discardSink) PushMonitor(session.MonitorUpdate) error { return nil }
func (discardSink) PushApps(session.AppsUpdate) error       { return nil }

func TestSocketLifetimeOrdering(t *testing.T) {
	newRegistry := func(t *testing.T) *session.Registry {
		reg := session.NewRegistry(probetest.New(1, nil, nil), session.Options{TickInterval: time.Hour})
		t.Cleanup(reg.Shutdown)
		return reg
	}

	t.Run("closed after registered", func(t *testing.T) {
		reg := newRegistry(t)
		life := &socketLifetime{release: func() { reg.OnDisconnect("s") }}

		_, err := reg.OnConnect("s", discardSink{})
		require.NoError(t, err)
		life.markRegistered()
		require.Equal(t, 1, reg.Count())

		life.markClosed()
		life.markClosed()
		assert.Equal(t, 0, reg.Count())
	})

	t.Run("closed while connecting", func(t *testing.T) {
		reg := newRegistry(t)
		life := &socketLifetime{release: func() { reg.OnDisconnect("s") }}

		// The socket drops before OnConnect has returned.
		life.markClosed()
		_, err := reg.OnConnect("s", discardSink{})
		require.NoError(t, err)
		life.markRegistered()

		assert.Equal(t, 0, reg.Count(), "session must not outlive its socket")
	})

	t.Run("never registered", func(t *testing.T) {
		released := 0
		life := &socketLifetime{release: func() { released++ }}
		life.markClosed()
		assert.Equal(t, 0, released)
	})
}
