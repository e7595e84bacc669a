package gateway

import (
	"log"
	"net/http"
	"sync"
	"time"

	socket "github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/hoststate/hoststate/internal/session"
)

const (
	socketPingInterval = 25 * time.Second
	socketPingTimeout  = 20 * time.Second
)

// SocketIO serves observers that speak Socket.IO. Each socket gets its own
// session; pushes are emitted as "monitor" and "apps" events.
type SocketIO struct {
	registry *session.Registry
	server   *socket.Server
}

func NewSocketIO(registry *session.Registry, path string) *SocketIO {
	opts := socket.DefaultServerOptions()
	opts.SetPath(path)
	opts.SetPingInterval(socketPingInterval)
	opts.SetPingTimeout(socketPingTimeout)
	// CORS is answered by the HTTP router in front of this server.

	s := &SocketIO{
		registry: registry,
		server:   socket.NewServer(nil, opts),
	}
	s.server.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.handleConnection(client)
	})
	return s
}

func (s *SocketIO) Handler() http.Handler {
	return s.server.ServeHandler(nil)
}

func (s *SocketIO) Close() {
	s.server.Close(nil)
}

func (s *SocketIO) handleConnection(client *socket.Socket) {
	id := "sio-" + string(client.Id())

	// Listen before the session exists so a drop during OnConnect is seen.
	life := &socketLifetime{release: func() { s.registry.OnDisconnect(id) }}
	client.On("disconnect", func(reason ...any) {
		life.markClosed()
		log.Printf("[socket.io %s] disconnected: %v", id, reason)
	})

	if _, err := s.registry.OnConnect(id, &socketSink{client: client}); err != nil {
		log.Printf("[socket.io %s] rejected: %v", id, err)
		client.Emit("error", map[string]string{"message": err.Error()})
		client.Disconnect(true)
		return
	}
	life.markRegistered()
	log.Printf("[socket.io %s] connected", id)
}

// socketLifetime releases a socket's session exactly once, after both the
// session was registered and the socket closed, in whichever order they
// happen. A socket that was never registered releases nothing.
type socketLifetime struct {
	mu         sync.Mutex
	registered bool
	closed     bool
	release    func()
}

func (l *socketLifetime) markRegistered() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registered = true
	if l.closed {
		l.release()
	}
}

func (l *socketLifetime) markClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.registered {
		l.release()
	}
}

// socketSink emits session pushes on a Socket.IO socket. Emit queues on the
// socket's own transport, so it does not block the session.
type socketSink struct {
	client *socket.Socket
}

func (s *socketSink) PushMonitor(u session.MonitorUpdate) error {
	s.client.Emit(string(session.ChannelMonitor), u)
	return nil
}

func (s *socketSink) PushApps(u session.AppsUpdate) error {
	s.client.Emit(string(session.ChannelApps), u)
	return nil
}
