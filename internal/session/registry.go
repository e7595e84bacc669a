package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/hoststate/hoststate/internal/probe"
)

var (
	// ErrDuplicateSession means a connection id was reused while its
	// session is still open. The existing session is kept.
	ErrDuplicateSession = errors.New("session already exists for connection")

	ErrTooManySessions = errors.New("too many sessions")
	ErrRegistryClosed  = errors.New("session registry is shut down")
)

// Registry maps open connections to their sessions, one to one. The probe
// is the only state shared between sessions.
type Registry struct {
	probe probe.HostProbe
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewRegistry creates an empty registry. A non-positive TickInterval falls
// back to DefaultTickInterval.
func NewRegistry(p probe.HostProbe, opts Options) *Registry {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		probe:    p,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// OnConnect creates and starts the session for a newly opened connection.
func (r *Registry) OnConnect(id string, sink Sink) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, ok := r.sessions[id]; ok {
		r.opts.Metrics.SessionRejected("duplicate")
		return nil, ErrDuplicateSession
	}
	if r.opts.MaxSessions > 0 && len(r.sessions) >= r.opts.MaxSessions {
		r.opts.Metrics.SessionRejected("limit")
		return nil, ErrTooManySessions
	}

	s := newSession(r.ctx, id, r.probe, sink, r.opts)
	r.sessions[id] = s
	r.opts.Metrics.SessionOpened()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		s.run()
	}()

	log.Printf("[registry] session %s started (%d active)", id, len(r.sessions))
	return s, nil
}

// OnDisconnect stops and forgets the session for a closed connection.
// Unknown ids are ignored, so repeated calls are safe.
func (r *Registry) OnDisconnect(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	remaining := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return
	}
	s.Stop()
	r.opts.Metrics.SessionClosed()
	log.Printf("[registry] session %s stopped (%d active)", id, remaining)
}

// Shutdown stops every session, empties the registry and waits for all
// session loops to exit. Later OnConnect calls fail with ErrRegistryClosed.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	r.cancel()
	for _, s := range sessions {
		s.Stop()
		r.opts.Metrics.SessionClosed()
	}
	r.wg.Wait()
	log.Printf("[registry] shut down %d sessions", len(sessions))
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
