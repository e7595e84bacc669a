package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hoststate/hoststate/internal/metrics"
	"github.com/hoststate/hoststate/internal/probe"
	"github.com/hoststate/hoststate/internal/snapshot"
)

// State is a session's lifecycle phase.
type State int

const (
	Starting State = iota
	Active
	Terminated
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const DefaultTickInterval = 2 * time.Second

// Options control how every session samples.
type Options struct {
	// TickInterval is the delay between samples after the initial one.
	TickInterval time.Duration

	// ProbeTimeout bounds one sample cycle. Zero means no bound.
	ProbeTimeout time.Duration

	// MaxSessions caps concurrent sessions in a Registry. Zero means
	// unlimited.
	MaxSessions int

	// Metrics may be nil.
	Metrics *metrics.Collector
}

// Session is one observer's polling loop. It samples the probe right away,
// then on every tick, and pushes to its sink only when the sampled state
// differs from what it last pushed.
type Session struct {
	id       string
	probe    probe.HostProbe
	sink     Sink
	interval time.Duration
	timeout  time.Duration
	metrics  *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// mu protects state and current and is held across a push, so once
	// Stop returns nothing more reaches the sink.
	mu      sync.Mutex
	state   State
	current *snapshot.Snapshot
}

func newSession(parent context.Context, id string, p probe.HostProbe, sink Sink, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:       id,
		probe:    p,
		sink:     sink,
		interval: opts.TickInterval,
		timeout:  opts.ProbeTimeout,
		metrics:  opts.Metrics,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    Starting,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the last pushed snapshot, if any.
func (s *Session) Current() (snapshot.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return snapshot.Snapshot{}, false
	}
	return *s.current, true
}

// Done is closed when the session's loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// run drives the session until Stop. The initial sample happens before the
// ticker is armed so an observer never waits a full interval for state.
func (s *Session) run() {
	defer close(s.done)

	s.begin()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// begin performs the unconditional initial sample-and-push and moves the
// session to Active. A failed initial sample still activates the session;
// the next successful tick delivers the first push instead.
func (s *Session) begin() {
	s.tick()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Starting {
		s.state = Active
	}
}

// tick runs one sample-diff-push cycle.
func (s *Session) tick() {
	if s.ctx.Err() != nil {
		return
	}

	next, err := s.sample()
	if err != nil {
		if s.ctx.Err() != nil {
			s.metrics.Tick(metrics.TickDiscarded)
			return
		}
		log.Printf("[session %s] sample failed, keeping last state: %v", s.id, err)
		s.metrics.Tick(metrics.TickProbeError)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Terminated || s.ctx.Err() != nil {
		s.metrics.Tick(metrics.TickDiscarded)
		return
	}
	if !snapshot.HasChanged(s.current, next) {
		s.metrics.Tick(metrics.TickUnchanged)
		return
	}

	s.current = &next
	s.metrics.Tick(metrics.TickChanged)
	s.push(next)
}

// sample reads both probes into a fresh snapshot. A panicking probe is
// reported as a probe error.
func (s *Session) sample() (snap snapshot.Snapshot, err error) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	op := probe.OpMonitors
	defer func() {
		if r := recover(); r != nil {
			s.metrics.ProbeFailed(op)
			err = &probe.Error{Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	count, err := s.probe.SampleMonitorCount(ctx)
	if err != nil {
		s.metrics.ProbeFailed(op)
		return snapshot.Snapshot{}, err
	}

	op = probe.OpApps
	apps, err := s.probe.SampleRunningApps(ctx)
	if err != nil {
		s.metrics.ProbeFailed(op)
		return snapshot.Snapshot{}, err
	}

	return snapshot.New(snapshot.Count(count), apps.FlaggedApps, apps.ActiveBrowsers, time.Now()), nil
}

// push sends both channels from one snapshot. Caller must hold s.mu.
func (s *Session) push(snap snapshot.Snapshot) {
	if err := s.sink.PushMonitor(monitorUpdate(snap)); err != nil {
		log.Printf("[session %s] push %s: %v", s.id, ChannelMonitor, err)
	} else {
		s.metrics.Pushed(string(ChannelMonitor))
	}

	if err := s.sink.PushApps(appsUpdate(snap)); err != nil {
		log.Printf("[session %s] push %s: %v", s.id, ChannelApps, err)
	} else {
		s.metrics.Pushed(string(ChannelApps))
	}
}

// Stop terminates the session. Future ticks are cancelled immediately; a
// sample already in flight finishes but its result is dropped. Stop is
// idempotent and does not wait for the loop to exit (see Done).
func (s *Session) Stop() {
	s.cancel()

	s.mu.Lock()
	s.state = Terminated
	s.mu.Unlock()
}
