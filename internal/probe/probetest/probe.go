// Package probetest provides a controllable HostProbe for tests.
package probetest

import (
	"context"
	"sync"

	"github.com/hoststate/hoststate/internal/probe"
	"github.com/hoststate/hoststate/internal/snapshot"
)

// Probe returns whatever state the test last set. All methods are safe for
// concurrent use, so one Probe can feed several sessions.
type Probe struct {
	mu           sync.Mutex
	monitors     int
	monitorErr   error
	apps         probe.Apps
	appsErr      error
	monitorCalls int
	appsCalls    int
	hold         chan struct{}
	entered      chan struct{}
}

var _ probe.HostProbe = (*Probe)(nil)

// New returns a probe reporting the given state.
func New(monitors int, browsers, flagged []string) *Probe {
	p := &Probe{monitors: monitors}
	p.SetApps(browsers, flagged)
	return p
}

func (p *Probe) SetMonitors(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.monitors = n
}

func (p *Probe) SetApps(browsers, flagged []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apps = probe.Apps{
		ActiveBrowsers: snapshot.NewAppSet(browsers...),
		FlaggedApps:    snapshot.NewAppSet(flagged...),
	}
}

// FailMonitors makes SampleMonitorCount return err wrapped as a probe
// error. Pass nil to recover.
func (p *Probe) FailMonitors(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.monitorErr = wrap(probe.OpMonitors, err)
}

// FailApps makes SampleRunningApps return err wrapped as a probe error.
// Pass nil to recover.
func (p *Probe) FailApps(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appsErr = wrap(probe.OpApps, err)
}

// Hold blocks the next SampleMonitorCount call until release is called,
// ignoring context cancellation, so tests can observe a tick in flight.
// entered is closed once a call is blocked.
func (p *Probe) Hold() (entered <-chan struct{}, release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hold = make(chan struct{})
	p.entered = make(chan struct{})
	hold := p.hold
	var once sync.Once
	return p.entered, func() { once.Do(func() { close(hold) }) }
}

// Calls reports how many times each sample method ran.
func (p *Probe) Calls() (monitors, apps int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.monitorCalls, p.appsCalls
}

func (p *Probe) SampleMonitorCount(ctx context.Context) (int, error) {
	p.mu.Lock()
	p.monitorCalls++
	hold, entered := p.hold, p.entered
	if hold != nil {
		p.hold, p.entered = nil, nil
	}
	p.mu.Unlock()

	if hold != nil {
		close(entered)
		<-hold
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.monitorErr != nil {
		return 0, p.monitorErr
	}
	return p.monitors, nil
}

func (p *Probe) SampleRunningApps(ctx context.Context) (probe.Apps, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appsCalls++
	if p.appsErr != nil {
		return probe.Apps{}, p.appsErr
	}
	return p.apps, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &probe.Error{Op: op, Err: err}
}
