package probe

import (
	"context"
	"runtime"
	"sync"
)

// SystemProbe samples the local machine: displays through the platform's
// display tool and applications through the process table.
type SystemProbe struct {
	goos string
	run  commandRunner
	list processLister

	mu      sync.RWMutex // protects matcher
	matcher matcher
}

var _ HostProbe = (*SystemProbe)(nil)

// NewSystemProbe returns a probe that flags processes whose name matches one
// of denied and reports those matching one of browsers. Matching ignores
// case and a trailing ".exe".
func NewSystemProbe(browsers, denied []string) *SystemProbe {
	return &SystemProbe{
		goos:    runtime.GOOS,
		run:     execRunner,
		list:    listProcessNames,
		matcher: newMatcher(browsers, denied),
	}
}

// SetMatchLists replaces the browser and deny lists. Samples already in
// progress finish with the old lists.
func (p *SystemProbe) SetMatchLists(browsers, denied []string) {
	m := newMatcher(browsers, denied)
	p.mu.Lock()
	p.matcher = m
	p.mu.Unlock()
}

func (p *SystemProbe) SampleMonitorCount(ctx context.Context) (int, error) {
	return sampleMonitors(ctx, p.goos, p.run)
}

func (p *SystemProbe) SampleRunningApps(ctx context.Context) (Apps, error) {
	p.mu.RLock()
	m := p.matcher
	p.mu.RUnlock()
	return sampleApps(ctx, p.list, m)
}
