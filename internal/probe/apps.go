package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/hoststate/hoststate/internal/snapshot"
)

// processLister returns the name of every process on the host.
type processLister func(ctx context.Context) ([]string, error)

func listProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// normalizeName lowercases a process name and drops a Windows .exe suffix so
// that "Telegram.exe", "telegram" and "Telegram" compare equal.
func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(n, ".exe")
}

// matcher classifies process names against the browser and deny lists.
type matcher struct {
	browsers map[string]bool
	denied   map[string]bool
}

func newMatcher(browsers, denied []string) matcher {
	m := matcher{
		browsers: make(map[string]bool, len(browsers)),
		denied:   make(map[string]bool, len(denied)),
	}
	for _, b := range browsers {
		m.browsers[normalizeName(b)] = true
	}
	for _, d := range denied {
		m.denied[normalizeName(d)] = true
	}
	return m
}

// classify returns the matching names as the OS reported them.
func (m matcher) classify(names []string) Apps {
	var browsers, flagged []string
	for _, name := range names {
		key := normalizeName(name)
		if key == "" {
			continue
		}
		if m.browsers[key] {
			browsers = append(browsers, name)
		}
		if m.denied[key] {
			flagged = append(flagged, name)
		}
	}
	return Apps{
		ActiveBrowsers: snapshot.NewAppSet(browsers...),
		FlaggedApps:    snapshot.NewAppSet(flagged...),
	}
}

func sampleApps(ctx context.Context, list processLister, m matcher) (Apps, error) {
	names, err := list(ctx)
	if err != nil {
		return Apps{}, newError(OpApps, fmt.Errorf("listing processes: %w", err))
	}
	return m.classify(names), nil
}
