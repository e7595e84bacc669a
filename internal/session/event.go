package session

import "github.com/hoststate/hoststate/internal/snapshot"

// Channel names the two independent update streams an observer receives.
type Channel string

const (
	ChannelMonitor Channel = "monitor"
	ChannelApps    Channel = "apps"
)

// MonitorUpdate is the payload of the monitor channel.
type MonitorUpdate struct {
	Count snapshot.MonitorCount `json:"count"`
}

// AppsUpdate is the payload of the apps channel.
type AppsUpdate struct {
	ActiveBrowsers snapshot.AppSet `json:"activeBrowsers"`
	FlaggedApps    snapshot.AppSet `json:"flaggedApps"`
}

// Sink delivers updates to one observer connection. A session owns its
// sink; it is never shared between sessions. Implementations should not
// block for long: a push happens while the session holds its lock.
type Sink interface {
	PushMonitor(MonitorUpdate) error
	PushApps(AppsUpdate) error
}

func monitorUpdate(s snapshot.Snapshot) MonitorUpdate {
	return MonitorUpdate{Count: s.MonitorCount()}
}

func appsUpdate(s snapshot.Snapshot) AppsUpdate {
	return AppsUpdate{
		ActiveBrowsers: s.ActiveBrowsers(),
		FlaggedApps:    s.FlaggedApps(),
	}
}
