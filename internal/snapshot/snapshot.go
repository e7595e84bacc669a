// Package snapshot holds the immutable host-state value sampled by each
// session tick and the change detection applied between two samples.
package snapshot

import (
	"encoding/json"
	"strconv"
	"time"
)

// MonitorCount is the number of attached displays. Unknown means the count
// has never been sampled successfully.
type MonitorCount int

const Unknown MonitorCount = 0

// Known reports whether the count holds a sampled value.
func (c MonitorCount) Known() bool { return c > 0 }

func (c MonitorCount) String() string {
	if !c.Known() {
		return "unknown"
	}
	return strconv.Itoa(int(c))
}

// MarshalJSON encodes Unknown as null.
func (c MonitorCount) MarshalJSON() ([]byte, error) {
	if !c.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(int(c))
}

func (c *MonitorCount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Unknown
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

// Count converts a raw probe value, mapping anything below one to Unknown.
func Count(n int) MonitorCount {
	if n < 1 {
		return Unknown
	}
	return MonitorCount(n)
}

// Snapshot is one consistent capture of every probed field. Values are never
// mutated after construction; a new sample always builds a new Snapshot.
type Snapshot struct {
	monitors  MonitorCount
	flagged   AppSet
	browsers  AppSet
	sampledAt time.Time
}

// New builds a snapshot from probe results.
func New(monitors MonitorCount, flagged, browsers AppSet, sampledAt time.Time) Snapshot {
	return Snapshot{
		monitors:  monitors,
		flagged:   flagged,
		browsers:  browsers,
		sampledAt: sampledAt,
	}
}

func (s Snapshot) MonitorCount() MonitorCount { return s.monitors }
func (s Snapshot) FlaggedApps() AppSet       { return s.flagged }
func (s Snapshot) ActiveBrowsers() AppSet    { return s.browsers }
func (s Snapshot) SampledAt() time.Time      { return s.sampledAt }

// HasFlagged reports whether any deny-listed application is running.
func (s Snapshot) HasFlagged() bool { return s.flagged.Len() > 0 }

// Equal compares the probed fields. The sample time is not part of the
// host state and is ignored.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.monitors == other.monitors &&
		s.flagged.Equal(other.flagged) &&
		s.browsers.Equal(other.browsers)
}

// HasChanged decides whether next must be pushed to an observer whose last
// delivered state is previous. A nil previous means nothing was delivered yet.
func HasChanged(previous *Snapshot, next Snapshot) bool {
	if previous == nil {
		return true
	}
	return !previous.Equal(next)
}
