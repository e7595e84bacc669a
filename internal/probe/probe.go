// Package probe samples volatile host state: how many displays are attached
// and which watched applications are running.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/hoststate/hoststate/internal/snapshot"
)

// HostProbe is the read-only sampling capability shared by every session.
// Implementations must be safe for concurrent use.
type HostProbe interface {
	// SampleMonitorCount returns the number of attached displays.
	SampleMonitorCount(ctx context.Context) (int, error)

	// SampleRunningApps returns the watched applications currently running.
	// No matches is not an error; the sets are simply empty. An unreadable
	// process table is reported as an *Error rather than as empty sets.
	SampleRunningApps(ctx context.Context) (Apps, error)
}

// Apps is the result of one running-applications sample.
type Apps struct {
	ActiveBrowsers snapshot.AppSet
	FlaggedApps    snapshot.AppSet
}

const (
	OpMonitors = "monitors"
	OpApps     = "apps"
)

var (
	// ErrProbe matches every sampling failure via errors.Is.
	ErrProbe = errors.New("probe failed")

	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Error is a transient sampling failure: unsupported platform, a failed
// external command, or a permission problem.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrProbe, e.Err}
}

func newError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}
