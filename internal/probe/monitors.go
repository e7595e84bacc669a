package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// displayCommand describes how to count displays on one platform. When
// lineMatch is empty the command prints the count itself; otherwise the
// count is the number of output lines containing lineMatch.
type displayCommand struct {
	name      string
	args      []string
	lineMatch string
}

func displayCommandFor(goos string) (displayCommand, error) {
	switch goos {
	case "linux":
		return displayCommand{name: "xrandr", args: []string{"-q"}, lineMatch: " connected"}, nil
	case "windows":
		return displayCommand{
			name: "powershell",
			args: []string{"-Command", `(Get-WmiObject -Namespace root\wmi -Class WmiMonitorBasicDisplayParams).Count`},
		}, nil
	case "darwin":
		return displayCommand{name: "system_profiler", args: []string{"SPDisplaysDataType"}, lineMatch: "Resolution"}, nil
	default:
		return displayCommand{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// parseMonitorCount interprets command output. A host always drives at
// least one display, so output that yields nothing usable counts as one.
func parseMonitorCount(out, lineMatch string) int {
	n := 0
	if lineMatch == "" {
		n, _ = strconv.Atoi(strings.TrimSpace(out))
	} else {
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, lineMatch) {
				n++
			}
		}
	}
	if n < 1 {
		return 1
	}
	return n
}

// commandRunner executes an external command and returns its output streams.
type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func sampleMonitors(ctx context.Context, goos string, run commandRunner) (int, error) {
	dc, err := displayCommandFor(goos)
	if err != nil {
		return 0, newError(OpMonitors, err)
	}

	stdout, stderr, err := run(ctx, dc.name, dc.args...)
	if err != nil {
		return 0, newError(OpMonitors, fmt.Errorf("%s: %w", dc.name, err))
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return 0, newError(OpMonitors, fmt.Errorf("%s: %s", dc.name, msg))
	}
	return parseMonitorCount(string(stdout), dc.lineMatch), nil
}
