// Package process provides abstractions for running the tunnel client binary.
package process

import (
	"context"
	"os/exec"
)

// Runner creates executable commands for the tunnel client.
// This interface allows the supervisor to be process-agnostic.
type Runner interface {
	// BuildCommand returns a ready-to-start connect-mode command.
	// The command should NOT be started yet.
	BuildCommand(ctx context.Context) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}
