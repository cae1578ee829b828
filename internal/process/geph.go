package process

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// GephConfig holds configuration for geph4-client process execution.
type GephConfig struct {
	// BinaryPath is the path to the geph4-client binary.
	BinaryPath string

	// Username and Password are the account credentials, passed through
	// verbatim on the command line.
	Username string
	Password string

	// ExitServer is the hostname of the chosen exit.
	ExitServer string

	// HTTPListen, Socks5Listen and StatsListen are the local listen
	// addresses the client binds while connected.
	HTTPListen   string
	Socks5Listen string
	StatsListen  string

	// CredentialCache is the path the client uses for its credential cache.
	CredentialCache string

	// Env holds extra environment entries for the child, appended to the
	// parent's environment. The recursion guard the client expects
	// (GEPH_RECURSIVE=1) goes here rather than through a process-global
	// setenv, so nothing outside the spawn call is mutated.
	Env []string
}

// DefaultGephConfig returns a GephConfig with the reference defaults.
func DefaultGephConfig() *GephConfig {
	return &GephConfig{
		BinaryPath:      "geph4-client",
		HTTPListen:      "127.0.0.1:10910",
		Socks5Listen:    "127.0.0.1:10909",
		StatsListen:     "127.0.0.1:10809",
		CredentialCache: "/tmp/manual",
		Env:             []string{"GEPH_RECURSIVE=1"},
	}
}

// GephRunner implements Runner for geph4-client processes.
type GephRunner struct {
	config *GephConfig
}

// NewGephRunner creates a new geph4-client runner with the given configuration.
func NewGephRunner(cfg *GephConfig) *GephRunner {
	return &GephRunner{
		config: cfg,
	}
}

// Name returns "geph4-client".
func (r *GephRunner) Name() string {
	return "geph4-client"
}

// BuildCommand creates a connect-mode exec.Cmd. The returned command keeps
// running until killed, writing diagnostic lines to stderr.
func (r *GephRunner) BuildCommand(ctx context.Context) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, r.config.BinaryPath, r.connectArgs()...)
	cmd.Env = append(os.Environ(), r.config.Env...)
	return cmd, nil
}

// BuildSyncCommand creates a sync-mode exec.Cmd. The command is
// non-interactive: it writes a JSON document to stdout and exits.
func (r *GephRunner) BuildSyncCommand(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.config.BinaryPath, r.syncArgs()...)
	cmd.Env = append(os.Environ(), r.config.Env...)
	return cmd
}

// connectArgs constructs the connect-mode command-line arguments.
func (r *GephRunner) connectArgs() []string {
	return []string{
		"connect",
		"--username", r.config.Username,
		"--password", r.config.Password,
		"--exit-server", r.config.ExitServer,
		"--http-listen", r.config.HTTPListen,
		"--socks5-listen", r.config.Socks5Listen,
		"--stats-listen", r.config.StatsListen,
		"--credential-cache", r.config.CredentialCache,
	}
}

// syncArgs constructs the sync-mode command-line arguments.
func (r *GephRunner) syncArgs() []string {
	return []string{
		"sync",
		"--username", r.config.Username,
		"--password", r.config.Password,
	}
}

// Config returns the geph4-client configuration.
func (r *GephRunner) Config() *GephConfig {
	return r.config
}

// CommandString returns the connect command that would be executed, with
// the password masked (for -print-cmd and debugging).
func (r *GephRunner) CommandString() string {
	args := r.connectArgs()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--password" {
			args[i+1] = "********"
		}
	}
	return r.config.BinaryPath + " " + strings.Join(args, " ")
}
