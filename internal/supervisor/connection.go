package supervisor

import (
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/cheekyelf/geph-autotest/internal/relay"
)

// DefaultKillTimeout is how long Close waits for the client to exit after
// SIGTERM before escalating to SIGKILL.
const DefaultKillTimeout = 5 * time.Second

// Connection is the outcome of a successful connect cycle: the live
// client process, the chosen exit, the entitlement flag, and the queue
// the relay keeps feeding with the client's stderr.
//
// The caller owns the handle for termination only; the stream is owned by
// the relay. The caller must arrange Close on every exit path, typically
// with defer immediately after Connect returns.
type Connection struct {
	Exit        string
	Plus        bool
	Queue       *relay.Queue
	ConnectTime time.Duration

	cmd         *exec.Cmd
	rel         *relay.Relay
	logger      *slog.Logger
	killTimeout time.Duration

	closeOnce sync.Once
}

// PID returns the client's process ID.
func (c *Connection) PID() int {
	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// RelayLines returns the number of lines relayed since readiness.
func (c *Connection) RelayLines() int64 {
	if c.rel == nil {
		return 0
	}
	return c.rel.LinesRead()
}

// RelayDone returns a channel closed once the relay goroutine has pushed
// everything it will ever push. After Close, waiting on this before the
// final queue drain guarantees the full transcript is in the queue.
func (c *Connection) RelayDone() <-chan struct{} {
	if c.rel == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return c.rel.Done()
}

// Close terminates and reaps the client. It signals the process group
// with SIGTERM, waits up to the kill timeout, then SIGKILLs. Killing the
// client closes its stderr, which ends the relay goroutine.
//
// Idempotent: the process is signalled and reaped exactly once no matter
// how many paths defer Close.
func (c *Connection) Close() error {
	c.closeOnce.Do(c.kill)
	return nil
}

func (c *Connection) kill() {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	pid := c.cmd.Process.Pid

	if pgid, err := syscall.Getpgid(pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGTERM)
	} else {
		c.cmd.Process.Signal(syscall.SIGTERM)
	}

	done := make(chan struct{})
	go func() {
		c.cmd.Wait()
		close(done)
	}()

	timeout := c.killTimeout
	if timeout <= 0 {
		timeout = DefaultKillTimeout
	}

	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Warn("force_killing_client", "pid", pid)
		if pgid, err := syscall.Getpgid(pid); err == nil {
			syscall.Kill(-pgid, syscall.SIGKILL)
		} else {
			c.cmd.Process.Kill()
		}
		<-done
	}

	c.logger.Debug("client_reaped", "pid", pid)
}
