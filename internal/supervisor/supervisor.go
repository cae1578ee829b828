package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cheekyelf/geph-autotest/internal/process"
	"github.com/cheekyelf/geph-autotest/internal/relay"
)

// ReadyMarker is the stderr line fragment that signals the tunnel is up.
// The client prints it when its tunnel manager enters its main loop; no
// traffic flows through the proxy listeners before that.
const ReadyMarker = "TUNNEL_MANAGER MAIN LOOP"

// ErrMaxAttempts is returned when the configured spawn ceiling is reached
// before the readiness marker is seen.
var ErrMaxAttempts = errors.New("max spawn attempts reached before tunnel ready")

// Callbacks contains optional callback functions for supervisor events.
type Callbacks struct {
	// OnStateChange is called when the supervisor state changes.
	OnStateChange func(oldState, newState State)

	// OnSpawn is called after each successful process start.
	OnSpawn func(attempt, pid int)

	// OnRetry is called before each respawn, with the wait delay.
	OnRetry func(attempt int, delay time.Duration)
}

// Config holds configuration for creating a new Supervisor.
type Config struct {
	Runner    process.Runner
	Backoff   *Backoff
	Logger    *slog.Logger
	Callbacks Callbacks

	// MaxAttempts caps the number of spawns per Connect call.
	// 0 means unlimited, the reference behavior: keep respawning until
	// the marker appears or the binary cannot be executed at all.
	MaxAttempts int

	// Marker overrides ReadyMarker (used by tests).
	Marker string

	// KillTimeout is the SIGTERM grace period used by Connection.Close.
	KillTimeout time.Duration
}

// Supervisor owns the connect-mode subprocess until readiness: it spawns
// the client, scans stderr for the readiness marker, respawns on
// premature exit, and on success hands the caller a Connection with the
// stream adopted by a background relay.
type Supervisor struct {
	runner      process.Runner
	backoff     *Backoff
	logger      *slog.Logger
	callbacks   Callbacks
	maxAttempts int
	marker      string
	killTimeout time.Duration

	state   State
	stateMu sync.RWMutex

	attempts int
}

// New creates a new Supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = NewBackoff(time.Now().UnixNano(), DefaultBackoffConfig())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	marker := cfg.Marker
	if marker == "" {
		marker = ReadyMarker
	}
	return &Supervisor{
		runner:      cfg.Runner,
		backoff:     backoff,
		logger:      logger,
		callbacks:   cfg.Callbacks,
		maxAttempts: cfg.MaxAttempts,
		marker:      marker,
		killTimeout: cfg.KillTimeout,
		state:       StateIdle,
	}
}

// Connect spawns the client and blocks until the tunnel is ready.
//
// The readiness phase is synchronous on the calling goroutine: the probe
// cannot do anything useful before the tunnel is up, so there is nothing
// to overlap with. Stream ownership transfers exactly once, from the
// detector loop here to the relay goroutine, at the moment the marker
// line is observed; after that this function never touches the stream.
//
// Every stderr line read before readiness, including lines from attempts
// that died prematurely, is pushed onto the returned Connection's queue,
// so no client output is lost.
//
// Failure to start the process at all is fatal and not retried. A stream
// that closes before the marker is a transient failure: the child is
// reaped, a warning is logged, and the spawn is retried after backoff.
func (s *Supervisor) Connect(ctx context.Context, exit string, plus bool) (*Connection, error) {
	queue := relay.NewQueue()
	start := time.Now()

	for {
		s.setState(StateSpawning)

		cmd, err := s.runner.BuildCommand(ctx)
		if err != nil {
			s.setState(StateStopped)
			return nil, fmt.Errorf("build %s command: %w", s.runner.Name(), err)
		}

		stderr, err := cmd.StderrPipe()
		if err != nil {
			s.setState(StateStopped)
			return nil, fmt.Errorf("stderr pipe: %w", err)
		}

		// Own process group so Close can signal the whole tree.
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Setpgid: true,
		}

		if err := cmd.Start(); err != nil {
			s.setState(StateStopped)
			return nil, fmt.Errorf("spawn %s: %w", s.runner.Name(), err)
		}

		s.attempts++
		pid := cmd.Process.Pid
		if s.callbacks.OnSpawn != nil {
			s.callbacks.OnSpawn(s.attempts, pid)
		}
		s.logger.Info("client_started",
			"pid", pid,
			"attempt", s.attempts,
			"exit_server", exit,
		)

		s.setState(StateAwaitingReadiness)
		lr := relay.NewLineReader(stderr)

		ready, readErr := s.awaitMarker(lr, queue)
		if ready {
			s.setState(StateReady)
			rel := relay.New(lr, queue)
			go rel.Run()

			elapsed := time.Since(start)
			s.logger.Info("tunnel_ready",
				"pid", pid,
				"attempts", s.attempts,
				"elapsed", elapsed.String(),
			)
			return &Connection{
				Exit:        exit,
				Plus:        plus,
				Queue:       queue,
				ConnectTime: elapsed,
				cmd:         cmd,
				rel:         rel,
				logger:      s.logger,
				killTimeout: s.killTimeout,
			}, nil
		}

		// Premature exit (or a stderr read failure, which is fatal to
		// this attempt). Make sure the child is dead, then reap it.
		if readErr != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()

		s.logger.Warn("client_exited_before_ready",
			"pid", pid,
			"attempt", s.attempts,
			"read_error", readErr,
		)

		if s.maxAttempts > 0 && s.attempts >= s.maxAttempts {
			s.setState(StateStopped)
			return nil, fmt.Errorf("%w (attempts=%d)", ErrMaxAttempts, s.attempts)
		}

		delay := s.backoff.Next()
		if s.callbacks.OnRetry != nil {
			s.callbacks.OnRetry(s.attempts, delay)
		}

		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// awaitMarker reads lines until the marker appears or the stream closes.
// Every line read is forwarded to the queue first, marker checks second,
// so the transcript is complete even for failed attempts. Returns
// (true, nil) on readiness, (false, nil) on premature stream close, and
// (false, err) on a read failure.
func (s *Supervisor) awaitMarker(lr *relay.LineReader, queue *relay.Queue) (bool, error) {
	for {
		line, err := lr.ReadLine()
		if len(line) > 0 {
			queue.Push(string(line))
		}
		if err != nil {
			return false, err
		}
		if len(line) == 0 {
			return false, nil
		}
		if strings.Contains(string(line), s.marker) {
			return true, nil
		}
	}
}

// State returns the current state of the supervisor.
func (s *Supervisor) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Attempts returns the number of spawns performed so far.
func (s *Supervisor) Attempts() int {
	return s.attempts
}

// setState updates the state and calls the callback if registered.
func (s *Supervisor) setState(newState State) {
	s.stateMu.Lock()
	oldState := s.state
	s.state = newState
	s.stateMu.Unlock()

	if s.callbacks.OnStateChange != nil && oldState != newState {
		s.callbacks.OnStateChange(oldState, newState)
	}
}
