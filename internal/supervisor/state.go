// Package supervisor manages the lifecycle of the tunnel client process.
package supervisor

// State represents the current state of the supervised connection attempt.
type State int

const (
	// StateIdle is the initial state before any spawn.
	StateIdle State = iota

	// StateSpawning indicates the client process is being spawned.
	StateSpawning

	// StateAwaitingReadiness indicates the client is running and the
	// supervisor is scanning its stderr for the readiness marker.
	StateAwaitingReadiness

	// StateReady indicates the tunnel is up and the stream has been
	// handed off to the relay.
	StateReady

	// StateStopped indicates the supervisor gave up or was cancelled.
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateAwaitingReadiness:
		return "awaiting_readiness"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsActive returns true if the state represents an in-progress connect.
func (s State) IsActive() bool {
	return s == StateSpawning || s == StateAwaitingReadiness
}

// IsTerminal returns true if the state ends the connect cycle.
func (s State) IsTerminal() bool {
	return s == StateReady || s == StateStopped
}
