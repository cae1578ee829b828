package supervisor

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig holds the configuration for respawn backoff.
//
// The reference behavior is a fixed one-second pause between respawns,
// which the defaults preserve (Multiplier 1.0). Raising the multiplier
// turns this into exponential backoff for deployments where a broken
// binary would otherwise respawn forever at full speed.
type BackoffConfig struct {
	Initial    time.Duration // Delay after the first premature exit (default: 1s)
	Max        time.Duration // Maximum delay (default: 30s)
	Multiplier float64       // Multiplier for each attempt (default: 1.0 = fixed)
	JitterPct  float64       // Jitter as a fraction of the delay (default: 0)
}

// DefaultBackoffConfig returns the reference-faithful defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    1 * time.Second,
		Max:        30 * time.Second,
		Multiplier: 1.0,
		JitterPct:  0,
	}
}

// Backoff calculates respawn delays.
type Backoff struct {
	config   BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a Backoff calculator seeded for reproducible jitter.
func NewBackoff(seed int64, cfg BackoffConfig) *Backoff {
	return &Backoff{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next delay and increments the attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := b.Calculate()
	b.attempts++
	return delay
}

// Calculate returns the current delay without incrementing attempts.
func (b *Backoff) Calculate() time.Duration {
	delay := float64(b.config.Initial) * math.Pow(b.config.Multiplier, float64(b.attempts))

	if delay > float64(b.config.Max) {
		delay = float64(b.config.Max)
	}

	if b.config.JitterPct > 0 {
		jitterRange := delay * b.config.JitterPct
		delay += jitterRange*b.rng.Float64() - jitterRange/2
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Reset resets the attempt counter to zero.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the current attempt count.
func (b *Backoff) Attempts() int {
	return b.attempts
}
