package supervisor

import (
	"testing"
	"time"
)

func TestDefaultBackoffIsFixedOneSecond(t *testing.T) {
	b := NewBackoff(42, DefaultBackoffConfig())

	// Multiplier 1.0 with no jitter: every retry waits exactly the
	// reference one second.
	for i := 0; i < 5; i++ {
		if got := b.Next(); got != time.Second {
			t.Errorf("attempt %d: delay = %v, want 1s", i, got)
		}
	}
}

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	b := NewBackoff(42, BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        500 * time.Millisecond,
		Multiplier: 2.0,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond, // capped
		500 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", i, got, w)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(42, BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 2.0,
	})

	b.Next()
	b.Next()
	if b.Attempts() != 2 {
		t.Fatalf("attempts = %d, want 2", b.Attempts())
	}

	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("attempts after reset = %d, want 0", b.Attempts())
	}
	if got := b.Calculate(); got != 100*time.Millisecond {
		t.Errorf("delay after reset = %v, want initial", got)
	}
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    time.Second,
		Max:        time.Second,
		Multiplier: 1.0,
		JitterPct:  0.4,
	}
	b := NewBackoff(7, cfg)

	for i := 0; i < 100; i++ {
		d := b.Calculate()
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jittered delay %v outside ±20%% band", d)
		}
	}
}
