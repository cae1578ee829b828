package probe

import (
	"context"
	"math/rand"
	"time"
)

// randomInterval returns a uniform whole-second duration on
// [0, 2*avgSeconds]. Intervals in the test plan are averages; sampling
// around them keeps a fleet of probers from synchronizing their load
// spikes on the exits.
func randomInterval(rng *rand.Rand, avgSeconds int64) time.Duration {
	if avgSeconds <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(2*avgSeconds+1)) * time.Second
}

// sleepInterval sleeps for a randomized interval around avgSeconds.
// Returns false if the context was cancelled before the sleep finished.
func sleepInterval(ctx context.Context, rng *rand.Rand, avgSeconds int64) bool {
	d := randomInterval(rng, avgSeconds)
	if d == 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
