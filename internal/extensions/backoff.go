package extensions

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffConfig shapes the pause before a group's install pass is repeated.
// The zero value repeats immediately.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Delay returns the pause after install pass n (1-based) came back with base
// class failures: InitialDelay after the first pass, growing by Multiplier per
// further pass and capped at MaxDelay. Jitter scales the result into
// [0.5, 1.5).
func (c BackoffConfig) Delay(pass int, rng *rand.Rand) time.Duration {
	if c.InitialDelay <= 0 {
		return 0
	}
	growth := c.Multiplier
	if growth < 1.0 {
		growth = 1.0
	}
	delay := float64(c.InitialDelay)
	if pass > 1 {
		delay *= math.Pow(growth, float64(pass-1))
	}
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if c.Jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
