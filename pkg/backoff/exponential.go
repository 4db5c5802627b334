package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// maxDelay caps reconnect loops that keep failing.
const maxDelay = 30 * time.Second

// CalculateRetryDelay returns 2^(attempt-1) * base with +/-50% jitter, capped at maxDelay.
// The first attempt never waits.
func CalculateRetryDelay(attempt int, baseRetryDelay time.Duration) time.Duration {
	if attempt <= 1 || baseRetryDelay <= 0 {
		return 0
	}

	backoff := math.Pow(2, float64(attempt-1))
	delay := time.Duration(math.Min(backoff*float64(baseRetryDelay), float64(maxDelay)))

	jitterRange := float64(delay) * 0.5
	jitter := time.Duration(rand.Float64()*2*jitterRange - jitterRange)

	finalDelay := delay + jitter
	if finalDelay < 0 {
		finalDelay = 0
	}
	return finalDelay
}

// Wait sleeps for the delay of the given attempt, returning early with the
// context error when ctx is cancelled.
func Wait(ctx context.Context, attempt int, baseRetryDelay time.Duration) error {
	delay := CalculateRetryDelay(attempt, baseRetryDelay)
	if delay == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
