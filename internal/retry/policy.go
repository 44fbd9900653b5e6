// Package retry provides the backoff policy used to re-run a transaction
// that lost an optimistic concurrency race.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines retry behavior.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts  int           `json:"maxAttempts" yaml:"maxAttempts"`
	InitialDelay time.Duration `json:"initialDelay" yaml:"initialDelay"`
	MaxDelay     time.Duration `json:"maxDelay" yaml:"maxDelay"`
	Multiplier   float64       `json:"multiplier" yaml:"multiplier"`
	// Jitter is a random factor (0-1) applied to the delay.
	Jitter float64 `json:"jitter" yaml:"jitter"`
}

// Default returns 5 attempts starting at 5ms, capped at 200ms, 2x multiplier, 20% jitter.
func Default() *Policy {
	return &Policy{
		MaxAttempts:  5,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// NoRetry returns a policy that doesn't retry.
func NoRetry() *Policy {
	return &Policy{MaxAttempts: 1, Multiplier: 1.0}
}

// NextDelay calculates the delay before the given retry; attempt is 1-indexed.
func (p *Policy) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		// range [1-jitter, 1+jitter]
		jitterFactor := 1 - p.Jitter + 2*p.Jitter*rand.Float64()
		delay = time.Duration(float64(delay) * jitterFactor)
	}
	return delay
}

// ShouldRetry returns true if another attempt should be made after attempt failed.
func (p *Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

// Do runs fn until it succeeds, returns a non retryable error, or the policy
// is exhausted; the last error is returned unchanged.
func (p *Policy) Do(ctx context.Context, retryable func(error) bool, fn func(attempt int) error) error {
	if p == nil {
		p = NoRetry()
	}
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil || !retryable(err) || !p.ShouldRetry(attempt) {
			return err
		}
		timer := time.NewTimer(p.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
