// Package schedule implements the per-scope teardown state machine:
// tier-ordered deletion with bounded retry, settle waits, and
// terminal-absence confirmation.
package schedule

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy is the backoff policy value object shared by the scheduler
// across all resource types: total attempt budget, base delay, cap,
// and jitter factor.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

// DefaultPolicy returns the stock retry policy: three attempts,
// exponential from 2s capped at 30s, half-interval jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.5,
	}
}

// newBackOff builds a fresh exponential backoff. State is never
// shared between resources.
func (p Policy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = p.Jitter
	return b
}
