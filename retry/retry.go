// Package retry provides a small bounded-attempt, exponential-backoff
// policy for single fallible operations.
package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried. The zero Policy is not
// useful; use Default or construct one explicitly.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// Default is the policy used for remote-UI entry operations:
// 3 attempts with 1s, 2s delays between them.
var Default = Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}

// Do runs op until it succeeds or attempts are exhausted, sleeping
// between attempts. The last error is returned after the final attempt.
// The backoff sleep honors ctx cancellation; an op already running is
// never interrupted.
func (p Policy) Do(ctx context.Context, op func() error) error {
	delay := p.BaseDelay
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return err
}
