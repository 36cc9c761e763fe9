package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
)

// Policy describes one external call's retry budget. MaxAttempts counts
// the first attempt, so MaxAttempts=3 means at most two retries.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	return p
}

// Do runs op up to MaxAttempts times with exponential backoff (doubling
// from BaseDelay, capped at MaxDelay when set). retryable decides whether
// a failed attempt earns another try; nil treats every error as transient.
// The returned error aggregates every attempt's failure.
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func(context.Context) error) error {
	p = p.withDefaults()

	var backoff retry.Backoff = retry.NewExponential(p.BaseDelay)
	if p.MaxDelay > 0 {
		backoff = retry.WithCappedDuration(p.MaxDelay, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(p.MaxAttempts-1), backoff)

	var attempts error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		opErr := op(ctx)
		if opErr == nil {
			return nil
		}
		attempts = multierr.Append(attempts, opErr)
		if retryable == nil || retryable(opErr) {
			return retry.RetryableError(opErr)
		}
		return opErr
	})
	if err == nil {
		return nil
	}
	if attempts == nil {
		// canceled before the first attempt ran
		return err
	}
	return attempts
}
