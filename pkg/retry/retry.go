package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds retries of an operation.
type Policy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultPolicy retries a handful of times with short exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
	}
}

// Permanent marks an error as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op under the policy until it succeeds, returns a permanent error,
// the attempt budget is exhausted, or the context is canceled.
func Do(ctx context.Context, policy Policy, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		exp.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		exp.MaxInterval = policy.MaxInterval
	}
	if policy.Multiplier > 0 {
		exp.Multiplier = policy.Multiplier
	}

	var b backoff.BackOff = exp
	if policy.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(exp, policy.MaxAttempts-1)
	}
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(op, b)
}
