package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/wecloud/backoffice/internal/config"
)

const (
	keyGatewaySend = "gateway:send"
	keyJobLock     = "jobs:lock:%s"
)

// SendLimiter throttles outbound gateway messages across instances. A nil
// limiter allows everything, so deployments without redis keep their fixed
// inter-send pause as the only brake.
type SendLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewSendLimiter(cfg config.Config, client *redis.Client) *SendLimiter {
	if client == nil || cfg.Gateway.SendRate <= 0 || cfg.Gateway.SendBurst <= 0 {
		return nil
	}
	return &SendLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.Gateway.SendRate,
		burst:  cfg.Gateway.SendBurst,
	}
}

func (l *SendLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Wait blocks until a send token is available or the context ends.
func (l *SendLimiter) Wait(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	for {
		result, err := l.bucket.Allow(ctx, keyGatewaySend, l.rate, l.burst)
		if err != nil {
			return err
		}
		if result.Allowed {
			return nil
		}

		pause := result.RetryAfter
		if pause <= 0 {
			pause = 50 * time.Millisecond
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// JobLocker serializes scheduled jobs across instances so a job fires once
// per tick no matter how many schedulers are running.
type JobLocker struct {
	locker *Locker
	ttl    time.Duration
}

func NewJobLocker(client *redis.Client, ttl time.Duration) *JobLocker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &JobLocker{locker: NewLocker(client), ttl: ttl}
}

// Acquire returns a release func when the lock was taken. Without redis
// every instance wins, which is the single-instance behavior.
func (j *JobLocker) Acquire(ctx context.Context, job string) (func(), bool, error) {
	if j == nil || j.locker == nil {
		return func() {}, true, nil
	}
	key := fmt.Sprintf(keyJobLock, strings.TrimSpace(job))
	token, ok, err := j.locker.TryLock(ctx, key, j.ttl)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() {
		_ = j.locker.Release(context.WithoutCancel(ctx), key, token)
	}, true, nil
}
