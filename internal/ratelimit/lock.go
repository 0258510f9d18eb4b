package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var (
	errNoLockClient = errors.New("lock client not configured")
	errBadLockKey   = errors.New("lock key is empty")
	errBadLockTTL   = errors.New("lock ttl must be positive")
)

// Deleting the key is only safe while this holder's token is still in it.
// A plain DEL could drop a lock that expired and was re-acquired elsewhere.
const releaseOwnLock = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker hands out expiring single-holder locks backed by redis SET NX.
// Each acquisition carries a random token identifying the holder.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseOwnLock),
	}
}

// TryLock attempts one non-blocking acquisition. ok reports whether this
// caller now holds the lock; the token must be presented on Release.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, errNoLockClient
	case key == "":
		return "", false, errBadLockKey
	case ttl <= 0:
		return "", false, errBadLockTTL
	}

	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lock if this token still owns it. Releasing a lock that
// already expired is a no-op, not an error.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{key}, token).Err()
}
