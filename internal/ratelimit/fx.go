package ratelimit

import (
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/wecloud/backoffice/internal/config"
)

var Module = fx.Module("ratelimit",
	fx.Provide(
		NewRedisClient,
		NewSendLimiter,
		func(client *redis.Client) *JobLocker {
			return NewJobLocker(client, 10*time.Minute)
		},
	),
)

// NewRedisClient returns nil when no address is configured; every consumer
// here treats a nil client as "feature off".
func NewRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}
