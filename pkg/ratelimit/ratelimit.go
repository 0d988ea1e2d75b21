package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"rewards-controlplane/pkg/config"
	"rewards-controlplane/pkg/rediskey"
)

var Module = fx.Module("ratelimit",
	fx.Provide(NewRedisLimiter),
)

// Limiter throttles mutating calls per acting identity. Keys carry a TTL so
// stale actors evict themselves, no in-process map to grow unbounded.
type Limiter interface {
	Allow(ctx context.Context, actorID string) (bool, error)
}

type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

type Params struct {
	fx.In

	Redis  *redis.Client
	Config *config.Config
}

func NewRedisLimiter(p Params) Limiter {
	if !p.Config.RateLimit.Enable {
		return nopLimiter{}
	}

	limit := p.Config.RateLimit.Limit
	if limit <= 0 {
		limit = 60
	}
	window := p.Config.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}

	return &RedisLimiter{
		rdb:    p.Redis,
		limit:  limit,
		window: window,
	}
}

// Allow counts the actor's calls in the current fixed window.
func (l *RedisLimiter) Allow(ctx context.Context, actorID string) (bool, error) {
	key := rediskey.BuildActorRateKey(actorID, WindowStart(time.Now(), l.window))

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		_ = l.rdb.Expire(ctx, key, l.window*2).Err()
	}

	return count <= l.limit, nil
}

// WindowStart returns the unix second the fixed window containing now began.
func WindowStart(now time.Time, window time.Duration) int64 {
	return now.Truncate(window).Unix()
}

type nopLimiter struct{}

func (nopLimiter) Allow(ctx context.Context, actorID string) (bool, error) {
	return true, nil
}
