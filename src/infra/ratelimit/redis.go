// Package ratelimit implements per-user request budgets.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scholarduel/src/core/ports"
	"scholarduel/src/infra/config"
)

// Redis is a fixed-window counter shared by every instance.
type Redis struct {
	rdb *redis.Client
}

var _ ports.RateLimiter = (*Redis)(nil)

// NewRedis connects to cfg.Addr and pings it.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Redis{rdb: rdb}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// Allow counts one hit against key. The window starts at the first hit.
// A counter left without a TTL by an earlier failed EXPIRE gets one on the
// next hit.
func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := "rate:" + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	}); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}

	if missingWindow(ttl.Val()) {
		if err := r.rdb.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("rate limit %s: set window: %w", key, err)
		}
	}
	return incr.Val() <= int64(limit), nil
}

// missingWindow reports whether a TTL reply means the key never expires.
// Redis answers -1 for a key without TTL.
func missingWindow(ttl time.Duration) bool {
	return ttl < 0
}

// Health pings the server.
func (r *Redis) Health(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
