package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed window limiter whose counters live in Redis, so
// every proxy instance sharing the Redis sees the same budget.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:chat:",
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := rl.windowKey(key, time.Now())

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}

	return incr.Val() <= int64(rl.limit), nil
}

func (rl *RedisLimiter) windowKey(key string, now time.Time) string {
	slot := now.UnixNano() / int64(rl.window)
	return fmt.Sprintf("%s%s:%d", rl.prefix, key, slot)
}
