package floodguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisLimiter is a Redis-backed Limiter for multi-instance deployments.
// Counters live under "floodguard:{sessionID}" keys with the window as TTL,
// so every server instance sees the same per-session rate.
type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a Limiter that keeps its per-session counters in
// Redis, allowing up to limit messages per window across all server
// instances sharing the same Redis.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	limiter := floodguard.NewRedisLimiter(client, 10, time.Second)
//
// Parameters:
//   - client: The Redis client to use
//   - limit: Maximum messages per window; values < 1 are treated as 1
//   - window: Length of the rate window
//
// Returns:
//   - A Limiter backed by Redis
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) Limiter {
	if limit < 1 {
		limit = 1
	}

	return &redisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow implements Limiter. INCR and EXPIRE run in one pipeline; the TTL is
// (re)set only when the counter is created, keeping the window anchored to
// the first message in it.
func (l *redisLimiter) Allow(ctx context.Context, sessionID string) (bool, error) {
	key := fmt.Sprintf("floodguard:%s", sessionID)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("floodguard redis: %w", err)
	}

	return incr.Val() <= int64(l.limit), nil
}
