// Package redis holds the Redis-backed rate limiter used to throttle SMS
// sends across service instances.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trust-service/internal/core/ports"
)

// NewClient connects and pings within a short deadline so a dead Redis
// fails startup instead of the first request.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RateLimiter is a fixed-window counter: INCR plus EXPIRE NX, pipelined so
// both land in one round trip. The TTL is only set on the first hit, which
// anchors the window at the first request.
type RateLimiter struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRateLimiter(client *redis.Client, baseLogger *zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		log:    baseLogger.With().Str("component", "rate_limiter").Logger(),
	}
}

var _ ports.RateLimiter = (*RateLimiter)(nil)

func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}

	count := incr.Val()
	if count > int64(limit) {
		l.log.Warn().Str("key", key).Int64("count", count).Msg("Rate limit exceeded")
		return false, nil
	}
	return true, nil
}
