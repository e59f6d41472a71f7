package ports

import (
	"context"
	"time"
)

// RateLimiter counts events in a fixed window. Allow reports whether the
// event identified by key is still inside the limit; the count is
// incremented on every call, matching a fixed-window counter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
