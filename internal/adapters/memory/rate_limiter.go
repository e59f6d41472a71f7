package memory

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count    int
	resetsAt time.Time
}

// RateLimiter is a fixed-window in-process counter with the same semantics
// as the Redis adapter. It serves the dev store driver and tests.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]window
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]window)}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, windowSize time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetsAt) {
		w = window{resetsAt: now.Add(windowSize)}
	}
	w.count++
	l.windows[key] = w
	return w.count <= limit, nil
}
