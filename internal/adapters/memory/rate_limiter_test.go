package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "sms:ip:1.2.3.4", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok, "request %d inside the budget", i+1)
	}

	ok, err := l.Allow(ctx, "sms:ip:1.2.3.4", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "fourth request exceeds the budget")

	// Other keys are unaffected.
	ok, err = l.Allow(ctx, "sms:ip:5.6.7.8", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter()

	for i := 0; i < 2; i++ {
		_, err := l.Allow(ctx, "k", 1, 10*time.Millisecond)
		require.NoError(t, err)
	}
	time.Sleep(20 * time.Millisecond)

	ok, err := l.Allow(ctx, "k", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok, "a fresh window starts counting from zero")
}

func TestRateLimiter_RejectedRequestsStillCount(t *testing.T) {
	ctx := context.Background()
	l := NewRateLimiter()

	// Overshoot the limit: the window keeps counting past it, so retries
	// inside the window never sneak through.
	for i := 0; i < 5; i++ {
		_, err := l.Allow(ctx, "k", 2, time.Hour)
		require.NoError(t, err)
	}
	ok, err := l.Allow(ctx, "k", 2, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}
