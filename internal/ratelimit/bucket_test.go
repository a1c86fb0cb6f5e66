package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTokenBucketLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows burst then denies", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		limiter := ratelimit.NewTokenBucketLimiter(1, 3).WithClock(clock.Now)

		for range 3 {
			allowed, err := limiter.Allow(ctx, "client1")
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := limiter.Allow(ctx, "client1")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("refills over time", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		limiter := ratelimit.NewTokenBucketLimiter(2, 1).WithClock(clock.Now)

		allowed, _ := limiter.Allow(ctx, "client1")
		assert.True(t, allowed)

		allowed, _ = limiter.Allow(ctx, "client1")
		assert.False(t, allowed)

		clock.Advance(500 * time.Millisecond)

		allowed, _ = limiter.Allow(ctx, "client1")
		assert.True(t, allowed)
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		limiter := ratelimit.NewTokenBucketLimiter(1, 1)

		allowed, _ := limiter.Allow(ctx, "client1")
		assert.True(t, allowed)

		allowed, _ = limiter.Allow(ctx, "client2")
		assert.True(t, allowed)
		assert.Equal(t, 2, limiter.Len())
	})

	t.Run("prunes idle clients", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		limiter := ratelimit.NewTokenBucketLimiter(1, 1).WithClock(clock.Now)

		_, _ = limiter.Allow(ctx, "old")
		clock.Advance(time.Hour)
		_, _ = limiter.Allow(ctx, "fresh")

		removed := limiter.Prune(ratelimit.DefaultIdleTimeout)

		assert.Equal(t, 1, removed)
		assert.Equal(t, 1, limiter.Len())
	})

	t.Run("cleanup loop stops with context", func(t *testing.T) {
		limiter := ratelimit.NewTokenBucketLimiter(1, 1)
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})

		go func() {
			limiter.RunCleanup(runCtx, time.Millisecond, time.Minute)
			close(done)
		}()

		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("cleanup loop did not stop")
		}
	})
}
