package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/serroba/shortlinks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

type failingStore struct{}

func (failingStore) Record(context.Context, string, time.Duration) (int64, error) {
	return 0, errStoreDown
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("denies the request past the limit", func(t *testing.T) {
		limiter := ratelimit.NewSlidingWindowLimiter(store.NewRateLimitMemoryStore(), 3, time.Minute)

		for range 3 {
			allowed, err := limiter.Allow(ctx, "ann")
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := limiter.Allow(ctx, "ann")
		require.NoError(t, err)
		assert.False(t, allowed)

		allowed, err = limiter.Allow(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, allowed, "other keys keep their own budget")
	})

	t.Run("window slides", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		memory := store.NewRateLimitMemoryStore().WithClock(func() time.Time { return now })
		limiter := ratelimit.NewSlidingWindowLimiter(memory, 2, time.Minute)

		for range 2 {
			allowed, _ := limiter.Allow(ctx, "ann")
			assert.True(t, allowed)
		}

		allowed, _ := limiter.Allow(ctx, "ann")
		assert.False(t, allowed)

		now = now.Add(61 * time.Second)

		allowed, err := limiter.Allow(ctx, "ann")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("store error", func(t *testing.T) {
		limiter := ratelimit.NewSlidingWindowLimiter(failingStore{}, 3, time.Minute)

		allowed, err := limiter.Allow(ctx, "ann")
		assert.ErrorIs(t, err, errStoreDown)
		assert.False(t, allowed)
	})
}
