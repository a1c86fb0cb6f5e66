package ratelimit

import (
	"context"
	"time"
)

// Store counts requests per key over a sliding window.
type Store interface {
	// Record adds a request to key and returns how many requests key has
	// seen within window, this one included.
	Record(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter decides whether one more request from key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SlidingWindowLimiter admits at most limit requests per key in any window.
// Counters live in the Store, so replicas sharing a Store share limits.
type SlidingWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
}

func NewSlidingWindowLimiter(store Store, limit int64, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{store: store, limit: limit, window: window}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Record(ctx, key, l.window)
	if err != nil {
		return false, err
	}

	return count <= l.limit, nil
}
