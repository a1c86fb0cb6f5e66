package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitRedisStore keeps one sorted set per key, scored by request time in
// milliseconds, so limits are shared across server instances.
type RateLimitRedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRateLimitRedisStore creates a Redis-backed rate limit store.
func NewRateLimitRedisStore(client redis.UniversalClient, prefix string) *RateLimitRedisStore {
	return &RateLimitRedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RateLimitRedisStore) Record(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := s.now()
	k := s.prefix + key
	cutoff := now.Add(-window).UnixMilli()

	var card *redis.IntCmd

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
		card = pipe.ZCard(ctx, k)
		pipe.PExpire(ctx, k, window)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record rate limit hit: %w", err)
	}

	return card.Val(), nil
}
