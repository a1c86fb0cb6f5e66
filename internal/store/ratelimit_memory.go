package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"
)

// RateLimitMemoryStore keeps a log of request times per key, oldest first.
// It implements ratelimit.Store for a single process.
type RateLimitMemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

// WithClock replaces the time source.
func (s *RateLimitMemoryStore) WithClock(now func() time.Time) *RateLimitMemoryStore {
	s.now = now

	return s
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hits := append(expire(s.hits[key], now.Add(-window)), now)
	s.hits[key] = hits

	return int64(len(hits)), nil
}

// Sweep forgets keys whose latest request is older than idle and returns
// how many were dropped.
func (s *RateLimitMemoryStore) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	before := len(s.hits)

	maps.DeleteFunc(s.hits, func(_ string, hits []time.Time) bool {
		return len(hits) == 0 || !hits[len(hits)-1].After(cutoff)
	})

	return before - len(s.hits)
}

// Len is the number of tracked keys.
func (s *RateLimitMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.hits)
}

// expire removes the hits at or before cutoff in place.
func expire(hits []time.Time, cutoff time.Time) []time.Time {
	n := sort.Search(len(hits), func(i int) bool { return hits[i].After(cutoff) })

	return slices.Delete(hits, 0, n)
}
