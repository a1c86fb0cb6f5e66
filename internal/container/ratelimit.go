package container

import (
	"context"
	"time"

	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/serroba/shortlinks/internal/store"
)

const (
	// sweepWindow is the longest window any limit uses.
	sweepWindow   = 24 * time.Hour
	sweepInterval = time.Minute
)

// AuthLimiter guards the auth endpoints per client: a token bucket in a
// single process, a sliding window over the shared store with redis.
type AuthLimiter struct {
	ratelimit.Limiter
	stop func()
}

func (l *AuthLimiter) Shutdown() error {
	l.stop()

	return nil
}

// sweptMemoryStore drops idle keys of the in-memory store in the background.
type sweptMemoryStore struct {
	*store.RateLimitMemoryStore
	stop func()
}

func (s *sweptMemoryStore) Shutdown() error {
	s.stop()

	return nil
}

// RateLimitPackage provides the sliding window policy limiter and the auth
// token bucket. Counters live in redis when it is configured, so every
// replica shares them.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.RedisAddr != "" {
			client, err := do.Invoke[*RedisClient](i)
			if err != nil {
				return nil, err
			}

			return store.NewRateLimitRedisStore(client.Client, opts.KeyPrefix+":ratelimit"), nil
		}

		memory := store.NewRateLimitMemoryStore()
		stop := runUntilStopped(func(ctx context.Context) {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					memory.Sweep(sweepWindow)
				}
			}
		})

		return &sweptMemoryStore{RateLimitMemoryStore: memory, stop: stop}, nil
	})

	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		rateStore, err := do.Invoke[ratelimit.Store](i)
		if err != nil {
			return nil, err
		}

		return ratelimit.NewPolicyLimiter(rateStore, ratelimit.DefaultPolicy()), nil
	})

	do.Provide(i, func(i *do.Injector) (*AuthLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.RedisAddr != "" {
			rateStore, err := do.Invoke[ratelimit.Store](i)
			if err != nil {
				return nil, err
			}

			limit := int64(opts.AuthRatePerMinute)
			window := ratelimit.NewSlidingWindowLimiter(rateStore, limit, time.Minute)

			return &AuthLimiter{Limiter: window, stop: func() {}}, nil
		}

		bucket := ratelimit.NewTokenBucketLimiter(float64(opts.AuthRatePerMinute)/60, opts.AuthBurst)
		stop := runUntilStopped(func(ctx context.Context) {
			bucket.RunCleanup(ctx, sweepInterval, ratelimit.DefaultIdleTimeout)
		})

		return &AuthLimiter{Limiter: bucket, stop: stop}, nil
	})
}

// runUntilStopped runs fn in a goroutine. The returned stop cancels it and
// waits for it to return.
func runUntilStopped(fn func(ctx context.Context)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		fn(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}
