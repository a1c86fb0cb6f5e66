package container

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/geo"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/store"
	"go.uber.org/zap"
)

// DomainPackage provides the link registry, click recorder and aggregator.
func DomainPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (geo.Lookup, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.GeoURL == "" {
			return geo.Disabled{}, nil
		}

		return geo.NewHTTPLookup(opts.GeoURL, opts.GeoTimeout()), nil
	})

	do.Provide(i, func(i *do.Injector) (*shortener.Registry, error) {
		opts := do.MustInvoke[*Options](i)

		links, err := do.Invoke[*store.LinkRepository](i)
		if err != nil {
			return nil, err
		}

		generate, err := nanoid.Standard(opts.AliasLength)
		if err != nil {
			return nil, fmt.Errorf("alias generator: %w", err)
		}

		allocator := shortener.NewAllocator(links, generate, shortener.DefaultMaxAttempts)

		return shortener.NewRegistry(links, allocator), nil
	})

	do.Provide(i, func(i *do.Injector) (*analytics.Recorder, error) {
		clicks, err := do.Invoke[*store.ClickRepository](i)
		if err != nil {
			return nil, err
		}

		lookup, err := do.Invoke[geo.Lookup](i)
		if err != nil {
			return nil, err
		}

		publish, err := do.Invoke[messaging.Publish[analytics.LinkClickedEvent]](i)
		if err != nil {
			return nil, err
		}

		return analytics.NewRecorder(clicks, lookup, publish, do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (*analytics.Aggregator, error) {
		clicks, err := do.Invoke[*store.ClickRepository](i)
		if err != nil {
			return nil, err
		}

		return analytics.NewAggregator(clicks), nil
	})
}

// AuthPackage provides the credential and token service.
func AuthPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*auth.Service, error) {
		opts := do.MustInvoke[*Options](i)

		users, err := do.Invoke[*store.UserRepository](i)
		if err != nil {
			return nil, err
		}

		refresh, err := do.Invoke[*store.RefreshTokenRepository](i)
		if err != nil {
			return nil, err
		}

		tokens := auth.NewTokens(auth.TokenConfig{
			AccessSecret:  opts.JWTSecret,
			RefreshSecret: opts.JWTRefreshSecret,
			AccessTTL:     opts.AccessTTL(),
			RefreshTTL:    opts.RefreshTTL(),
		})

		return auth.NewService(users, refresh, auth.NewBcryptHasher(opts.BcryptCost), tokens, do.MustInvoke[*zap.Logger](i)), nil
	})
}
