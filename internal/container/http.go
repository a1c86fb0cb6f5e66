package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/handlers"
	"github.com/serroba/shortlinks/internal/health"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/middleware"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/tablestore"
	"go.uber.org/zap"
)

// HTTPPackage provides the chi router and the huma API with every route
// registered. Invoking huma.API triggers the whole dependency graph.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		links, err := newLinkHandler(i, opts, logger)
		if err != nil {
			return nil, err
		}

		accounts, err := do.Invoke[*auth.Service](i)
		if err != nil {
			return nil, err
		}

		policy, err := do.Invoke[*ratelimit.PolicyLimiter](i)
		if err != nil {
			return nil, err
		}

		authLimiter, err := do.Invoke[*AuthLimiter](i)
		if err != nil {
			return nil, err
		}

		checks, err := healthCheckers(i, opts)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("Short Links", "1.0.0"))

		api.UseMiddleware(middleware.Visitor(api))
		api.UseMiddleware(middleware.AccessLog(logger))
		api.UseMiddleware(middleware.Authenticate(api, accounts, logger))
		api.UseMiddleware(middleware.PolicyRateLimiter(api, policy, logger))

		cookies := handlers.CookieConfig{Secure: opts.CookieSecure, Domain: opts.CookieDomain}

		handlers.RegisterRoutes(api, links)
		handlers.RegisterAuthRoutes(api,
			handlers.NewAuthHandler(accounts, cookies, logger),
			huma.Middlewares{middleware.RateLimiter(api, authLimiter)},
		)
		health.RegisterRoutes(api, health.NewHandler(checks, logger))

		return api, nil
	})
}

func newLinkHandler(i *do.Injector, opts *Options, logger *zap.Logger) (*handlers.LinkHandler, error) {
	registry, err := do.Invoke[*shortener.Registry](i)
	if err != nil {
		return nil, err
	}

	recorder, err := do.Invoke[*analytics.Recorder](i)
	if err != nil {
		return nil, err
	}

	aggregator, err := do.Invoke[*analytics.Aggregator](i)
	if err != nil {
		return nil, err
	}

	publishCreated, err := do.Invoke[messaging.Publish[analytics.LinkCreatedEvent]](i)
	if err != nil {
		return nil, err
	}

	return handlers.NewLinkHandler(registry, recorder, aggregator, opts.PublicBaseURL(), publishCreated, logger), nil
}

func healthCheckers(i *do.Injector, opts *Options) (map[string]health.Checker, error) {
	backend, err := do.Invoke[tablestore.Backend](i)
	if err != nil {
		return nil, err
	}

	checks := map[string]health.Checker{
		"store": health.CheckerFunc(backend.Ping),
	}

	if opts.RedisAddr != "" {
		client, err := do.Invoke[*RedisClient](i)
		if err != nil {
			return nil, err
		}

		checks["redis"] = health.RedisChecker(client.Client)
	}

	return checks, nil
}
