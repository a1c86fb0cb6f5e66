package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/ratelimit"
)

var shortenLimits = ratelimit.EndpointConfig{
	Limits: []ratelimit.LimitConfig{
		{Window: time.Minute, Max: 10},
		{Window: time.Hour, Max: 100},
		{Window: 24 * time.Hour, Max: 500},
	},
}

// RegisterRoutes registers the link routes.
func RegisterRoutes(api huma.API, links *LinkHandler) {
	for _, path := range []string{"/api/shorten", "/shorten"} {
		opID := "shorten"
		if path == "/shorten" {
			opID = "shorten-legacy"
		}

		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     "Create short URL",
			Description: "Creates a short link. Signed-in callers may choose the alias and own the link.",
			Tags:        []string{"URLs"},
			Metadata: map[string]any{
				auth.MetadataKey:      auth.GateOptional,
				ratelimit.MetadataKey: shortenLimits,
			},
		}, links.Shorten)
	}

	huma.Register(api, huma.Operation{
		OperationID: "history",
		Method:      http.MethodGet,
		Path:        "/api/history",
		Summary:     "List own links",
		Tags:        []string{"URLs"},
		Metadata:    map[string]any{auth.MetadataKey: auth.GateRequired},
	}, links.History)

	huma.Register(api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        "/api/stats/{alias}",
		Summary:     "Link analytics",
		Description: "Aggregates the recorded clicks of a link owned by the caller.",
		Tags:        []string{"Analytics"},
		Metadata: map[string]any{
			auth.MetadataKey:      auth.GateRequired,
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeRead},
		},
	}, links.Stats)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{alias}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the long URL and records the click.",
		Tags:        []string{"URLs"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{{Window: time.Minute, Max: 1000}},
			},
		},
	}, links.Redirect)
}

// RegisterAuthRoutes registers the account routes. limit runs before each
// of them, in addition to the API-wide middlewares.
func RegisterAuthRoutes(api huma.API, accounts *AuthHandler, limit huma.Middlewares) {
	post := func(opID, path, summary string, gate auth.Gate) huma.Operation {
		return huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     summary,
			Tags:        []string{"Auth"},
			Middlewares: limit,
			Metadata:    map[string]any{auth.MetadataKey: gate},
		}
	}

	huma.Register(api, post("register", "/api/auth/register", "Create an account", auth.GateNone), accounts.Register)
	huma.Register(api, post("login", "/api/auth/login", "Sign in", auth.GateNone), accounts.Login)
	huma.Register(api, post("refresh", "/api/auth/refresh", "Renew the access token", auth.GateNone), accounts.Refresh)
	huma.Register(api, post("logout", "/api/auth/logout", "Sign out", auth.GateNone), accounts.Logout)

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/api/auth/me",
		Summary:     "Current user",
		Tags:        []string{"Auth"},
		Metadata:    map[string]any{auth.MetadataKey: auth.GateRequired},
	}, accounts.Me)
}
