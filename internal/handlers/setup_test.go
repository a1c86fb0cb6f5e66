package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/jaevor/go-nanoid"
	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/geo"
	"github.com/serroba/shortlinks/internal/handlers"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/middleware"
	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/store"
	"github.com/serroba/shortlinks/internal/tablestore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testBaseURL = "http://short.test"

type testServer struct {
	api     humatest.TestAPI
	links   *store.LinkRepository
	clicks  *store.ClickRepository
	created []*analytics.LinkCreatedEvent
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	backend := tablestore.NewMemory()
	srv := &testServer{
		links:  store.NewLinkRepository(backend.Table("links")),
		clicks: store.NewClickRepository(backend.Table("clicks")),
	}

	gen, err := nanoid.Standard(6)
	require.NoError(t, err)

	registry := shortener.NewRegistry(srv.links, shortener.NewAllocator(srv.links, gen, 5))
	recorder := analytics.NewRecorder(srv.clicks, geo.Disabled{}, messaging.Discard[analytics.LinkClickedEvent](), zap.NewNop())
	aggregator := analytics.NewAggregator(srv.clicks)

	authService := auth.NewService(
		store.NewUserRepository(backend.Table("users")),
		store.NewRefreshTokenRepository(backend.Table("tokens")),
		auth.NewBcryptHasher(bcrypt.MinCost),
		auth.NewTokens(auth.TokenConfig{AccessSecret: "test-access", RefreshSecret: "test-refresh"}),
		zap.NewNop(),
	)

	publishCreated := func(_ context.Context, e *analytics.LinkCreatedEvent) error {
		srv.created = append(srv.created, e)

		return nil
	}

	_, api := humatest.New(t)
	api.UseMiddleware(middleware.Visitor(api))
	api.UseMiddleware(middleware.Authenticate(api, authService, zap.NewNop()))

	handlers.RegisterRoutes(api, handlers.NewLinkHandler(registry, recorder, aggregator, testBaseURL, publishCreated, zap.NewNop()))
	handlers.RegisterAuthRoutes(api, handlers.NewAuthHandler(authService, handlers.CookieConfig{}, zap.NewNop()), nil)

	srv.api = api

	return srv
}

// signUp registers an account and returns a Cookie header carrying its session.
func (s *testServer) signUp(t *testing.T, email string) string {
	t.Helper()

	resp := s.api.Post("/api/auth/register", map[string]any{"email": email, "password": "pw", "name": "Test"})
	require.Equal(t, 200, resp.Code, resp.Body.String())

	return cookieHeader(resp.Result().Cookies())
}

func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Value != "" {
			parts = append(parts, c.Name+"="+c.Value)
		}
	}

	return "Cookie: " + strings.Join(parts, "; ")
}
