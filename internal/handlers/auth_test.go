package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/serroba/shortlinks/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionBody struct {
	OK   bool `json:"ok"`
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

func cookiesByName(cookies []*http.Cookie) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c
	}

	return out
}

func TestRegister(t *testing.T) {
	t.Run("creates the account and sets session cookies", func(t *testing.T) {
		srv := newTestServer(t)

		resp := srv.api.Post("/api/auth/register", map[string]any{
			"email":    " ann@example.com ",
			"password": "secret",
			"name":     "Ann",
		})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		body := decode[sessionBody](t, resp.Body.Bytes())
		assert.True(t, body.OK)
		assert.NotEmpty(t, body.User.ID)
		assert.Equal(t, "ann@example.com", body.User.Email)
		assert.Equal(t, "Ann", body.User.Name)

		cookies := cookiesByName(resp.Result().Cookies())
		for _, name := range []string{handlers.AccessCookie, handlers.RefreshCookie} {
			c, ok := cookies[name]
			require.True(t, ok, name)
			assert.NotEmpty(t, c.Value)
			assert.True(t, c.HttpOnly)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
			assert.Equal(t, "/", c.Path)
			assert.Positive(t, c.MaxAge)
		}

		assert.Greater(t, cookies[handlers.RefreshCookie].MaxAge, cookies[handlers.AccessCookie].MaxAge)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		srv := newTestServer(t)
		srv.signUp(t, "ann@example.com")

		resp := srv.api.Post("/api/auth/register", map[string]any{"email": "ann@example.com", "password": "other"})

		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		srv := newTestServer(t)

		for _, body := range []map[string]any{
			{},
			{"email": "ann@example.com"},
			{"password": "secret"},
			{"email": "   ", "password": "secret"},
		} {
			resp := srv.api.Post("/api/auth/register", body)
			assert.Equal(t, http.StatusBadRequest, resp.Code, body)
		}
	})

	t.Run("password longer than 72 bytes is rejected", func(t *testing.T) {
		srv := newTestServer(t)

		resp := srv.api.Post("/api/auth/register", map[string]any{
			"email":    "long@example.com",
			"password": strings.Repeat("a", 80),
		})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "at most 72 bytes")
	})
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	srv.signUp(t, "ann@example.com")

	t.Run("valid credentials", func(t *testing.T) {
		resp := srv.api.Post("/api/auth/login", map[string]any{"email": "ann@example.com", "password": "pw"})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "ann@example.com", decode[sessionBody](t, resp.Body.Bytes()).User.Email)
		assert.Len(t, resp.Result().Cookies(), 2)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := srv.api.Post("/api/auth/login", map[string]any{"email": "ann@example.com", "password": "nope"})
		unknown := srv.api.Post("/api/auth/login", map[string]any{"email": "bob@example.com", "password": "pw"})

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Contains(t, wrong.Body.String(), "invalid credentials")
		assert.Contains(t, unknown.Body.String(), "invalid credentials")
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := srv.api.Post("/api/auth/login", map[string]any{"email": "ann@example.com"})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("oversized password is unauthorized", func(t *testing.T) {
		resp := srv.api.Post("/api/auth/login", map[string]any{
			"email":    "ann@example.com",
			"password": strings.Repeat("a", 80),
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestRefresh(t *testing.T) {
	srv := newTestServer(t)
	cookies := srv.signUp(t, "ann@example.com")

	t.Run("without cookie", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, srv.api.Post("/api/auth/refresh").Code)
	})

	t.Run("with a garbage cookie", func(t *testing.T) {
		resp := srv.api.Post("/api/auth/refresh", "Cookie: refresh_token=garbage")

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		login := srv.api.Post("/api/auth/login", map[string]any{"email": "ann@example.com", "password": "pw"})
		access := cookiesByName(login.Result().Cookies())[handlers.AccessCookie]

		resp := srv.api.Post("/api/auth/refresh", "Cookie: refresh_token="+access.Value)

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("issues a new access cookie only", func(t *testing.T) {
		resp := srv.api.Post("/api/auth/refresh", cookies)

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		issued := cookiesByName(resp.Result().Cookies())
		assert.Contains(t, issued, handlers.AccessCookie)
		assert.NotContains(t, issued, handlers.RefreshCookie)

		me := srv.api.Get("/api/auth/me", "Cookie: access_token="+issued[handlers.AccessCookie].Value)
		assert.Equal(t, http.StatusOK, me.Code)
	})
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t)
	cookies := srv.signUp(t, "ann@example.com")

	resp := srv.api.Post("/api/auth/logout", cookies)

	require.Equal(t, http.StatusOK, resp.Code)

	cleared := cookiesByName(resp.Result().Cookies())
	for _, name := range []string{handlers.AccessCookie, handlers.RefreshCookie} {
		c, ok := cleared[name]
		require.True(t, ok, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}

	t.Run("refresh token is revoked", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, srv.api.Post("/api/auth/refresh", cookies).Code)
	})

	t.Run("logout without a session still succeeds", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, srv.api.Post("/api/auth/logout").Code)
	})
}

func TestMe(t *testing.T) {
	srv := newTestServer(t)
	cookies := srv.signUp(t, "ann@example.com")

	t.Run("signed in", func(t *testing.T) {
		resp := srv.api.Get("/api/auth/me", cookies)

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"email":"ann@example.com"`)
	})

	t.Run("anonymous", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, srv.api.Get("/api/auth/me").Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		resp := srv.api.Get("/api/auth/me", "Cookie: access_token=abc.def.ghi")

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
