package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/auth"
	"go.uber.org/zap"
)

// Session cookie names.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// CookieConfig controls the attributes of session cookies.
type CookieConfig struct {
	Secure bool
	Domain string
}

// AuthHandler serves the account and session endpoints.
type AuthHandler struct {
	service *auth.Service
	cookies CookieConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(service *auth.Service, cookies CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookies: cookies,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *AuthHandler) cookie(name, value string, expires time.Time) http.Cookie {
	maxAge := int(expires.Sub(h.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}

	return http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) cleared(name string) http.Cookie {
	return http.Cookie{
		Name:     name,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) sessionResponse(session *auth.Session) *SessionResponse {
	resp := &SessionResponse{
		SetCookie: []http.Cookie{
			h.cookie(AccessCookie, session.Access.Value, session.Access.ExpiresAt),
			h.cookie(RefreshCookie, session.Refresh.Value, session.Refresh.ExpiresAt),
		},
	}
	resp.Body.OK = true
	resp.Body.User = toUserView(session.User)

	return resp
}

func toUserView(u *auth.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, Name: u.Name}
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(ctx context.Context, req *RegisterRequest) (*SessionResponse, error) {
	session, err := h.service.Register(ctx, auth.RegisterInput{
		Email:    req.Body.Email,
		Password: req.Body.Password,
		Name:     req.Body.Name,
	})
	if err != nil {
		return nil, authError(h.logger, "register", err)
	}

	return h.sessionResponse(session), nil
}

// Login signs an existing account in.
func (h *AuthHandler) Login(ctx context.Context, req *LoginRequest) (*SessionResponse, error) {
	session, err := h.service.Login(ctx, req.Body.Email, req.Body.Password)
	if err != nil {
		return nil, authError(h.logger, "login", err)
	}

	return h.sessionResponse(session), nil
}

// Refresh issues a new access cookie from the refresh cookie.
func (h *AuthHandler) Refresh(ctx context.Context, req *RefreshRequest) (*OKResponse, error) {
	if req.RefreshToken == "" {
		return nil, huma.Error401Unauthorized("refresh token missing")
	}

	access, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, authError(h.logger, "refresh", err)
	}

	resp := &OKResponse{SetCookie: []http.Cookie{h.cookie(AccessCookie, access.Value, access.ExpiresAt)}}
	resp.Body.OK = true

	return resp, nil
}

// Logout revokes the refresh token when possible and always clears both cookies.
func (h *AuthHandler) Logout(ctx context.Context, req *LogoutRequest) (*OKResponse, error) {
	h.service.Logout(ctx, req.RefreshToken)

	resp := &OKResponse{SetCookie: []http.Cookie{h.cleared(AccessCookie), h.cleared(RefreshCookie)}}
	resp.Body.OK = true

	return resp, nil
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(ctx context.Context, _ *struct{}) (*MeResponse, error) {
	id := auth.IdentityFrom(ctx)
	if id == nil {
		return nil, huma.Error401Unauthorized("access token missing")
	}

	user, err := h.service.Me(ctx, id.UserID)
	if err != nil {
		return nil, authError(h.logger, "me", err)
	}

	resp := &MeResponse{}
	resp.Body.User = toUserView(user)

	return resp, nil
}
