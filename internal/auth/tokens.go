package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AccessClaims identify the caller on every authenticated request.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims point at a server-side RefreshTokenRecord.
type RefreshClaims struct {
	TokenID string `json:"tid"`
	jwt.RegisteredClaims
}

// SignedToken is an encoded token and the instant it stops being valid.
type SignedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenConfig holds the signing secrets and lifetimes. Access and refresh
// tokens use independent secrets.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Tokens signs and verifies HS256 access and refresh tokens.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokens creates a token service. Zero lifetimes use the defaults.
func NewTokens(cfg TokenConfig) *Tokens {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}

	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	return &Tokens{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying. Intended for tests.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now

	return t
}

// AccessTTL returns the access token lifetime.
func (t *Tokens) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (t *Tokens) RefreshTTL() time.Duration { return t.refreshTTL }

// IssueAccess signs an access token for the user.
func (t *Tokens) IssueAccess(userID, email string) (SignedToken, error) {
	now := t.now()
	expires := now.Add(t.accessTTL)

	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	return t.sign(claims, t.accessSecret, expires)
}

// IssueRefresh signs a refresh token referencing tokenID.
func (t *Tokens) IssueRefresh(userID, tokenID string) (SignedToken, error) {
	now := t.now()
	expires := now.Add(t.refreshTTL)

	claims := RefreshClaims{
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	return t.sign(claims, t.refreshSecret, expires)
}

func (t *Tokens) sign(claims jwt.Claims, secret []byte, expires time.Time) (SignedToken, error) {
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return SignedToken{}, fmt.Errorf("sign token: %w", err)
	}

	return SignedToken{Value: value, ExpiresAt: expires}, nil
}

// VerifyAccess checks signature and expiry of an access token.
func (t *Tokens) VerifyAccess(value string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.parse(value, claims, t.accessSecret); err != nil {
		return nil, err
	}

	return claims, nil
}

// VerifyRefresh checks signature and expiry of a refresh token.
func (t *Tokens) VerifyRefresh(value string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(value, claims, t.refreshSecret); err != nil {
		return nil, err
	}

	if claims.TokenID == "" {
		return nil, fmt.Errorf("%w: refresh token without id", ErrUnauthorized)
	}

	return claims, nil
}

func (t *Tokens) parse(value string, claims jwt.Claims, secret []byte) error {
	if value == "" {
		return fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	_, err := jwt.ParseWithClaims(value, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return errors.Join(ErrUnauthorized, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return fmt.Errorf("%w: token without subject", ErrUnauthorized)
	}

	return nil
}
