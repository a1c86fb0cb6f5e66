package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the outcome of a successful register or login.
type Session struct {
	User    *User
	Access  SignedToken
	Refresh SignedToken
}

// RegisterInput carries the fields of a registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Service registers users, authenticates them and manages their tokens.
type Service struct {
	users   UserRepository
	refresh RefreshTokenRepository
	hasher  Hasher
	tokens  *Tokens
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates an auth service.
func NewService(
	users UserRepository,
	refresh RefreshTokenRepository,
	hasher Hasher,
	tokens *Tokens,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:   users,
		refresh: refresh,
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now

	return s
}

// Tokens returns the token service, used by the HTTP layer for cookie lifetimes.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Register creates an account and opens a session for it.
//
// Email uniqueness is checked with a scan before the insert, so two
// concurrent registrations of one email can both succeed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	if len(in.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))

	return s.openSession(ctx, user)
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	// No stored hash can match a password bcrypt refuses to hash.
	if len(password) > MaxPasswordBytes {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

func (s *Service) openSession(ctx context.Context, user *User) (*Session, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	tokenID := uuid.NewString()

	refresh, err := s.tokens.IssueRefresh(user.ID, tokenID)
	if err != nil {
		return nil, err
	}

	record := &RefreshTokenRecord{
		UserID:    user.ID,
		TokenID:   tokenID,
		CreatedAt: s.now().UTC(),
		ExpiresAt: refresh.ExpiresAt.UTC(),
	}

	if err := s.refresh.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &Session{User: user, Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid, unrevoked refresh token for a new access token.
// The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (SignedToken, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return SignedToken{}, err
	}

	record, err := s.refresh.Get(ctx, claims.Subject, claims.TokenID)
	if errors.Is(err, ErrTokenNotFound) {
		return SignedToken{}, fmt.Errorf("%w: refresh token revoked", ErrUnauthorized)
	}

	if err != nil {
		return SignedToken{}, fmt.Errorf("load refresh token: %w", err)
	}

	if !record.ExpiresAt.After(s.now()) {
		return SignedToken{}, fmt.Errorf("%w: refresh token expired", ErrUnauthorized)
	}

	user, err := s.users.Get(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return SignedToken{}, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
	}

	if err != nil {
		return SignedToken{}, fmt.Errorf("load user: %w", err)
	}

	return s.tokens.IssueAccess(user.ID, user.Email)
}

// Logout revokes the refresh token when it can be verified. Failures are
// logged and never returned: the caller clears its cookies regardless.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Debug("logout with unverifiable refresh token", zap.Error(err))

		return
	}

	if err := s.refresh.Delete(ctx, claims.Subject, claims.TokenID); err != nil {
		s.logger.Warn("failed to revoke refresh token",
			zap.String("user_id", claims.Subject), zap.Error(err))
	}
}

// Authenticate verifies an access token and returns the caller it names.
func (s *Service) Authenticate(accessToken string) (*Identity, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Me loads the account of an authenticated caller.
func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	return user, nil
}
