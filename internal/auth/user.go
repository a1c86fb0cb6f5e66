package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTokenNotFound      = errors.New("refresh token not found")

	ErrMissingFields   = fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	ErrPasswordTooLong = fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, MaxPasswordBytes)
)

// User is a registered account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is the authenticated caller extracted from an access token.
type Identity struct {
	UserID string
	Email  string
}

// RefreshTokenRecord tracks an issued refresh token so it can be revoked.
type RefreshTokenRecord struct {
	UserID    string
	TokenID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	// Get returns ErrUserNotFound when no user has the id.
	Get(ctx context.Context, id string) (*User, error)
	// FindByEmail scans for a user with the exact email. ErrUserNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// RefreshTokenRepository persists refresh token records.
type RefreshTokenRepository interface {
	Save(ctx context.Context, record *RefreshTokenRecord) error
	// Get returns ErrTokenNotFound when the record does not exist.
	Get(ctx context.Context, userID, tokenID string) (*RefreshTokenRecord, error)
	// Delete is idempotent.
	Delete(ctx context.Context, userID, tokenID string) error
}
