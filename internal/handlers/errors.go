package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/shortener"
	"go.uber.org/zap"
)

// linkError maps link registry errors to HTTP errors. Unknown errors are
// logged and reported without detail.
func linkError(logger *zap.Logger, op string, err error) error {
	switch {
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("URL not found")
	case errors.Is(err, shortener.ErrExpired):
		return huma.Error410Gone("URL expired")
	case errors.Is(err, shortener.ErrAliasTaken):
		return huma.Error409Conflict("alias already in use")
	case errors.Is(err, shortener.ErrInvalidURL):
		return huma.Error400BadRequest("invalid URL format")
	case errors.Is(err, shortener.ErrInvalidAlias):
		return huma.Error400BadRequest(err.Error())
	}

	logger.Error(op+" failed", zap.Error(err))

	return huma.Error500InternalServerError("server error")
}

// authError maps auth service errors to HTTP errors.
func authError(logger *zap.Logger, op string, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		return huma.Error409Conflict("user already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return huma.Error401Unauthorized("invalid credentials")
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrUserNotFound):
		return huma.Error401Unauthorized("unauthorized")
	}

	logger.Error(op+" failed", zap.Error(err))

	return huma.Error500InternalServerError("server error")
}
