package middleware

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/auth"
	"go.uber.org/zap"
)

// AccessCookie carries the access token.
const AccessCookie = "access_token"

// Authenticator verifies access tokens.
type Authenticator interface {
	Authenticate(accessToken string) (*auth.Identity, error)
}

// Authenticate returns a Huma middleware that enforces the auth.Gate found
// in the operation metadata under auth.MetadataKey. Operations without a
// gate pass through untouched.
func Authenticate(
	api huma.API,
	authenticator Authenticator,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		gate := operationGate(ctx)
		if gate == auth.GateNone {
			next(ctx)

			return
		}

		var token string
		if cookie, err := huma.ReadCookie(ctx, AccessCookie); err == nil {
			token = cookie.Value
		}

		if token == "" {
			if gate == auth.GateRequired {
				_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "access token missing")

				return
			}

			next(ctx)

			return
		}

		identity, err := authenticator.Authenticate(token)
		if err != nil {
			logger.Debug("rejected access token",
				zap.String("path", operationPath(ctx)),
				zap.String("gate", gate.String()),
				zap.Error(err),
			)

			if gate == auth.GateRequired {
				_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid or expired token")

				return
			}

			next(ctx)

			return
		}

		next(huma.WithContext(ctx, auth.WithIdentity(ctx.Context(), identity)))
	}
}

func operationGate(ctx huma.Context) auth.Gate {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return auth.GateNone
	}

	gate, ok := op.Metadata[auth.MetadataKey].(auth.Gate)
	if !ok {
		return auth.GateNone
	}

	return gate
}
