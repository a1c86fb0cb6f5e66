package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"go.uber.org/zap"
)

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter rejects requests the limiter refuses for the calling client.
func RateLimiter(api huma.API, limiter ratelimit.Limiter) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		allowed, err := limiter.Allow(ctx.Context(), clientKey(ctx))
		if err != nil {
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !allowed {
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next(ctx)
	}
}

// PolicyRateLimiter applies the policy scopes of each request, or the
// route's own limits when its ratelimit.EndpointConfig defines some.
// Every limited response carries X-RateLimit-Limit and X-RateLimit-Remaining
// for the limit closest to exhaustion; rejections add Retry-After.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()

		cfg := ratelimit.ConfigOf(op)
		if cfg.Disabled {
			next(ctx)

			return
		}

		path := operationPath(ctx)
		client := clientKey(ctx)

		var (
			verdict ratelimit.Verdict
			err     error
		)

		if len(cfg.Limits) > 0 {
			verdict, err = limiter.CheckLimits(ctx.Context(), client, ctx.Method()+" "+path, cfg.Limits)
		} else {
			verdict, err = limiter.Check(ctx.Context(), client, ratelimit.ScopesFor(ctx.Method(), cfg))
		}

		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if verdict.Applied() {
			ctx.SetHeader(HeaderLimit, strconv.FormatInt(verdict.Limit.Max, 10))
			ctx.SetHeader(HeaderRemaining, strconv.FormatInt(verdict.Remaining(), 10))
		}

		if !verdict.Allowed {
			logger.Warn("rate limit exceeded",
				zap.String("path", path),
				zap.String("method", ctx.Method()),
				zap.String("scope", string(verdict.Scope)),
				zap.Int64("count", verdict.Count),
				zap.Int64("max", verdict.Limit.Max),
				zap.Duration("window", verdict.Limit.Window),
				zap.String("client_ip", clientIP(ctx)),
			)

			ctx.SetHeader(HeaderRetryAfter, strconv.Itoa(int(math.Ceil(verdict.Limit.Window.Seconds()))))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, fmt.Sprintf(
				"rate limit exceeded: %d requests per %s", verdict.Limit.Max, verdict.Limit.Window))

			return
		}

		next(ctx)
	}
}

// clientKey identifies the caller: the user id when signed in, otherwise a
// hash of client IP and User-Agent.
func clientKey(ctx huma.Context) string {
	if id := auth.IdentityFrom(ctx.Context()); id != nil {
		return "user:" + id.UserID
	}

	hash := sha256.Sum256([]byte(clientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return "anon:" + hex.EncodeToString(hash[:])
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}
