package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/handlers"
)

// Visitor stores the caller's address, User-Agent and Referer in the request
// context for click recording and link creation events.
func Visitor(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		v := handlers.Visitor{
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			Referrer:  ctx.Header("Referer"),
		}

		next(huma.WithContext(ctx, handlers.WithVisitor(ctx.Context(), v)))
	}
}
