package middleware

import (
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// clientIP returns the original client address: the first X-Forwarded-For
// entry, then X-Real-IP, then the connection's remote address without port.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := ctx.RemoteAddr()

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}
