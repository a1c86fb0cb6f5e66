package handlers

import (
	"context"

	"github.com/serroba/shortlinks/internal/analytics"
)

type visitorKey struct{}

// Visitor describes who sent the current request, as far as its headers tell.
type Visitor struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

func WithVisitor(ctx context.Context, v Visitor) context.Context {
	return context.WithValue(ctx, visitorKey{}, v)
}

// VisitorFrom returns the visitor stored in ctx, or the zero Visitor.
func VisitorFrom(ctx context.Context) Visitor {
	v, _ := ctx.Value(visitorKey{}).(Visitor)

	return v
}

// Click is the visit of alias by v.
func (v Visitor) Click(alias string) analytics.Click {
	return analytics.Click{
		Alias:     alias,
		UserAgent: v.UserAgent,
		Referrer:  v.Referrer,
		RawIP:     v.ClientIP,
	}
}
