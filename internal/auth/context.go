package auth

import "context"

type identityKey struct{}

// WithIdentity returns a context carrying the authenticated caller.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by WithIdentity, or nil for anonymous requests.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)

	return id
}

// MetadataKey is the huma operation metadata key holding a Gate.
const MetadataKey = "auth"

// Gate controls how an operation treats the access token.
type Gate int

const (
	// GateNone ignores credentials.
	GateNone Gate = iota
	// GateOptional attaches the caller when the token is valid and continues anonymously otherwise.
	GateOptional
	// GateRequired rejects requests without a valid token.
	GateRequired
)

func (g Gate) String() string {
	switch g {
	case GateOptional:
		return "optional"
	case GateRequired:
		return "required"
	default:
		return "none"
	}
}
