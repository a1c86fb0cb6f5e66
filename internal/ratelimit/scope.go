package ratelimit

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Scope names a group of limits in a Policy.
type Scope string

const (
	// ScopeGlobal applies to every request.
	ScopeGlobal Scope = "global"
	// ScopeRead applies to safe methods.
	ScopeRead Scope = "read"
	// ScopeWrite applies to every other method.
	ScopeWrite Scope = "write"
)

// MetadataKey holds an EndpointConfig in huma operation metadata.
const MetadataKey = "rateLimit"

// EndpointConfig tunes rate limiting for one operation.
//
// Non-empty Limits replace the policy for the operation, and Scope is then
// ignored. Otherwise Scope, when set, replaces the scope derived from the
// HTTP method. Disabled turns limiting off.
type EndpointConfig struct {
	Scope    Scope
	Limits   []LimitConfig
	Disabled bool
}

// ConfigOf returns the EndpointConfig attached to op, or the zero config.
func ConfigOf(op *huma.Operation) EndpointConfig {
	if op == nil {
		return EndpointConfig{}
	}

	cfg, _ := op.Metadata[MetadataKey].(EndpointConfig)

	return cfg
}

// ScopesFor returns the policy scopes of a request: always ScopeGlobal, then
// cfg.Scope or the scope implied by method.
func ScopesFor(method string, cfg EndpointConfig) []Scope {
	if cfg.Scope != "" {
		return []Scope{ScopeGlobal, cfg.Scope}
	}

	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return []Scope{ScopeGlobal, ScopeRead}
	default:
		return []Scope{ScopeGlobal, ScopeWrite}
	}
}
