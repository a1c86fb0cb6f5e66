package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// LimitConfig allows at most Max requests per Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps scopes to the limits enforced on them. Every limit of every
// resolved scope must pass for a request to be allowed.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy is used by the server unless overridden by configuration.
func DefaultPolicy() *Policy {
	return NewPolicyBuilder().
		AddLimit(ScopeGlobal, 50, time.Second).
		AddLimit(ScopeGlobal, 1000, time.Minute).
		AddLimit(ScopeRead, 600, time.Minute).
		AddLimit(ScopeWrite, 60, time.Minute).
		AddLimit(ScopeWrite, 500, time.Hour).
		Build()
}

// PolicyBuilder assembles a Policy.
type PolicyBuilder struct {
	limits map[Scope][]LimitConfig
}

// NewPolicyBuilder returns an empty builder.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{limits: make(map[Scope][]LimitConfig)}
}

// AddLimit adds max requests per window to scope.
func (b *PolicyBuilder) AddLimit(scope Scope, maxRequests int64, window time.Duration) *PolicyBuilder {
	b.limits[scope] = append(b.limits[scope], LimitConfig{Window: window, Max: maxRequests})

	return b
}

// Build returns the policy. The builder must not be reused.
func (b *PolicyBuilder) Build() *Policy {
	return &Policy{Limits: b.limits}
}

// Verdict is the outcome of checking one request. When the request is
// rejected, Scope and Limit name the limit that refused it. Otherwise they
// name the limit closest to exhaustion, if any limit applied.
type Verdict struct {
	Allowed bool
	Scope   Scope
	Limit   LimitConfig
	Count   int64
}

// Remaining is how many more requests the reported limit admits.
func (v Verdict) Remaining() int64 {
	return max(v.Limit.Max-v.Count, 0)
}

// Applied reports whether any limit was checked.
func (v Verdict) Applied() bool {
	return v.Limit.Window > 0
}

// PolicyLimiter checks requests against a Policy, one counter per client,
// scope and window.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{store: store, policy: policy}
}

// Check records the request under every limit of scopes, stopping at the
// first limit it exceeds.
func (l *PolicyLimiter) Check(ctx context.Context, client string, scopes []Scope) (Verdict, error) {
	verdict := Verdict{Allowed: true}

	for _, scope := range scopes {
		next, err := l.check(ctx, client, scope, l.policy.Limits[scope])
		if err != nil || !next.Allowed {
			return next, err
		}

		verdict = tighter(verdict, next)
	}

	return verdict, nil
}

// CheckLimits applies limits that replace the policy for one route. name
// keeps the counters of different routes apart.
func (l *PolicyLimiter) CheckLimits(ctx context.Context, client, name string, limits []LimitConfig) (Verdict, error) {
	return l.check(ctx, client, Scope("route:"+name), limits)
}

func (l *PolicyLimiter) check(ctx context.Context, client string, scope Scope, limits []LimitConfig) (Verdict, error) {
	verdict := Verdict{Allowed: true}

	for _, limit := range limits {
		key := fmt.Sprintf("%s|%s|%d", client, scope, limit.Window.Milliseconds())

		count, err := l.store.Record(ctx, key, limit.Window)
		if err != nil {
			return Verdict{}, fmt.Errorf("record %s: %w", scope, err)
		}

		current := Verdict{Allowed: count <= limit.Max, Scope: scope, Limit: limit, Count: count}
		if !current.Allowed {
			return current, nil
		}

		verdict = tighter(verdict, current)
	}

	return verdict, nil
}

func tighter(a, b Verdict) Verdict {
	if !a.Applied() || b.Remaining() < a.Remaining() {
		return b
	}

	return a
}
