package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// CreateRequest describes a link to be created.
type CreateRequest struct {
	LongURL   string
	OwnerID   string
	Alias     string
	ExpiresAt *time.Time
}

// Registry creates, resolves and counts short links.
type Registry struct {
	store     Repository
	allocator *Allocator
	now       func() time.Time
}

// NewRegistry creates a link registry.
func NewRegistry(store Repository, allocator *Allocator) *Registry {
	return &Registry{
		store:     store,
		allocator: allocator,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now

	return r
}

// Create validates the request and stores a new link with zero clicks.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*ShortLink, error) {
	if err := ValidateURL(req.LongURL); err != nil {
		return nil, err
	}

	// An expiration already in the past is stored as given; the link then
	// answers ErrExpired on every visit.
	link := &ShortLink{
		LongURL:   req.LongURL,
		OwnerID:   req.OwnerID,
		CreatedAt: r.now().UTC(),
		ExpiresAt: req.ExpiresAt,
	}

	if err := r.allocator.Allocate(ctx, link, req.Alias); err != nil {
		return nil, err
	}

	return link, nil
}

// Resolve finds a link by alias. Anonymous links take precedence; owned links
// are found by a traversal of every partition.
func (r *Registry) Resolve(ctx context.Context, alias string) (*ShortLink, error) {
	link, err := r.store.Get(ctx, AnonymousPartition, alias)
	if err == nil {
		return link, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return r.store.FindByAlias(ctx, alias)
}

// IsExpired reports whether link has expired at the registry's current time.
func (r *Registry) IsExpired(link *ShortLink) bool {
	return link.IsExpired(r.now())
}

// IncrementClicks adds one to the link's counter. Concurrent increments of
// the same link may be lost.
func (r *Registry) IncrementClicks(ctx context.Context, link *ShortLink) error {
	total, err := r.store.IncrementClicks(ctx, link)
	if err != nil {
		return fmt.Errorf("increment clicks for %s: %w", link.Alias, err)
	}

	link.TotalClicks = total

	return nil
}

// Visit resolves an alias for a redirect and counts the visit. Expired links
// return ErrExpired and are not counted.
func (r *Registry) Visit(ctx context.Context, alias string) (*ShortLink, error) {
	link, err := r.Resolve(ctx, alias)
	if err != nil {
		return nil, err
	}

	if r.IsExpired(link) {
		return link, ErrExpired
	}

	if err := r.IncrementClicks(ctx, link); err != nil {
		return nil, err
	}

	return link, nil
}

// ListByOwner returns every link created by ownerID.
func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]*ShortLink, error) {
	return r.store.ListByOwner(ctx, ownerID)
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}
