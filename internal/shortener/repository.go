package shortener

import "context"

// Repository persists short links.
type Repository interface {
	// Create stores a new link. It returns ErrAliasTaken when the alias
	// already exists in the link's partition.
	Create(ctx context.Context, link *ShortLink) error
	Get(ctx context.Context, partition, alias string) (*ShortLink, error)
	// FindByAlias looks in every partition. It is a full traversal.
	FindByAlias(ctx context.Context, alias string) (*ShortLink, error)
	// IncrementClicks reads the counter, adds one and merges it back.
	IncrementClicks(ctx context.Context, link *ShortLink) (int64, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*ShortLink, error)
}
