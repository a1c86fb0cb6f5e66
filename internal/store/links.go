package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/tablestore"
)

// Link entity property names.
const (
	propLongURL     = "longUrl"
	propUserID      = "userId"
	propCreatedAt   = "createdAt"
	propExpiration  = "expirationDate"
	propTotalClicks = "totalClicks"
)

// LinkRepository stores short links in a table partitioned by owner, keyed by alias.
type LinkRepository struct {
	table tablestore.Table
}

// NewLinkRepository creates a link repository over table.
func NewLinkRepository(table tablestore.Table) *LinkRepository {
	return &LinkRepository{table: table}
}

func (r *LinkRepository) Create(ctx context.Context, link *shortener.ShortLink) error {
	err := r.table.Create(ctx, linkToEntity(link))
	if errors.Is(err, tablestore.ErrConflict) {
		return shortener.ErrAliasTaken
	}

	if err != nil {
		return fmt.Errorf("create link %s: %w", link.Alias, err)
	}

	return nil
}

func (r *LinkRepository) Get(ctx context.Context, partition, alias string) (*shortener.ShortLink, error) {
	e, err := r.table.Get(ctx, partition, alias)
	if errors.Is(err, tablestore.ErrNotFound) {
		return nil, shortener.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get link %s: %w", alias, err)
	}

	return entityToLink(e), nil
}

// FindByAlias traverses every partition and returns the first link whose
// alias matches. Cost grows with the total number of links.
func (r *LinkRepository) FindByAlias(ctx context.Context, alias string) (*shortener.ShortLink, error) {
	q := tablestore.Query{Filter: func(e tablestore.Entity) bool { return e.RowKey == alias }}

	for e, err := range r.table.Query(ctx, q) {
		if err != nil {
			return nil, fmt.Errorf("scan for link %s: %w", alias, err)
		}

		return entityToLink(e), nil
	}

	return nil, shortener.ErrNotFound
}

// IncrementClicks re-reads the counter and merges counter+1 back. Two
// concurrent increments of one link can both write the same value.
func (r *LinkRepository) IncrementClicks(ctx context.Context, link *shortener.ShortLink) (int64, error) {
	current, err := r.table.Get(ctx, link.Partition(), link.Alias)
	if errors.Is(err, tablestore.ErrNotFound) {
		return 0, shortener.ErrNotFound
	}

	if err != nil {
		return 0, err
	}

	total := current.Properties.Int64(propTotalClicks) + 1

	patch := tablestore.Entity{
		PartitionKey: link.Partition(),
		RowKey:       link.Alias,
		Properties:   tablestore.Properties{},
	}
	patch.Properties.SetInt64(propTotalClicks, total)

	if err := r.table.Update(ctx, patch, tablestore.Merge); err != nil {
		return 0, err
	}

	return total, nil
}

// ListByOwner returns the owner's links, newest first.
func (r *LinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]*shortener.ShortLink, error) {
	entities, err := tablestore.Collect(r.table.Query(ctx, tablestore.Query{Partition: shortener.PartitionFor(ownerID)}))
	if err != nil {
		return nil, fmt.Errorf("list links of %s: %w", ownerID, err)
	}

	links := make([]*shortener.ShortLink, 0, len(entities))
	for _, e := range entities {
		links = append(links, entityToLink(e))
	}

	sort.SliceStable(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})

	return links, nil
}

func linkToEntity(link *shortener.ShortLink) tablestore.Entity {
	props := tablestore.Properties{
		propLongURL: link.LongURL,
		propUserID:  link.OwnerID,
	}
	props.SetTime(propCreatedAt, link.CreatedAt)
	props.SetOptionalTime(propExpiration, link.ExpiresAt)
	props.SetInt64(propTotalClicks, link.TotalClicks)

	return tablestore.Entity{
		PartitionKey: link.Partition(),
		RowKey:       link.Alias,
		Properties:   props,
	}
}

func entityToLink(e tablestore.Entity) *shortener.ShortLink {
	return &shortener.ShortLink{
		Alias:       e.RowKey,
		LongURL:     e.Properties[propLongURL],
		OwnerID:     e.Properties[propUserID],
		CreatedAt:   e.Properties.Time(propCreatedAt),
		ExpiresAt:   e.Properties.OptionalTime(propExpiration),
		TotalClicks: e.Properties.Int64(propTotalClicks),
	}
}

var _ shortener.Repository = (*LinkRepository)(nil)
