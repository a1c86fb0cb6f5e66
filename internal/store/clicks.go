package store

import (
	"context"
	"fmt"
	"iter"

	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/tablestore"
)

const (
	propClickedAt = "clickedAt"
	propUserAgent = "userAgent"
	propReferrer  = "referrer"
	propIP        = "ip"
	propCountry   = "country"
	propRegion    = "region"
	propCity      = "city"
)

// ClickRepository stores click events partitioned by alias, one row per event.
type ClickRepository struct {
	table tablestore.Table
}

// NewClickRepository creates a click repository over table.
func NewClickRepository(table tablestore.Table) *ClickRepository {
	return &ClickRepository{table: table}
}

// Append writes an event. Events are never updated afterwards.
func (r *ClickRepository) Append(ctx context.Context, event *analytics.ClickEvent) error {
	props := tablestore.Properties{
		propUserAgent: event.UserAgent,
		propReferrer:  event.Referrer,
		propIP:        event.IP,
		propCountry:   event.Country,
		propRegion:    event.Region,
		propCity:      event.City,
	}
	props.SetTime(propClickedAt, event.ClickedAt)

	err := r.table.Create(ctx, tablestore.Entity{
		PartitionKey: event.Alias,
		RowKey:       event.ID,
		Properties:   props,
	})
	if err != nil {
		return fmt.Errorf("append click %s: %w", event.ID, err)
	}

	return nil
}

// ListByAlias streams every event recorded for alias.
func (r *ClickRepository) ListByAlias(ctx context.Context, alias string) iter.Seq2[analytics.ClickEvent, error] {
	return func(yield func(analytics.ClickEvent, error) bool) {
		for e, err := range r.table.Query(ctx, tablestore.Query{Partition: alias}) {
			if err != nil {
				yield(analytics.ClickEvent{}, fmt.Errorf("list clicks of %s: %w", alias, err))

				return
			}

			if !yield(entityToClick(e), nil) {
				return
			}
		}
	}
}

func entityToClick(e tablestore.Entity) analytics.ClickEvent {
	return analytics.ClickEvent{
		ID:        e.RowKey,
		Alias:     e.PartitionKey,
		ClickedAt: e.Properties.Time(propClickedAt),
		UserAgent: e.Properties[propUserAgent],
		Referrer:  e.Properties[propReferrer],
		IP:        e.Properties[propIP],
		Country:   e.Properties[propCountry],
		Region:    e.Properties[propRegion],
		City:      e.Properties[propCity],
	}
}

var (
	_ analytics.ClickWriter = (*ClickRepository)(nil)
	_ analytics.ClickSource = (*ClickRepository)(nil)
)
