package analytics

import (
	"context"
	"iter"
)

// ClickWriter appends click events.
type ClickWriter interface {
	Append(ctx context.Context, event *ClickEvent) error
}

// ClickSource streams the click events of one alias.
type ClickSource interface {
	ListByAlias(ctx context.Context, alias string) iter.Seq2[ClickEvent, error]
}

// Sink receives events from the message stream.
type Sink interface {
	SaveLinkCreated(ctx context.Context, event *LinkCreatedEvent) error
	SaveLinkClicked(ctx context.Context, event *LinkClickedEvent) error
}
