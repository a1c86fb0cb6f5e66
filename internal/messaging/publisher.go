package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Metadata keys set on every published message.
const (
	MetadataEventType   = "event_type"
	MetadataPublishedAt = "published_at"
)

var ErrPublisherClosed = errors.New("publisher closed")

// Topic names the stream carrying events of type T.
type Topic[T any] struct {
	Name string
}

// Publish sends one event.
type Publish[T any] func(ctx context.Context, event *T) error

// Discard returns a publish function that drops every event.
func Discard[T any]() Publish[T] {
	return func(context.Context, *T) error { return nil }
}

// Publisher owns the broker connection shared by the publish functions
// created with PublishTo.
type Publisher struct {
	pub    message.Publisher
	now    func() time.Time
	closed atomic.Bool
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub, now: time.Now}
}

// PublishTo binds p to topic. Events are JSON encoded; the message carries
// the caller's context.
func PublishTo[T any](p *Publisher, topic Topic[T]) Publish[T] {
	return func(ctx context.Context, event *T) error {
		if p.closed.Load() {
			return ErrPublisherClosed
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode %s: %w", topic.Name, err)
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.SetContext(ctx)
		msg.Metadata.Set(MetadataEventType, topic.Name)
		msg.Metadata.Set(MetadataPublishedAt, p.now().UTC().Format(time.RFC3339Nano))

		if err := p.pub.Publish(topic.Name, msg); err != nil {
			return fmt.Errorf("publish %s: %w", topic.Name, err)
		}

		return nil
	}
}

// Shutdown closes the broker connection once. Later publishes fail with
// ErrPublisherClosed.
func (p *Publisher) Shutdown() error {
	if p.closed.Swap(true) {
		return nil
	}

	return p.pub.Close()
}
