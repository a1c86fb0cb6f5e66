package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler processes one decoded event.
type Handler[T any] func(ctx context.Context, event *T) error

// Consumer decodes the messages of one topic for a typed Handler. It is
// mounted on a ConsumerGroup, which owns delivery and retries.
type Consumer[T any] struct {
	topic   Topic[T]
	handler Handler[T]
	logger  *zap.Logger
}

func NewConsumer[T any](topic Topic[T], handler Handler[T], logger *zap.Logger) *Consumer[T] {
	return &Consumer[T]{
		topic:   topic,
		handler: handler,
		logger:  logger.With(zap.String("topic", topic.Name)),
	}
}

func (c *Consumer[T]) Topic() string {
	return c.topic.Name
}

// Handle decodes msg and runs the handler with the message context.
// Payloads that cannot be decoded are logged and acknowledged, since no
// redelivery can fix them.
func (c *Consumer[T]) Handle(msg *message.Message) error {
	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Error("dropping undecodable event",
			zap.String("message_uuid", msg.UUID),
			zap.Error(err),
		)

		return nil
	}

	if err := c.handler(msg.Context(), &event); err != nil {
		return fmt.Errorf("handle %s: %w", c.topic.Name, err)
	}

	c.logger.Debug("processed event", zap.String("message_uuid", msg.UUID))

	return nil
}
