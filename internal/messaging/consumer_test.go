package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var testTopic = messaging.Topic[testEvent]{Name: "test.topic"}

type ctxKey struct{}

func TestConsumer_Handle(t *testing.T) {
	t.Run("decodes the payload and passes the message context", func(t *testing.T) {
		var (
			got      *testEvent
			gotValue any
		)

		consumer := messaging.NewConsumer(testTopic, func(ctx context.Context, e *testEvent) error {
			got = e
			gotValue = ctx.Value(ctxKey{})

			return nil
		}, zap.NewNop())

		msg := message.NewMessage(watermill.NewUUID(), []byte(`{"id":"7","name":"seven"}`))
		msg.SetContext(context.WithValue(context.Background(), ctxKey{}, "carried"))

		require.NoError(t, consumer.Handle(msg))
		require.NotNil(t, got)
		assert.Equal(t, "7", got.ID)
		assert.Equal(t, "seven", got.Name)
		assert.Equal(t, "carried", gotValue)
		assert.Equal(t, "test.topic", consumer.Topic())
	})

	t.Run("swallows undecodable payloads", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		called := false

		consumer := messaging.NewConsumer(testTopic, func(context.Context, *testEvent) error {
			called = true

			return nil
		}, zap.New(core))

		require.NoError(t, consumer.Handle(message.NewMessage(watermill.NewUUID(), []byte("{broken"))))
		assert.False(t, called)
		assert.Equal(t, 1, logs.FilterMessage("dropping undecodable event").Len())
	})

	t.Run("returns handler errors", func(t *testing.T) {
		errSink := errors.New("sink unavailable")
		consumer := messaging.NewConsumer(testTopic, func(context.Context, *testEvent) error {
			return errSink
		}, zap.NewNop())

		err := consumer.Handle(message.NewMessage(watermill.NewUUID(), []byte(`{"id":"1"}`)))

		require.ErrorIs(t, err, errSink)
		assert.Contains(t, err.Error(), "test.topic")
	})
}
