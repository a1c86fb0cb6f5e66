package messaging_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockSubscriber struct {
	subscribeErr error
	mu           sync.Mutex
	closed       int
}

func (m *mockSubscriber) Subscribe(ctx context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	ch := make(chan *message.Message)

	go func() {
		<-ctx.Done()
		close(ch)
	}()

	return ch, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed++

	return nil
}

func startGroup(t *testing.T, logger *zap.Logger, handler messaging.Handler[testEvent]) messaging.Publish[testEvent] {
	t.Helper()

	pubsub := messaging.NewGoChannel(zap.NewNop())

	group := messaging.NewConsumerGroup(pubsub, logger, messaging.WithRetry(2, time.Millisecond))
	group.Add(messaging.NewConsumer(testTopic, handler, logger))

	require.NoError(t, group.Start(context.Background()))
	t.Cleanup(func() { _ = group.Shutdown() })

	return messaging.PublishTo(messaging.NewPublisher(pubsub), testTopic)
}

func TestConsumerGroup(t *testing.T) {
	t.Run("delivers published events", func(t *testing.T) {
		received := make(chan *testEvent, 1)

		publish := startGroup(t, zap.NewNop(), func(_ context.Context, e *testEvent) error {
			received <- e

			return nil
		})

		require.NoError(t, publish(context.Background(), &testEvent{ID: "42", Name: "answer"}))

		select {
		case e := <-received:
			assert.Equal(t, "42", e.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for event")
		}
	})

	t.Run("retries a failing handler", func(t *testing.T) {
		var calls atomic.Int32

		publish := startGroup(t, zap.NewNop(), func(context.Context, *testEvent) error {
			if calls.Add(1) < 3 {
				return errors.New("not yet")
			}

			return nil
		})

		require.NoError(t, publish(context.Background(), &testEvent{ID: "1"}))

		assert.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("drops the event once retries are spent", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)

		var (
			calls     atomic.Int32
			delivered = make(chan string, 1)
		)

		publish := startGroup(t, zap.New(core), func(_ context.Context, e *testEvent) error {
			if e.ID == "poison" {
				calls.Add(1)

				return errors.New("always fails")
			}

			delivered <- e.ID

			return nil
		})

		require.NoError(t, publish(context.Background(), &testEvent{ID: "poison"}))
		require.NoError(t, publish(context.Background(), &testEvent{ID: "next"}))

		select {
		case id := <-delivered:
			assert.Equal(t, "next", id)
		case <-time.After(2 * time.Second):
			t.Fatal("topic stalled behind a failing event")
		}

		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, 1, logs.FilterMessage("dropping event after retries").Len())
	})

	t.Run("recovers handler panics", func(t *testing.T) {
		var calls atomic.Int32

		publish := startGroup(t, zap.NewNop(), func(context.Context, *testEvent) error {
			if calls.Add(1) == 1 {
				panic("boom")
			}

			return nil
		})

		require.NoError(t, publish(context.Background(), &testEvent{ID: "1"}))

		assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("fails to start when a subscription fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("broker down")}
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		group.Add(messaging.NewConsumer(testTopic, func(context.Context, *testEvent) error { return nil }, zap.NewNop()))

		err := group.Start(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
	})

	t.Run("shutdown closes the subscriber", func(t *testing.T) {
		sub := &mockSubscriber{}
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		group.Add(messaging.NewConsumer(testTopic, func(context.Context, *testEvent) error { return nil }, zap.NewNop()))

		require.NoError(t, group.Start(context.Background()))
		assert.Equal(t, 1, group.Len())

		require.NoError(t, group.Shutdown())
		assert.Equal(t, 1, sub.closed)
	})

	t.Run("empty group starts and stops", func(t *testing.T) {
		sub := &mockSubscriber{}
		group := messaging.NewConsumerGroup(sub, zap.NewNop())

		require.NoError(t, group.Start(context.Background()))
		require.NoError(t, group.Shutdown())
		assert.Equal(t, 1, sub.closed)
	})
}

func TestPublishTo_NoSubscriber(t *testing.T) {
	pubsub := messaging.NewGoChannel(zap.NewNop())
	t.Cleanup(func() { _ = pubsub.Close() })

	publish := messaging.PublishTo(messaging.NewPublisher(pubsub), messaging.Topic[testEvent]{Name: watermill.NewShortUUID()})

	assert.NoError(t, publish(context.Background(), &testEvent{ID: "lost"}))
}
