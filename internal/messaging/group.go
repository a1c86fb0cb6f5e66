package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 100 * time.Millisecond
)

// Route is a topic handler mounted on a ConsumerGroup.
type Route interface {
	Topic() string
	Handle(msg *message.Message) error
}

// GroupOption configures a ConsumerGroup.
type GroupOption func(*ConsumerGroup)

// WithRetry sets how often a failing handler is retried and the first
// backoff interval, which doubles on every attempt.
func WithRetry(maxRetries int, interval time.Duration) GroupOption {
	return func(g *ConsumerGroup) {
		g.maxRetries = maxRetries
		g.retryInterval = interval
	}
}

// ConsumerGroup runs routes on a watermill router sharing one subscriber.
// A handler that keeps failing after its retries is logged and its event
// dropped, so one bad event cannot stall a topic.
type ConsumerGroup struct {
	subscriber    message.Subscriber
	logger        *zap.Logger
	routes        []Route
	maxRetries    int
	retryInterval time.Duration

	router *message.Router
	done   chan error
}

func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger, opts ...GroupOption) *ConsumerGroup {
	g := &ConsumerGroup{
		subscriber:    subscriber,
		logger:        logger,
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *ConsumerGroup) Add(route Route) {
	g.routes = append(g.routes, route)
}

func (g *ConsumerGroup) Len() int {
	return len(g.routes)
}

// Start subscribes every route and returns once all of them receive
// messages. The router stops when ctx is cancelled or on Shutdown.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	if len(g.routes) == 0 {
		g.logger.Warn("consumer group has no routes")

		return nil
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, NewZapLogger(g.logger))
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	router.AddMiddleware(g.deliver)

	for i, route := range g.routes {
		router.AddNoPublisherHandler(fmt.Sprintf("%s#%d", route.Topic(), i), route.Topic(), g.subscriber, route.Handle)
	}

	done := make(chan error, 1)

	go func() { done <- router.Run(ctx) }()

	select {
	case <-router.Running():
	case err := <-done:
		if err == nil {
			err = errors.New("router stopped before running")
		}

		_ = router.Close()

		return fmt.Errorf("run consumers: %w", err)
	}

	g.router, g.done = router, done
	g.logger.Info("consumer group started", zap.Int("count", len(g.routes)))

	return nil
}

// deliver retries failed handlers with exponential backoff and recovers
// panics. Once the retries are spent the event is acknowledged.
func (g *ConsumerGroup) deliver(h message.HandlerFunc) message.HandlerFunc {
	retry := middleware.Retry{
		MaxRetries:      g.maxRetries,
		InitialInterval: g.retryInterval,
		Multiplier:      2,
		MaxInterval:     10 * g.retryInterval,
		Logger:          NewZapLogger(g.logger),
	}

	next := retry.Middleware(middleware.Recoverer(h))

	return func(msg *message.Message) ([]*message.Message, error) {
		if _, err := next(msg); err != nil {
			g.logger.Error("dropping event after retries",
				zap.String("topic", message.SubscribeTopicFromCtx(msg.Context())),
				zap.String("message_uuid", msg.UUID),
				zap.Int("retries", g.maxRetries),
				zap.Error(err),
			)
		}

		return nil, nil
	}
}

// Shutdown stops the router, then closes the subscriber. All errors are joined.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group")

	var errs []error

	if g.router != nil {
		if err := g.router.Close(); err != nil {
			errs = append(errs, err)
		}

		if err := <-g.done; err != nil {
			errs = append(errs, err)
		}

		g.router = nil
	}

	if err := g.subscriber.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
