package container

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/analytics"
	analyticsstore "github.com/serroba/shortlinks/internal/analytics/store"
	"github.com/serroba/shortlinks/internal/messaging"
	"go.uber.org/zap"
)

// PubSubPackage provides the in-process pub/sub used when no redis is configured.
func PubSubPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*gochannel.GoChannel, error) {
		return messaging.NewGoChannel(do.MustInvoke[*zap.Logger](i)), nil
	})
}

// PublisherPackage provides the event publisher and one typed publish
// function per topic. Events go to redis streams when redis is configured.
func PublisherPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.Publisher, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.RedisAddr == "" {
			ch, err := do.Invoke[*gochannel.GoChannel](i)
			if err != nil {
				return nil, err
			}

			return messaging.NewPublisher(ch), nil
		}

		client, err := do.Invoke[*RedisClient](i)
		if err != nil {
			return nil, err
		}

		pub, err := messaging.NewRedisStreamPublisher(client.Client, do.MustInvoke[*zap.Logger](i))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisher(pub), nil
	})

	providePublish(i, analytics.TopicLinkCreated)
	providePublish(i, analytics.TopicLinkClicked)
}

func providePublish[T any](i *do.Injector, topic messaging.Topic[T]) {
	do.Provide(i, func(i *do.Injector) (messaging.Publish[T], error) {
		publisher, err := do.Invoke[*messaging.Publisher](i)
		if err != nil {
			return nil, err
		}

		return messaging.PublishTo(publisher, topic), nil
	})
}

// ConsumerGroupPackage provides the analytics consumers, both writing to
// the log sink.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := newSubscriber(i, logger)
		if err != nil {
			return nil, err
		}

		sink := analyticsstore.NewLogSink(logger)

		group := messaging.NewConsumerGroup(subscriber, logger, do.MustInvoke[*Options](i).ConsumerRetry()...)
		group.Add(messaging.NewConsumer(analytics.TopicLinkCreated, sink.SaveLinkCreated, logger))
		group.Add(messaging.NewConsumer(analytics.TopicLinkClicked, sink.SaveLinkClicked, logger))

		return group, nil
	})
}

func newSubscriber(i *do.Injector, logger *zap.Logger) (message.Subscriber, error) {
	opts := do.MustInvoke[*Options](i)

	if opts.RedisAddr == "" {
		ch, err := do.Invoke[*gochannel.GoChannel](i)
		if err != nil {
			return nil, err
		}

		return ch, nil
	}

	client, err := do.Invoke[*RedisClient](i)
	if err != nil {
		return nil, err
	}

	return messaging.NewRedisStreamSubscriber(client.Client, opts.ConsumerGroup, logger)
}
