package container

import "github.com/samber/do"

// ServerPackages registers everything the HTTP server needs. Without redis
// the analytics consumers run in-process over the in-memory pub/sub.
func ServerPackages(i *do.Injector, opts *Options) {
	do.ProvideValue(i, opts)
	LoggerPackage(i)
	RedisPackage(i)
	PostgresPackage(i)
	StoragePackage(i)
	RepositoryPackage(i)
	PubSubPackage(i)
	PublisherPackage(i)
	ConsumerGroupPackage(i)
	DomainPackage(i)
	AuthPackage(i)
	RateLimitPackage(i)
	HTTPPackage(i)
}

// ConsumerPackages registers the standalone analytics consumer.
func ConsumerPackages(i *do.Injector, opts *Options) {
	do.ProvideValue(i, opts)
	LoggerPackage(i)
	RedisPackage(i)
	PubSubPackage(i)
	ConsumerGroupPackage(i)
}
