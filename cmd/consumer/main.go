package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/container"
	"github.com/serroba/shortlinks/internal/messaging"
	"go.uber.org/zap"
)

// config is read from the environment only; the consumer has no flags.
type config struct {
	RedisAddr     string        `env:"REDIS_ADDR"              envDefault:"localhost:6379"`
	ConsumerGroup string        `env:"CONSUMER_GROUP"          envDefault:"shortlinks-analytics"`
	MaxRetries    int           `env:"CONSUMER_MAX_RETRIES"    envDefault:"3"`
	RetryInterval time.Duration `env:"CONSUMER_RETRY_INTERVAL" envDefault:"100ms"`
	LogFormat     string        `env:"LOG_FORMAT"              envDefault:"console"`
	LogLevel      string        `env:"LOG_LEVEL"               envDefault:"info"`
}

func (c config) options() *container.Options {
	return &container.Options{
		RedisAddr:          c.RedisAddr,
		ConsumerGroup:      c.ConsumerGroup,
		ConsumerMaxRetries: c.MaxRetries,
		ConsumerRetryMS:    int(c.RetryInterval.Milliseconds()),
		LogFormat:          c.LogFormat,
		LogLevel:           c.LogLevel,
	}
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.RedisAddr == "" {
		fmt.Fprintln(os.Stderr, "REDIS_ADDR is required: without redis the server consumes events itself")
		os.Exit(2)
	}

	injector := do.New()
	container.ConsumerPackages(injector, cfg.options())

	logger := do.MustInvoke[*zap.Logger](injector)

	if err := run(injector, logger, cfg); err != nil {
		logger.Error("consumer stopped", zap.Error(err))
	}

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	_ = logger.Sync()
}

// run consumes until SIGINT or SIGTERM.
func run(injector *do.Injector, logger *zap.Logger, cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, err := do.Invoke[*messaging.ConsumerGroup](injector)
	if err != nil {
		return fmt.Errorf("build consumer group: %w", err)
	}

	if err := group.Start(ctx); err != nil {
		return fmt.Errorf("start consumer group: %w", err)
	}

	logger.Info("consuming analytics events",
		zap.String("redis", cfg.RedisAddr),
		zap.String("group", cfg.ConsumerGroup),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	return nil
}
