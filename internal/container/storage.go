package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/store"
	"github.com/serroba/shortlinks/internal/tablestore"
	"go.uber.org/zap"
)

const startupTimeout = 10 * time.Second

// RedisClient owns the shared redis connection.
type RedisClient struct {
	Client redis.UniversalClient
}

func (c *RedisClient) Shutdown() error {
	return c.Client.Close()
}

// PostgresPool owns the PostgreSQL connection pool.
type PostgresPool struct {
	Pool *pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Pool.Close()

	return nil
}

// RedisPackage provides *RedisClient. Only invoke it when Options.RedisAddr is set.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis requested but no address configured")
		}

		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("ping redis: %w", err)
		}

		return &RedisClient{Client: client}, nil
	})
}

// PostgresPackage provides a migrated *PostgresPool.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		if err := tablestore.Migrate(ctx, pool); err != nil {
			pool.Close()

			return nil, err
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// StoragePackage provides the table store selected by Options.Storage and
// makes sure every configured table exists.
func StoragePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (tablestore.Backend, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		backend, err := openBackend(i, opts)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		for _, name := range opts.Tables() {
			if err := backend.EnsureTable(ctx, name); err != nil {
				return nil, fmt.Errorf("ensure table %s: %w", name, err)
			}
		}

		logger.Info("table store ready",
			zap.String("storage", opts.Storage),
			zap.Strings("tables", opts.Tables()),
		)

		return backend, nil
	})
}

func openBackend(i *do.Injector, opts *Options) (tablestore.Backend, error) {
	switch opts.Storage {
	case StorageRedis:
		client, err := do.Invoke[*RedisClient](i)
		if err != nil {
			return nil, err
		}

		return tablestore.NewRedis(client.Client, opts.KeyPrefix), nil
	case StoragePostgres:
		pool, err := do.Invoke[*PostgresPool](i)
		if err != nil {
			return nil, err
		}

		return tablestore.NewPostgres(pool.Pool), nil
	default:
		return tablestore.NewMemory(), nil
	}
}

// RepositoryPackage provides the table-backed repositories.
func RepositoryPackage(i *do.Injector) {
	provideRepository(i, func(o *Options) string { return o.LinksTable }, store.NewLinkRepository)
	provideRepository(i, func(o *Options) string { return o.ClicksTable }, store.NewClickRepository)
	provideRepository(i, func(o *Options) string { return o.UsersTable }, store.NewUserRepository)
	provideRepository(i, func(o *Options) string { return o.TokensTable }, store.NewRefreshTokenRepository)
}

func provideRepository[T any](i *do.Injector, table func(*Options) string, build func(tablestore.Table) T) {
	do.Provide(i, func(i *do.Injector) (T, error) {
		backend, err := do.Invoke[tablestore.Backend](i)
		if err != nil {
			var zero T

			return zero, err
		}

		return build(backend.Table(table(do.MustInvoke[*Options](i)))), nil
	})
}
