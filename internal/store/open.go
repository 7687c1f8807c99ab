package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hwalton/keap-console/internal/config"
	"github.com/hwalton/keap-console/pkg/keap"
)

// Open builds the token store selected by cfg.Driver. The returned close
// function releases any connection and is never nil.
func Open(ctx context.Context, cfg config.StoreConfig) (keap.TokenStore, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return keap.NewMemoryStore(keap.TokenPair{}), noop, nil
	case "", "file":
		s, err := NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("ping db: %w", err)
		}
		return NewPostgresStore(pool, cfg.Slot), pool.Close, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisStore(client, cfg.Slot), func() { _ = client.Close() }, nil
	}
	return nil, noop, fmt.Errorf("store: unknown driver %q", cfg.Driver)
}
