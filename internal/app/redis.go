package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/spimexpulse/config"
)

const redisPingTimeout = 2 * time.Second

// InitRedis connects to the Redis read cache described by cfg.Redis.
//
// Behavior:
//   - Returns (nil, nil) when cfg.Redis.Addr is empty: caching is disabled.
//   - Pings the server once and closes the client if it is unreachable.
func InitRedis(cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// redisOpener is an indirection used by InitializeApp; overridden in tests.
var redisOpener = InitRedis

func redisPing(rdb *redis.Client) func() error {
	if rdb == nil {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		return rdb.Ping(ctx).Err()
	}
}
