package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/todoapi/internal/config"
)

// NewRedis creates the client backing the sign-in rate limiter and waits
// until Redis answers a PING.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }

	if err := waitFor(ctx, "redis", startupBackoff, ping); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
