package cache

import (
	"context"
	"fmt"

	"talowa-referral/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens the optional fast-path cache. Callers must tolerate a
// nil client: lookups fall through to Postgres when the cache is disabled.
func ConnectRedis(cfg utils.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}
