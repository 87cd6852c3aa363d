package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client. As with Postgres the client is
// returned alongside a failed ping.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return client, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
