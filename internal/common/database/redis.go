package database

import (
	"context"
	"fmt"
	"time"

	"hub-connectors/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client backing the fingerprint store.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a client; it does not dial until first use. Zero pool and
// timeout settings fall back to go-redis defaults.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	io := config.GetDuration(cfg.IOTimeout)
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  config.GetDuration(cfg.DialTimeout),
		ReadTimeout:  io,
		WriteTimeout: io,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
	return &RedisClient{Client: rdb}, nil
}

var newRedis = NewRedis

// ConnectRedis creates a client and pings it once. A client whose ping fails
// is closed before the error is returned.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*RedisClient, time.Duration, error) {
	client, err := newRedis(cfg)
	if err != nil {
		return nil, 0, err
	}
	rtt, err := client.RoundTrip(ctx)
	if err != nil {
		_ = client.Close()
		return nil, 0, err
	}
	return client, rtt, nil
}

// Ping tests the Redis connection and reports its round trip.
func (c *RedisClient) Ping(ctx context.Context) error {
	_, err := c.RoundTrip(ctx)
	return err
}

// RoundTrip pings Redis and returns how long it took.
func (c *RedisClient) RoundTrip(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("redis ping failed: %w", err)
	}
	return time.Since(start), nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetClient returns the underlying *redis.Client.
func (c *RedisClient) GetClient() *redis.Client {
	return c.Client
}
