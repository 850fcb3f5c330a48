// Package redis wraps the go-redis client with service configuration and
// health checking. Redis is optional; when enabled it backs the shared cache
// used to publish workload statistics across instances.
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"ticketrouter/internal/common/errors"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps a go-redis client.
type Client struct {
	client *redis.Client
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.ConnectionError("failed to connect to redis", err)
	}

	return &Client{client: client}, nil
}

// Raw exposes the underlying go-redis client for cache construction.
func (c *Client) Raw() *redis.Client {
	return c.client
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.UnavailableError("redis", err)
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.client.Close()
}
