// Package redis backs the two Redis roles in this service: the view
// cache for channel and expense projections, and the event streams that
// keep those projections fresh.
package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPoolSize = 10

type Client struct {
	*redis.Client
}

// NewClient connects and verifies the connection with a bounded ping.
// Read and write timeouts stay short: every cache path falls back to
// Postgres, so a slow Redis must not stall request handling. Pool size
// comes from REDIS_POOL_SIZE when set.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     poolSizeFromEnv(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{Client: rdb}, nil
}

func poolSizeFromEnv() int {
	if v := os.Getenv("REDIS_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultPoolSize
}

func (c *Client) Close() error {
	return c.Client.Close()
}
