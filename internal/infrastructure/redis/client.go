// Package redis connects the directory cache to Redis.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kyc-ledger/internal/config"
)

// Client is the connection shared by the directory cache and the readiness
// check.
type Client struct {
	*redis.Client
}

// New connects to cfg.RedisURL and pings it once. It returns nil, nil when no
// URL is configured, which disables the directory cache.
func New(cfg *config.Config) (*Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout+opts.ReadTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Client{Client: rdb}, nil
}

func options(cfg *config.Config) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}
	if cfg.RedisDialTimeout > 0 {
		opts.DialTimeout = cfg.RedisDialTimeout
	}
	if cfg.RedisIOTimeout > 0 {
		opts.ReadTimeout = cfg.RedisIOTimeout
		opts.WriteTimeout = cfg.RedisIOTimeout
	}
	return opts, nil
}

// Health is the readiness check for the directory cache.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
