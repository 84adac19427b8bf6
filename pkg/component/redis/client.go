// Package redis 创建并持有共享的 go-redis 客户端。
// 会话记忆、答案缓存与 Embedding 缓存共用同一连接池。
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	options "github.com/kart-io/persona-assistant/pkg/options/redis"
)

// Client wraps a go-redis client built from Options.
type Client struct {
	client *goredis.Client
	opts   *options.Options
}

// New creates a Redis client and verifies connectivity.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid redis options: %v", errs)
	}

	rdb := goredis.NewClient(clientOptions(opts))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr(), err)
	}

	return &Client{client: rdb, opts: opts}, nil
}

func clientOptions(opts *options.Options) *goredis.Options {
	return &goredis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
}

// Name returns the component identifier.
func (c *Client) Name() string {
	return "redis"
}

// Ping checks if the connection to Redis is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection pool. Safe to call on a nil Client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Client returns the underlying go-redis client.
func (c *Client) Client() *goredis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Health Redis 健康状态。
type Health struct {
	Healthy    bool          `json:"healthy"`
	Latency    time.Duration `json:"latency"`
	TotalConns uint32        `json:"total_conns"`
	IdleConns  uint32        `json:"idle_conns"`
	Keys       int64         `json:"keys"`
	Error      string        `json:"error,omitempty"`
}

// Health pings Redis and reports pool statistics and key count.
func (c *Client) Health(ctx context.Context) *Health {
	h := &Health{}
	start := time.Now()
	err := c.Ping(ctx)
	h.Latency = time.Since(start)
	if err != nil {
		h.Error = err.Error()
		return h
	}

	h.Healthy = true
	ps := c.client.PoolStats()
	h.TotalConns = ps.TotalConns
	h.IdleConns = ps.IdleConns
	if n, err := c.client.DBSize(ctx).Result(); err == nil {
		h.Keys = n
	}
	return h
}
