package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/persona-assistant/pkg/options/redis"
)

func TestNewRejectsNilOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Port = 0

	_, err := New(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis options")
}

func TestClientOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Host = "cache.internal"
	opts.Port = 6380
	opts.Database = 2
	opts.Password = "secret"

	got := clientOptions(opts)
	assert.Equal(t, "cache.internal:6380", got.Addr)
	assert.Equal(t, 2, got.DB)
	assert.Equal(t, "secret", got.Password)
	assert.Equal(t, 3*time.Second, got.ReadTimeout)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Close())
	assert.Nil(t, c.Client())
}

func TestHealthAgainstLocalRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := New(ctx, options.NewOptions())
	if err != nil {
		t.Skip("Redis 不可用，跳过测试")
	}
	defer func() { _ = c.Close() }()

	h := c.Health(ctx)
	assert.True(t, h.Healthy)
	assert.Empty(t, h.Error)
	assert.Equal(t, "redis", c.Name())
}
