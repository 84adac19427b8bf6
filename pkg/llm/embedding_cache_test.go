package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis 不可用，跳过测试")
	}
	client.FlushDB(ctx)
	return client
}

type countingEmbedder struct {
	mockProvider
	calls atomic.Int32
	texts atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	c.texts.Add(int32(len(texts)))
	return c.mockProvider.Embed(ctx, texts)
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	c.texts.Add(1)
	return c.mockProvider.EmbedSingle(ctx, text)
}

func TestCachedEmbeddingDisabledWithoutRedis(t *testing.T) {
	inner := &countingEmbedder{mockProvider: mockProvider{name: "m"}}
	c := NewCachedEmbeddingProvider(inner, nil, nil)

	_, err := c.EmbedSingle(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.EmbedSingle(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, "m-cached", c.Name())
	n, err := c.ClearCache(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestCachedEmbeddingSkipsStub(t *testing.T) {
	c := NewCachedEmbeddingProvider(NewStubEmbeddingProvider(8), nil, DefaultEmbeddingCacheConfig())
	assert.False(t, c.config.Enabled)
	assert.True(t, DefaultEmbeddingCacheConfig().Enabled, "default config must not be mutated")
}

func TestCachedEmbeddingWithRedis(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	ctx := context.Background()
	inner := &countingEmbedder{mockProvider: mockProvider{name: "m"}}
	c := NewCachedEmbeddingProvider(inner, rdb, &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       time.Minute,
		KeyPrefix: "test:emb:",
	})

	first, err := c.EmbedSingle(ctx, "hello")
	require.NoError(t, err)
	second, err := c.EmbedSingle(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())

	batch, err := c.Embed(ctx, []string{"hello", "world"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.Equal(t, int32(2), inner.texts.Load(), "only the uncached text reaches the provider")

	n, err := c.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
