package biz

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/persona-assistant/internal/assistant/store"
	"github.com/kart-io/persona-assistant/internal/pkg/codeindex"
)

// 辅助函数：创建测试用 Redis 客户端
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
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

func testCacheConfig() *AnswerCacheConfig {
	return &AnswerCacheConfig{Enabled: true, TTL: time.Minute, KeyPrefix: "test:answer:"}
}

func TestNewAnswerCacheDefaults(t *testing.T) {
	c := NewAnswerCache(nil, nil)
	assert.False(t, c.Enabled())
	assert.Equal(t, "assistant:answer:", c.config.KeyPrefix)
	assert.Equal(t, time.Hour, c.config.TTL)

	var nilCache *AnswerCache
	assert.False(t, nilCache.Enabled())
}

func TestAnswerCacheKey(t *testing.T) {
	c := NewAnswerCache(nil, testCacheConfig())

	k1 := c.cacheKey(RoleDeveloper, "How is retrieval built?", "v1")
	k2 := c.cacheKey(RoleDeveloper, "  how is   RETRIEVAL built? ", "v1")
	k3 := c.cacheKey(RoleDeveloper, "How is retrieval built?", "v2")
	k4 := c.cacheKey(RoleTechnicalManager, "How is retrieval built?", "v1")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
	assert.Contains(t, k1, "test:answer:")
}

func TestAnswerCacheDisabled(t *testing.T) {
	c := NewAnswerCache(nil, testCacheConfig())
	ctx := context.Background()

	_, err := c.Get(ctx, RoleDeveloper, "q", "v1")
	assert.Error(t, err)
	assert.NoError(t, c.Set(ctx, RoleDeveloper, "q", "v1", &TechnicalAnswer{Answer: "a"}))
	assert.NoError(t, c.Clear(ctx))
}

func TestAnswerCacheRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	c := NewAnswerCache(client, testCacheConfig())
	ctx := context.Background()

	miss, err := c.Get(ctx, RoleDeveloper, "q", "v1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	answer := &TechnicalAnswer{
		Answer:       "Noah wrote it.",
		CodeSymbols:  []codeindex.Symbol{symbol("a.py", "f", 1, 2)},
		HasCode:      true,
		IndexVersion: "v1",
	}
	require.NoError(t, c.Set(ctx, RoleDeveloper, "q", "v1", answer))

	got, err := c.Get(ctx, RoleDeveloper, "q", "v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, answer.Answer, got.Answer)
	assert.Equal(t, "a.py:1-2", got.CodeSymbols[0].Citation)

	stale, err := c.Get(ctx, RoleDeveloper, "q", "v2")
	require.NoError(t, err)
	assert.Nil(t, stale)

	require.NoError(t, c.Clear(ctx))
	cleared, err := c.Get(ctx, RoleDeveloper, "q", "v1")
	require.NoError(t, err)
	assert.Nil(t, cleared)
}

func TestRouteServesCachedTechnicalAnswer(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	chat := &fakeChat{reply: "The retriever embeds the query."}
	code := &fakeCode{byName: []codeindex.Symbol{symbol("r.py", "retrieve", 1, 5)}, version: "v1"}
	r := NewRouter(&Engine{
		Embedder: &fakeEmbedder{},
		Chat:     chat,
		Index:    &fakeIndex{candidates: []store.Candidate{{Content: "ctx", SourceID: "s", Similarity: 0.9}}},
		Code:     code,
		Cache:    NewAnswerCache(client, testCacheConfig()),
	}, nil, nil)
	ctx := context.Background()
	req := RouteRequest{Role: "developer", Query: "How is retrieval implemented?"}

	first := r.Route(ctx, req)
	second := r.Route(ctx, req)

	assert.False(t, first.Meta.Cached)
	assert.True(t, second.Meta.Cached)
	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, 1, chat.Calls())

	code.version = "v2"
	third := r.Route(ctx, req)
	assert.False(t, third.Meta.Cached)
	assert.Equal(t, 2, chat.Calls())
}
