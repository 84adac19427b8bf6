package memory

import (
	"context"
	"testing"

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

func TestRedisStore(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()
	ctx := context.Background()

	store := NewRedisStore(rdb, "")
	doc, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc)

	m := New(ctx, store)
	m.Store(ctx, "s1", "developer", history(12))

	reloaded := New(ctx, NewRedisStore(rdb, DefaultRedisKey))
	got, ok := reloaded.Retrieve(ctx, "s1")
	require.True(t, ok)
	assert.Len(t, got.ChatHistory, MaxHistory)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, "test:sessions", "not json", 0).Err())
	_, err := NewRedisStore(rdb, "test:sessions").Load(ctx)
	assert.Error(t, err)
}
