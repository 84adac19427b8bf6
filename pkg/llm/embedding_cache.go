package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/persona-assistant/pkg/utils/json"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig 返回默认的 Embedding 缓存配置。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       24 * time.Hour,
		KeyPrefix: "emb:",
	}
}

// CachedEmbeddingProvider 为 Embedding 供应商增加 Redis 缓存。
// 缓存读写失败时直接回退到底层供应商。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    *goredis.Client
	config   *EmbeddingCacheConfig
}

// NewCachedEmbeddingProvider 创建带缓存的 Embedding Provider。
// 降级实现本身是确定性的，不会被缓存。
func NewCachedEmbeddingProvider(
	provider EmbeddingProvider,
	redis *goredis.Client,
	config *EmbeddingCacheConfig,
) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	if IsDegraded(provider) {
		cp := *config
		cp.Enabled = false
		config = &cp
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

func (c *CachedEmbeddingProvider) enabled() bool {
	return c.config.Enabled && c.redis != nil
}

func (c *CachedEmbeddingProvider) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(c.provider.Name() + "\x00" + text))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

func (c *CachedEmbeddingProvider) lookup(ctx context.Context, text string) ([]float32, bool) {
	key := c.cacheKey(text)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Warnw("redis get error, falling back to provider", "error", err.Error())
		}
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		logger.Warnw("failed to unmarshal cached embedding, deleting", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return embedding, true
}

func (c *CachedEmbeddingProvider) store(ctx context.Context, text string, embedding []float32) {
	data, err := json.Marshal(embedding)
	if err != nil {
		logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
		return
	}
	key := c.cacheKey(text)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "error", err.Error(), "key", key)
	}
}

// EmbedSingle 生成单个 Embedding（带缓存）。
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if !c.enabled() {
		return c.provider.EmbedSingle(ctx, text)
	}

	if embedding, ok := c.lookup(ctx, text); ok {
		logger.Debugw("embedding cache hit", "text_length", len(text))
		return embedding, nil
	}

	embedding, err := c.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, text, embedding)
	return embedding, nil
}

// Embed 批量生成 Embedding（带缓存），只对未命中的文本调用底层供应商。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.enabled() {
		return c.provider.Embed(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if embedding, ok := c.lookup(ctx, text); ok {
			embeddings[i] = embedding
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		logger.Debugw("all embeddings from cache", "total", len(texts))
		return embeddings, nil
	}

	logger.Debugw("embedding cache miss (batch)", "total", len(texts), "uncached", len(missTexts))
	fresh, err := c.provider.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for i, idx := range missIdx {
		if i >= len(fresh) {
			break
		}
		embeddings[idx] = fresh[i]
		c.store(ctx, missTexts[i], fresh[i])
	}
	return embeddings, nil
}

// Name 返回底层 provider 的名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// ClearCache 清除所有 Embedding 缓存，返回删除的键数量。
func (c *CachedEmbeddingProvider) ClearCache(ctx context.Context) (int, error) {
	if !c.enabled() {
		return 0, nil
	}

	deleted := 0
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	return deleted, iter.Err()
}
