package biz

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/persona-assistant/internal/pkg/textutil"
	"github.com/kart-io/persona-assistant/pkg/errors"
	"github.com/kart-io/persona-assistant/pkg/utils/json"
)

// AnswerCacheConfig 回答缓存配置。
type AnswerCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// DefaultAnswerCacheConfig 返回默认缓存配置（默认禁用）。
func DefaultAnswerCacheConfig() *AnswerCacheConfig {
	return &AnswerCacheConfig{
		Enabled:   false,
		TTL:       time.Hour,
		KeyPrefix: "assistant:answer:",
	}
}

// AnswerCache 技术类回答缓存。
// 键包含代码索引版本，索引变更后旧条目自然失效。
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache 创建回答缓存实例。
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = DefaultAnswerCacheConfig()
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

// Enabled reports whether the cache is usable.
func (c *AnswerCache) Enabled() bool {
	return c != nil && c.config.Enabled && c.redis != nil
}

// cacheKey 基于角色、规范化后的问题与索引版本生成缓存键。
func (c *AnswerCache) cacheKey(role Role, query, version string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return c.config.KeyPrefix + textutil.HashKey(role.String(), normalized, version)
}

// Get 从缓存获取回答，未命中时返回 (nil, nil)。
func (c *AnswerCache) Get(ctx context.Context, role Role, query, version string) (*TechnicalAnswer, error) {
	if !c.Enabled() {
		return nil, errors.ErrCacheUnavailable
	}

	key := c.cacheKey(role, query, version)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, goredis.Nil) {
			logger.Debugw("answer cache miss", "role", role.String(), "key", key)
			return nil, nil
		}
		logger.Warnw("failed to get from answer cache", "error", err.Error(), "key", key)
		return nil, errors.ErrCacheUnavailable.WithCause(err)
	}

	var answer TechnicalAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		logger.Warnw("failed to unmarshal cached answer", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Debugw("answer cache hit", "role", role.String(), "key", key, "index_version", answer.IndexVersion)
	return &answer, nil
}

// Set 写入缓存。
func (c *AnswerCache) Set(ctx context.Context, role Role, query, version string, answer *TechnicalAnswer) error {
	if !c.Enabled() || answer == nil {
		return nil
	}

	data, err := json.Marshal(answer)
	if err != nil {
		logger.Warnw("failed to marshal answer for caching", "error", err.Error())
		return err
	}

	key := c.cacheKey(role, query, version)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set answer cache", "error", err.Error(), "key", key)
		return errors.ErrCacheUnavailable.WithCause(err)
	}
	return nil
}

// Clear 清除全部回答缓存。
func (c *AnswerCache) Clear(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return err
	}

	logger.Infow("cleared answer cache", "deleted_count", deleted)
	return nil
}
