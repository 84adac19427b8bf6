// Package cache provides Redis-backed cache options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options 单个缓存的配置，连接信息由共享的 Redis 配置提供。
type Options struct {
	// Enabled 是否启用缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
}

// NewAnswerOptions 技术问答缓存默认配置，默认关闭。
func NewAnswerOptions() *Options {
	return &Options{
		TTL:       time.Hour,
		KeyPrefix: "assistant:answer:",
	}
}

// NewEmbeddingOptions Embedding 缓存默认配置。
func NewEmbeddingOptions() *Options {
	return &Options{
		Enabled:   true,
		TTL:       24 * time.Hour,
		KeyPrefix: "assistant:emb:",
	}
}

// AddFlags adds flags for cache options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Enable the cache (requires Redis).")
	fs.DurationVar(&o.TTL, p+"ttl", o.TTL, "Cache entry TTL.")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Cache key prefix.")
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive"))
	}
	if o.KeyPrefix == "" {
		errs = append(errs, fmt.Errorf("cache key prefix is required"))
	}
	return errs
}
