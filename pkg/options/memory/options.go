// Package memory provides conversation memory options.
package memory

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// 会话文档的持久化后端。
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Options 会话记忆配置。
type Options struct {
	// Backend 持久化后端（none, file, redis）。
	Backend string `json:"backend" mapstructure:"backend"`

	// Path file 后端的 JSON 文件路径。
	Path string `json:"path" mapstructure:"path"`

	// RedisKey redis 后端存放会话文档的键。
	RedisKey string `json:"redis-key" mapstructure:"redis-key"`
}

// NewOptions creates default memory options.
func NewOptions() *Options {
	return &Options{
		Backend:  BackendFile,
		Path:     "data/conversation_memory.json",
		RedisKey: "assistant:memory",
	}
}

// AddFlags adds flags for memory options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "memory."
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Session persistence backend (none, file, redis).")
	fs.StringVar(&o.Path, p+"path", o.Path, "Session document path for the file backend.")
	fs.StringVar(&o.RedisKey, p+"redis-key", o.RedisKey, "Session document key for the redis backend.")
}

// Validate validates the memory options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	switch o.Backend {
	case BackendNone:
	case BackendFile:
		if o.Path == "" {
			return []error{fmt.Errorf("memory path is required for the file backend")}
		}
	case BackendRedis:
		if o.RedisKey == "" {
			return []error{fmt.Errorf("memory redis-key is required for the redis backend")}
		}
	default:
		return []error{fmt.Errorf("unknown memory backend %q", o.Backend)}
	}
	return nil
}
