// Package options contains flags and options for the persona assistant.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/persona-assistant/internal/assistant"
	"github.com/kart-io/persona-assistant/pkg/app/cliflag"
	genericoptions "github.com/kart-io/persona-assistant/pkg/options"
	assistantopts "github.com/kart-io/persona-assistant/pkg/options/assistant"
	cacheopts "github.com/kart-io/persona-assistant/pkg/options/cache"
	codeindexopts "github.com/kart-io/persona-assistant/pkg/options/codeindex"
	llmopts "github.com/kart-io/persona-assistant/pkg/options/llm"
	logopts "github.com/kart-io/persona-assistant/pkg/options/logger"
	memoryopts "github.com/kart-io/persona-assistant/pkg/options/memory"
	milvusopts "github.com/kart-io/persona-assistant/pkg/options/milvus"
	redisopts "github.com/kart-io/persona-assistant/pkg/options/redis"
	retrievalopts "github.com/kart-io/persona-assistant/pkg/options/retrieval"
	tracingopts "github.com/kart-io/persona-assistant/pkg/options/tracing"
)

// Options contains the configuration options for the assistant.
type Options struct {
	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RetrievalOptions contains corpus and vector search configuration.
	RetrievalOptions *retrievalopts.Options `json:"retrieval" mapstructure:"retrieval"`

	// MilvusOptions contains Milvus configuration, used when retrieval.index is milvus.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// CodeIndexOptions contains source symbol index configuration.
	CodeIndexOptions *codeindexopts.Options `json:"codeindex" mapstructure:"codeindex"`

	// MemoryOptions contains conversation memory configuration.
	MemoryOptions *memoryopts.Options `json:"memory" mapstructure:"memory"`

	// RedisOptions contains Redis configuration shared by caches and memory.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// AnswerCacheOptions contains answer cache configuration.
	AnswerCacheOptions *cacheopts.Options `json:"answer-cache" mapstructure:"answer-cache"`

	// EmbeddingCacheOptions contains embedding cache configuration.
	EmbeddingCacheOptions *cacheopts.Options `json:"embedding-cache" mapstructure:"embedding-cache"`

	GeneratorOptions *assistantopts.GeneratorOptions `json:"generator" mapstructure:"generator"`
	RouterOptions    *assistantopts.RouterOptions    `json:"router" mapstructure:"router"`
}

// NewOptions creates an Options instance with default values.
func NewOptions() *Options {
	return &Options{
		LogOptions:            logopts.NewOptions(),
		TracingOptions:        tracingopts.NewOptions(),
		EmbeddingOptions:      llmopts.NewEmbeddingOptions(),
		ChatOptions:           llmopts.NewChatOptions(),
		RetrievalOptions:      retrievalopts.NewOptions(),
		MilvusOptions:         milvusopts.NewOptions(),
		CodeIndexOptions:      codeindexopts.NewOptions(),
		MemoryOptions:         memoryopts.NewOptions(),
		RedisOptions:          redisopts.NewOptions(),
		AnswerCacheOptions:    cacheopts.NewAnswerOptions(),
		EmbeddingCacheOptions: cacheopts.NewEmbeddingOptions(),
		GeneratorOptions:      assistantopts.NewGeneratorOptions(),
		RouterOptions:         assistantopts.NewRouterOptions(),
	}
}

// Flags returns flags grouped by section name.
func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.RetrievalOptions.AddFlags(fss.FlagSet("retrieval"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.CodeIndexOptions.AddFlags(fss.FlagSet("codeindex"))
	o.MemoryOptions.AddFlags(fss.FlagSet("memory"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.AnswerCacheOptions.AddFlags(fss.FlagSet("cache"), "answer-cache")
	o.EmbeddingCacheOptions.AddFlags(fss.FlagSet("cache"), "embedding-cache")
	o.GeneratorOptions.AddFlags(fss.FlagSet("generator"))
	o.RouterOptions.AddFlags(fss.FlagSet("router"))
	return fss
}

// Complete completes all the required options.
func (o *Options) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.RedisOptions.Complete(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Validate checks whether the options are valid.
func (o *Options) Validate() error {
	errs := genericoptions.ValidateAll(
		o.LogOptions,
		o.TracingOptions,
		o.EmbeddingOptions,
		o.ChatOptions,
		o.RetrievalOptions,
		o.CodeIndexOptions,
		o.MemoryOptions,
		o.AnswerCacheOptions,
		o.EmbeddingCacheOptions,
		o.GeneratorOptions,
		o.RouterOptions,
	)
	if o.RetrievalOptions.Index == retrievalopts.IndexMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	if o.needsRedis() {
		errs = append(errs, o.RedisOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

func (o *Options) needsRedis() bool {
	return o.MemoryOptions.Backend == memoryopts.BackendRedis ||
		o.AnswerCacheOptions.Enabled ||
		o.EmbeddingCacheOptions.Enabled
}

// Config builds an assistant.Config from the options.
func (o *Options) Config() (*assistant.Config, error) {
	return &assistant.Config{
		LogOptions:            o.LogOptions,
		TracingOptions:        o.TracingOptions,
		EmbeddingOptions:      o.EmbeddingOptions,
		ChatOptions:           o.ChatOptions,
		RetrievalOptions:      o.RetrievalOptions,
		MilvusOptions:         o.MilvusOptions,
		CodeIndexOptions:      o.CodeIndexOptions,
		MemoryOptions:         o.MemoryOptions,
		RedisOptions:          o.RedisOptions,
		AnswerCacheOptions:    o.AnswerCacheOptions,
		EmbeddingCacheOptions: o.EmbeddingCacheOptions,
		GeneratorOptions:      o.GeneratorOptions,
		RouterOptions:         o.RouterOptions,
	}, nil
}
