// Package assistant 组装检索、代码索引、会话记忆与生成组件，对外提供单次问答、
// 语料导入与运行统计。
package assistant

import (
	"github.com/kart-io/persona-assistant/internal/assistant/biz"
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

// Name is the name of the application.
const Name = "persona-assistant"

// Config contains the resolved configuration of the assistant.
type Config struct {
	LogOptions            *logopts.Options
	TracingOptions        *tracingopts.Options
	EmbeddingOptions      *llmopts.ProviderOptions
	ChatOptions           *llmopts.ProviderOptions
	RetrievalOptions      *retrievalopts.Options
	MilvusOptions         *milvusopts.Options
	CodeIndexOptions      *codeindexopts.Options
	MemoryOptions         *memoryopts.Options
	RedisOptions          *redisopts.Options
	AnswerCacheOptions    *cacheopts.Options
	EmbeddingCacheOptions *cacheopts.Options
	GeneratorOptions      *assistantopts.GeneratorOptions
	RouterOptions         *assistantopts.RouterOptions
}

// needsRedis reports whether any component is configured to use Redis.
func (cfg *Config) needsRedis() bool {
	return cfg.MemoryOptions.Backend == memoryopts.BackendRedis ||
		cfg.AnswerCacheOptions.Enabled ||
		cfg.EmbeddingCacheOptions.Enabled
}

func (cfg *Config) routerConfig() *biz.RouterConfig {
	rc := biz.DefaultRouterConfig()
	rc.TopK = cfg.RetrievalOptions.TopK
	rc.Threshold = cfg.RetrievalOptions.Threshold
	if cfg.CodeIndexOptions.MaxResults > 0 {
		rc.CodeMaxResults = cfg.CodeIndexOptions.MaxResults
	}
	if cfg.RouterOptions.MMALink != "" {
		rc.MMALink = cfg.RouterOptions.MMALink
	}
	if cfg.RouterOptions.ConfessionReply != "" {
		rc.ConfessionReply = cfg.RouterOptions.ConfessionReply
	}
	return rc
}

func (cfg *Config) generatorConfig() *biz.GeneratorConfig {
	gc := biz.DefaultGeneratorConfig()
	g := cfg.GeneratorOptions
	gc.SubjectName = g.Subject
	gc.ContextTokens = g.ContextTokens
	gc.HistoryTokens = g.HistoryTokens
	gc.HistoryMessages = g.HistoryMessages
	gc.FollowUp = g.FollowUp
	return gc
}
