package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/persona-assistant/internal/assistant/biz"
	"github.com/kart-io/persona-assistant/internal/assistant/store"
	"github.com/kart-io/persona-assistant/internal/pkg/codeindex"
	"github.com/kart-io/persona-assistant/internal/pkg/memory"
	"github.com/kart-io/persona-assistant/internal/pkg/tokenbudget"
	"github.com/kart-io/persona-assistant/pkg/component/milvus"
	"github.com/kart-io/persona-assistant/pkg/component/redis"
	logfields "github.com/kart-io/persona-assistant/pkg/infra/logger"
	"github.com/kart-io/persona-assistant/pkg/infra/pool"
	"github.com/kart-io/persona-assistant/pkg/infra/tracing"
	"github.com/kart-io/persona-assistant/pkg/llm"
	// 注册模型供应商
	_ "github.com/kart-io/persona-assistant/pkg/llm/ollama"
	_ "github.com/kart-io/persona-assistant/pkg/llm/openai"
	memoryopts "github.com/kart-io/persona-assistant/pkg/options/memory"
	retrievalopts "github.com/kart-io/persona-assistant/pkg/options/retrieval"
)

const (
	tracerName   = "github.com/kart-io/persona-assistant/internal/assistant"
	redisTimeout = 3 * time.Second
)

// Assistant 持有全部运行时组件。
type Assistant struct {
	cfg     *Config
	engine  *biz.Engine
	router  *biz.Router
	code    *codeindex.Index
	pool    *pool.Pool
	milvus  *milvus.Client
	redis   *redis.Client
	tracing *tracing.Provider
}

// NewAssistant builds every component from cfg. Optional backends that are
// unreachable are logged and skipped; only invalid local input is fatal.
func (cfg *Config) NewAssistant(ctx context.Context) (*Assistant, error) {
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", version.Get().GitVersion)
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &Assistant{cfg: cfg}

	cfg.TracingOptions.ServiceVersion = version.Get().GitVersion
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracing = tp

	if cfg.needsRedis() {
		a.redis = connectRedis(ctx, cfg)
	}

	a.engine = biz.NewEngine(llm.NewFactory(&llm.FactoryConfig{
		EmbeddingProvider: cfg.EmbeddingOptions.Provider,
		EmbeddingConfig:   cfg.EmbeddingOptions.ToConfigMap(),
		ChatProvider:      cfg.ChatOptions.Provider,
		ChatConfig:        cfg.ChatOptions.ToConfigMap(),
		StubDimension:     cfg.RetrievalOptions.Dimension,
	}))
	a.engine.Tokens = tokenbudget.New(cfg.GeneratorOptions.Tokenizer)

	if a.redis != nil && cfg.EmbeddingCacheOptions.Enabled {
		a.engine.Embedder = llm.NewCachedEmbeddingProvider(a.engine.Embedder, a.redis.Client(), &llm.EmbeddingCacheConfig{
			Enabled:   true,
			TTL:       cfg.EmbeddingCacheOptions.TTL,
			KeyPrefix: cfg.EmbeddingCacheOptions.KeyPrefix,
		})
	}

	index, err := a.openIndex(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.engine.Index = index

	if err := a.openCodeIndex(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.engine.Memory = memory.New(ctx, a.sessionStore())

	if a.redis != nil && cfg.AnswerCacheOptions.Enabled {
		a.engine.Cache = biz.NewAnswerCache(a.redis.Client(), &biz.AnswerCacheConfig{
			Enabled:   true,
			TTL:       cfg.AnswerCacheOptions.TTL,
			KeyPrefix: cfg.AnswerCacheOptions.KeyPrefix,
		})
	}

	a.router = biz.NewRouter(a.engine, cfg.routerConfig(), cfg.generatorConfig())

	logger.Infow("assistant ready",
		"retriever", a.router.Retriever().Kind(),
		"embedding", a.engine.Embedder.Name(),
		"chat", a.engine.Chat.Name(),
		"degraded", a.engine.Degraded(),
		"code_index", a.code != nil,
		"redis", a.redis != nil,
	)
	return a, nil
}

func connectRedis(ctx context.Context, cfg *Config) *redis.Client {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	client, err := redis.New(ctx, cfg.RedisOptions)
	if err != nil {
		logger.Warnw("redis unavailable, caches and redis session storage disabled",
			"addr", cfg.RedisOptions.Addr(), "error", err.Error())
		return nil
	}
	return client
}

// openIndex 打开配置的向量索引。内存索引会在加载时补齐缺失的向量。
func (a *Assistant) openIndex(ctx context.Context) (store.VectorIndex, error) {
	opts := a.cfg.RetrievalOptions
	switch opts.Index {
	case retrievalopts.IndexMilvus:
		client, err := milvus.New(ctx, a.cfg.MilvusOptions)
		if err != nil {
			logger.Warnw("milvus unavailable, answering without retrieved context", "error", err.Error())
			return nil, nil
		}
		a.milvus = client
		return store.NewMilvusIndex(client, a.cfg.MilvusOptions.Collection), nil
	default:
		idx, err := store.LoadMemoryIndex(opts.CorpusPath)
		if err != nil {
			return nil, err
		}
		if err := idx.EnsureEmbeddings(ctx, a.engine.Embedder); err != nil {
			logger.Warnw("corpus embedding failed, documents without vectors are skipped", "error", err.Error())
		}
		return idx, nil
	}
}

func (a *Assistant) openCodeIndex(ctx context.Context) error {
	opts := a.cfg.CodeIndexOptions
	if !opts.Enabled() {
		return nil
	}

	p, err := pool.NewPool("codeindex", &pool.Config{
		Capacity:       opts.Workers,
		ExpiryDuration: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create parser pool: %w", err)
	}
	a.pool = p

	a.code = codeindex.New(codeindex.Config{
		Root:         opts.Root,
		LinkBase:     opts.LinkBase,
		CheckModTime: opts.CheckModTime,
		MaxResults:   opts.MaxResults,
	}, codeindex.NewParser(), p)

	start := time.Now()
	if err := a.code.Build(ctx); err != nil {
		return fmt.Errorf("failed to build code index for %s: %w", opts.Root, err)
	}
	logger.Infow("code index built", "root", opts.Root, "symbols", a.code.Size(),
		"duration_ms", time.Since(start).Milliseconds())
	a.engine.Code = a.code
	return nil
}

func (a *Assistant) sessionStore() memory.DocumentStore {
	opts := a.cfg.MemoryOptions
	switch opts.Backend {
	case memoryopts.BackendFile:
		return memory.NewFileStore(opts.Path)
	case memoryopts.BackendRedis:
		if a.redis == nil {
			logger.Warnw("redis session storage unavailable, sessions are kept in memory only")
			return nil
		}
		return memory.NewRedisStore(a.redis.Client(), opts.RedisKey)
	default:
		return nil
	}
}

// Ask 路由一次问答。sessionID 为空时不读写会话历史。
func (a *Assistant) Ask(ctx context.Context, sessionID, role, query string) *biz.RoutedResponse {
	ctx, span := tracing.StartSpan(ctx, tracerName, "assistant.ask",
		attribute.String("assistant.role", role),
		attribute.Bool("assistant.session", sessionID != ""),
	)
	defer span.End()

	ctx = logfields.WithSpan(logfields.WithRole(logfields.WithSessionID(ctx, sessionID), role))
	resp := a.router.RouteSession(ctx, sessionID, role, query)

	tracing.AddSpanAttributes(ctx,
		attribute.String("assistant.request_id", resp.Meta.RequestID),
		attribute.String("assistant.response_type", string(resp.Type)),
		attribute.Int("assistant.context_items", len(resp.Context)),
		attribute.Int("assistant.code_symbols", len(resp.CodeSymbols)),
		attribute.Bool("assistant.degraded", resp.Meta.Degraded),
		attribute.Bool("assistant.cached", resp.Meta.Cached),
	)
	logfields.FromContext(logfields.WithRequestID(ctx, resp.Meta.RequestID)).Debugw("question answered",
		"type", resp.Type,
		"turn", resp.Meta.TurnIndex,
		"degraded", resp.Meta.Degraded,
	)
	return resp
}

// ClearSession 删除会话历史。
func (a *Assistant) ClearSession(ctx context.Context, sessionID string) {
	a.engine.Memory.Clear(ctx, sessionID)
}

// Stats 返回运行统计与后端状态。
func (a *Assistant) Stats(ctx context.Context) map[string]any {
	stats := a.engine.Metrics.Stats()
	stats["retriever"] = a.router.Retriever().Kind()
	stats["degraded"] = a.engine.Degraded()
	if a.code != nil {
		codeStats, _ := stats["code"].(map[string]any)
		if codeStats != nil {
			codeStats["symbols"] = a.code.Size()
			if v, err := a.code.Version(ctx); err == nil {
				codeStats["index_version"] = v
			}
		}
	}
	if a.pool != nil {
		stats["pool"] = a.pool.Stats()
	}
	if a.redis != nil {
		stats["redis"] = a.redis.Health(ctx)
	}
	if idx, ok := a.engine.Index.(*store.MilvusIndex); ok {
		milvusStats := map[string]any{"collection": idx.Collection()}
		if rows, err := idx.Count(ctx); err == nil {
			milvusStats["rows"] = rows
		} else {
			milvusStats["error"] = err.Error()
		}
		stats["milvus"] = milvusStats
	}
	return stats
}

// Metrics 以 Prometheus 文本格式导出指标。
func (a *Assistant) Metrics() string {
	return a.engine.Metrics.Export("persona", "assistant")
}

// Close releases every backend. Safe to call more than once.
func (a *Assistant) Close(ctx context.Context) {
	if a.pool != nil {
		a.pool.Release()
		a.pool = nil
	}
	if a.engine != nil && a.engine.Index != nil {
		if err := a.engine.Index.Close(ctx); err != nil {
			logger.Debugw("close vector index", "error", err.Error())
		}
		a.engine.Index = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		logger.Debugw("shutdown tracing", "error", err.Error())
	}
	_ = logger.Flush()
}
