package biz

import (
	"context"

	"github.com/kart-io/persona-assistant/internal/assistant/metrics"
	"github.com/kart-io/persona-assistant/internal/assistant/store"
	"github.com/kart-io/persona-assistant/internal/pkg/codeindex"
	"github.com/kart-io/persona-assistant/internal/pkg/memory"
	"github.com/kart-io/persona-assistant/internal/pkg/tokenbudget"
	"github.com/kart-io/persona-assistant/pkg/id"
	"github.com/kart-io/persona-assistant/pkg/llm"
)

// CodeSearcher 代码符号检索接口，由 codeindex.Index 实现。
type CodeSearcher interface {
	SearchByNameOrContent(ctx context.Context, query string, max int) ([]codeindex.Symbol, error)
	SearchByKeywords(ctx context.Context, keywords []string, max int) ([]codeindex.Symbol, error)
	Version(ctx context.Context) (string, error)
}

var _ CodeSearcher = (*codeindex.Index)(nil)

// Engine 路由器依赖的全部协作者。Index、Code、Memory、Cache 可以为空。
type Engine struct {
	Embedder         llm.EmbeddingProvider
	EmbedderDegraded bool
	Chat             llm.ChatProvider
	ChatDegraded     bool

	Index  store.VectorIndex
	Code   CodeSearcher
	Memory *memory.Memory
	Cache  *AnswerCache

	Metrics *metrics.Metrics
	Tokens  tokenbudget.Counter
	IDs     id.Generator
}

// NewEngine 通过供应商工厂构造模型客户端，其余依赖由调用方填充。
func NewEngine(factory *llm.Factory) *Engine {
	e := &Engine{}
	e.Embedder, e.EmbedderDegraded = factory.CreateEmbeddingClient()
	e.Chat, e.ChatDegraded = factory.CreateGenerationClient()
	return e.withDefaults()
}

// Degraded reports whether any model client is running offline.
func (e *Engine) Degraded() bool {
	return e.EmbedderDegraded || e.ChatDegraded
}

func (e *Engine) withDefaults() *Engine {
	if e.Metrics == nil {
		e.Metrics = metrics.New()
	}
	if e.Tokens == nil {
		e.Tokens = tokenbudget.RuneCounter{}
	}
	if e.IDs == nil {
		e.IDs = id.NewULIDGenerator()
	}
	if e.Embedder == nil {
		e.Embedder, e.EmbedderDegraded = llm.NewStubEmbeddingProvider(0), true
	}
	if e.Chat == nil {
		e.Chat, e.ChatDegraded = llm.NewStubChatProvider(), true
	}
	return e
}
