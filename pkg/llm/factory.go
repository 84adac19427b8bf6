package llm

import (
	"fmt"

	"github.com/kart-io/logger"
)

// FactoryConfig 选择 Embedding 与 Chat 供应商的配置。
type FactoryConfig struct {
	// EmbeddingProvider Embedding 供应商名称（如 openai、ollama、stub）。
	EmbeddingProvider string
	// EmbeddingConfig 传给 Embedding 供应商工厂的配置。
	EmbeddingConfig map[string]any

	// ChatProvider Chat 供应商名称。
	ChatProvider string
	// ChatConfig 传给 Chat 供应商工厂的配置。
	ChatConfig map[string]any

	// StubDimension 降级 Embedding 的向量维度，需与向量索引一致。
	StubDimension int
}

// Factory 按配置构造供应商，构造失败时返回离线降级实现。
// 构造只发生一次，失败不会重试。
type Factory struct {
	cfg *FactoryConfig
}

// NewFactory 创建供应商工厂。
func NewFactory(cfg *FactoryConfig) *Factory {
	if cfg == nil {
		cfg = &FactoryConfig{}
	}
	return &Factory{cfg: cfg}
}

// CreateEmbeddingClient 创建 Embedding 客户端，第二个返回值表示是否降级。
func (f *Factory) CreateEmbeddingClient() (EmbeddingProvider, bool) {
	name := f.cfg.EmbeddingProvider
	if name == StubProviderName {
		return NewStubEmbeddingProvider(f.cfg.StubDimension), true
	}

	p, err := safeBuild(func() (EmbeddingProvider, error) {
		return NewEmbeddingProvider(name, f.cfg.EmbeddingConfig)
	})
	if err != nil {
		logger.Warnw("embedding provider unavailable, using offline embeddings",
			"provider", name, "error", err.Error())
		return NewStubEmbeddingProvider(f.cfg.StubDimension), true
	}

	logger.Infow("embedding provider ready", "provider", p.Name())
	return p, false
}

// CreateGenerationClient 创建 Chat 客户端，第二个返回值表示是否降级。
func (f *Factory) CreateGenerationClient() (ChatProvider, bool) {
	name := f.cfg.ChatProvider
	if name == StubProviderName {
		return NewStubChatProvider(), true
	}

	p, err := safeBuild(func() (ChatProvider, error) {
		return NewChatProvider(name, f.cfg.ChatConfig)
	})
	if err != nil {
		logger.Warnw("chat provider unavailable, using offline generation",
			"provider", name, "error", err.Error())
		return NewStubChatProvider(), true
	}

	logger.Infow("chat provider ready", "provider", p.Name())
	return p, false
}

// safeBuild 调用供应商构造函数，并把 panic 与空实例都视为构造失败。
func safeBuild[T any](build func() (T, error)) (p T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			p, err = zero, fmt.Errorf("provider constructor panicked: %v", r)
		}
	}()

	p, err = build()
	if err != nil {
		return p, err
	}
	if any(p) == nil {
		return p, fmt.Errorf("provider constructor returned nil")
	}
	return p, nil
}
