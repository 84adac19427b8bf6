// Package llm 提供统一的模型供应商抽象层。
// Embedding 与 Chat 可以使用不同供应商，并在构造失败时降级为确定性的离线实现。
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// Chat 进行多轮对话。
	Chat(ctx context.Context, messages []Message) (string, error)

	// Generate 根据提示生成文本（单轮）。
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Degradable 由离线降级实现提供，用于判断当前是否处于降级模式。
type Degradable interface {
	Degraded() bool
}

// IsDegraded 判断供应商是否为降级实现。
func IsDegraded(p any) bool {
	d, ok := p.(Degradable)
	return ok && d.Degraded()
}

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Provider 同时支持 Embedding 和 Chat 的完整供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// ProviderFactory 同时提供 Embedding 与 Chat 的供应商工厂。
type ProviderFactory func(config map[string]any) (Provider, error)

// EmbeddingProviderFactory Embedding 供应商工厂。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// ChatProviderFactory Chat 供应商工厂。
type ChatProviderFactory func(config map[string]any) (ChatProvider, error)

// registration 记录一个名称下的工厂。专用工厂优先于完整供应商工厂。
type registration struct {
	full  ProviderFactory
	embed EmbeddingProviderFactory
	chat  ChatProviderFactory
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*registration{}
)

func register(name string, fn func(r *registration)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	r, ok := registry[name]
	if !ok {
		r = &registration{}
		registry[name] = r
	}
	fn(r)
}

func lookup(name string) (registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	if !ok {
		return registration{}, false
	}
	return *r, true
}

// RegisterProvider 注册完整供应商工厂。
func RegisterProvider(name string, factory ProviderFactory) {
	register(name, func(r *registration) { r.full = factory })
}

// RegisterEmbeddingProvider 注册 Embedding 专用工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	register(name, func(r *registration) { r.embed = factory })
}

// RegisterChatProvider 注册 Chat 专用工厂。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	register(name, func(r *registration) { r.chat = factory })
}

// NewEmbeddingProvider 按名称构造 Embedding 供应商。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	r, _ := lookup(name)
	switch {
	case r.embed != nil:
		return r.embed(config)
	case r.full != nil:
		return r.full(config)
	}
	return nil, unknownProvider("embedding", name)
}

// NewChatProvider 按名称构造 Chat 供应商。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	r, _ := lookup(name)
	switch {
	case r.chat != nil:
		return r.chat(config)
	case r.full != nil:
		return r.full(config)
	}
	return nil, unknownProvider("chat", name)
}

func unknownProvider(kind, name string) error {
	return fmt.Errorf("unknown %s provider %q (registered: %s)", kind, name, strings.Join(ListProviders(), ", "))
}

// ListProviders 返回已注册的供应商名称，按字母排序。
func ListProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
