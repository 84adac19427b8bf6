// Package openai 提供基于 go-openai 的供应商实现。
// 兼容 OpenAI API 的服务（如 DeepSeek、SiliconFlow、LocalAI）通过 base_url 接入。
//
//	import _ "github.com/kart-io/persona-assistant/pkg/llm/openai"
//
//	provider, err := llm.NewChatProvider("openai", map[string]any{
//	    "api_key":    os.Getenv("OPENAI_API_KEY"),
//	    "chat_model": "gpt-4o-mini",
//	})
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kart-io/persona-assistant/pkg/llm"
)

// ProviderName 是 OpenAI 供应商的名称标识符。
const ProviderName = "openai"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config OpenAI 供应商配置。
type Config struct {
	// BaseURL API 基础地址，为空时使用官方地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey API 密钥，必填。
	APIKey string `json:"-" mapstructure:"api_key"`

	// Organization 组织 ID（可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`
	ChatModel  string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Temperature 为 0 时使用 API 默认值。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens 为 0 时使用 API 默认值。
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4o-mini",
		Timeout:    60 * time.Second,
	}
}

// Provider OpenAI 供应商实现。
type Provider struct {
	config *Config
	client *goopenai.Client
}

// NewProvider 从配置 map 创建 OpenAI 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok {
		cfg.APIKey = v
	}
	if v, ok := configMap["organization"].(string); ok {
		cfg.Organization = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["temperature"].(float64); ok {
		cfg.Temperature = v
	}
	if v, ok := configMap["max_tokens"].(int); ok {
		cfg.MaxTokens = v
	}

	return NewProviderWithConfig(cfg)
}

// NewProviderWithConfig 使用结构化配置创建 OpenAI 供应商。
func NewProviderWithConfig(cfg *Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api_key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.OrgID = cfg.Organization
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{
		config: cfg,
		client: goopenai.NewClientWithConfig(clientCfg),
	}, nil
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(p.config.EmbedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.config.ChatModel,
		Messages:    msgs,
		Temperature: float32(p.config.Temperature),
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate 根据提示生成文本（单轮）。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	var messages []llm.Message
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return p.Chat(ctx, messages)
}
