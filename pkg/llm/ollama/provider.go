// Package ollama 提供本地 Ollama 服务的供应商实现。
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/persona-assistant/pkg/llm"
	"github.com/kart-io/persona-assistant/pkg/utils/httpclient"
)

// ProviderName 注册名。
const ProviderName = "ollama"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config Ollama 供应商配置。Temperature 与 MaxTokens 为零时使用模型默认值。
type Config struct {
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	EmbedModel  string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel   string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `json:"max_retries" mapstructure:"max_retries"`
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "nomic-embed-text",
		ChatModel:  "llama3.1:8b",
		Timeout:    120 * time.Second,
	}
}

// Provider 通过 /api/embed、/api/chat 与 /api/generate 访问 Ollama。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建供应商，未提供的键保留默认值。
func NewProvider(m map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()
	setString(m, "base_url", &cfg.BaseURL)
	setString(m, "embed_model", &cfg.EmbedModel)
	setString(m, "chat_model", &cfg.ChatModel)
	if v, ok := m["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := m["max_retries"].(int); ok && v > 0 {
		cfg.MaxRetries = v
	}
	if v, ok := m["temperature"].(float64); ok && v > 0 {
		cfg.Temperature = v
	}
	if v, ok := m["max_tokens"].(int); ok && v > 0 {
		cfg.MaxTokens = v
	}
	return NewProviderWithConfig(cfg)
}

func setString(m map[string]any, key string, dst *string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

// NewProviderWithConfig 使用结构化配置创建供应商。
func NewProviderWithConfig(cfg *Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama: base_url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}, nil
}

// Name 返回供应商名称。
func (p *Provider) Name() string { return ProviderName }

func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	return p.client.PostJSON(ctx, p.config.BaseURL+path, nil, in, out)
}

// sampling 对应请求体中的 options 字段。
type sampling struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

func (p *Provider) sampling() *sampling {
	if p.config.Temperature == 0 && p.config.MaxTokens == 0 {
		return nil
	}
	return &sampling{Temperature: p.config.Temperature, NumPredict: p.config.MaxTokens}
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	req := struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}{p.config.EmbedModel, texts}
	if err := p.post(ctx, "/api/embed", req, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d vectors, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	req := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
		Options  *sampling     `json:"options,omitempty"`
	}{Model: p.config.ChatModel, Options: p.sampling()}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	var resp struct {
		Message chatMessage `json:"message"`
	}
	if err := p.post(ctx, "/api/chat", req, &resp); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return resp.Message.Content, nil
}

// Generate 单轮生成，systemPrompt 为空时使用模型自带的系统提示。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	req := struct {
		Model   string    `json:"model"`
		Prompt  string    `json:"prompt"`
		Stream  bool      `json:"stream"`
		System  string    `json:"system,omitempty"`
		Options *sampling `json:"options,omitempty"`
	}{Model: p.config.ChatModel, Prompt: prompt, System: systemPrompt, Options: p.sampling()}

	var resp struct {
		Response string `json:"response"`
	}
	if err := p.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return resp.Response, nil
}

// Ping 检查 Ollama 服务是否可用。
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.GetJSON(ctx, p.config.BaseURL+"/api/tags", nil)
}
