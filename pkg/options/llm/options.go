// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// OpenAIKeyEnv 未配置 api-key 时读取的环境变量。
const OpenAIKeyEnv = "OPENAI_API_KEY"

// 供应商用途。
const (
	PurposeEmbedding = "embedding"
	PurposeChat      = "chat"
)

// ProviderOptions 定义 LLM 供应商配置。
// 缺少凭据不是配置错误，运行时会降级为离线实现。
type ProviderOptions struct {
	// Provider 供应商名称（openai, ollama, stub）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址，为空时使用供应商默认值。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（openai 需要）。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数（仅 HTTP 供应商）。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（openai 可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// Temperature 生成温度，仅对 Chat 生效。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens 单次生成的最大 token 数，仅对 Chat 生效。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	purpose string
}

func newProviderOptions(purpose string) *ProviderOptions {
	return &ProviderOptions{
		Provider:   "openai",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		purpose:    purpose,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	opts := newProviderOptions(PurposeEmbedding)
	opts.Model = "text-embedding-3-small"
	return opts
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ProviderOptions {
	opts := newProviderOptions(PurposeChat)
	opts.Model = "gpt-4o-mini"
	opts.Temperature = 0.3
	opts.MaxTokens = 600
	return opts
}

// ToConfigMap 转换为供应商工厂使用的配置 map。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	cfg := map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
	if o.purpose == PurposeEmbedding {
		cfg["embed_model"] = o.Model
	} else {
		cfg["chat_model"] = o.Model
		cfg["temperature"] = o.Temperature
		cfg["max_tokens"] = o.MaxTokens
	}
	return cfg
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider name (openai, ollama, stub).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Provider API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Provider API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Maximum number of retries.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "Organization ID (optional).")
	if o.purpose == PurposeChat {
		fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature.")
		fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Maximum tokens per answer.")
	}
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2]"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
// An empty OpenAI key is read from OPENAI_API_KEY.
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.APIKey == "" && o.Provider == "openai" {
		o.APIKey = os.Getenv(OpenAIKeyEnv)
	}
	return nil
}
