// Package assistant provides answer generation and routing options.
package assistant

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var (
	_ options.IOptions = (*GeneratorOptions)(nil)
	_ options.IOptions = (*RouterOptions)(nil)
)

// GeneratorOptions 回答生成配置。
type GeneratorOptions struct {
	// Subject 助手所介绍的人，回答中的第一人称会改写为该名字。
	Subject string `json:"subject" mapstructure:"subject"`

	// Tokenizer tiktoken 编码名，为空时按字符估算。
	Tokenizer string `json:"tokenizer" mapstructure:"tokenizer"`

	ContextTokens   int  `json:"context-tokens" mapstructure:"context-tokens"`
	HistoryTokens   int  `json:"history-tokens" mapstructure:"history-tokens"`
	HistoryMessages int  `json:"history-messages" mapstructure:"history-messages"`
	FollowUp        bool `json:"follow-up" mapstructure:"follow-up"`
}

// NewGeneratorOptions creates default generator options.
func NewGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		Subject:         "Noah",
		Tokenizer:       "cl100k_base",
		ContextTokens:   1500,
		HistoryTokens:   400,
		HistoryMessages: 4,
		FollowUp:        true,
	}
}

// AddFlags adds flags for generator options to the specified FlagSet.
func (o *GeneratorOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "generator."
	fs.StringVar(&o.Subject, p+"subject", o.Subject, "Name of the person the assistant speaks about.")
	fs.StringVar(&o.Tokenizer, p+"tokenizer", o.Tokenizer, "tiktoken encoding for token budgets; empty estimates from characters.")
	fs.IntVar(&o.ContextTokens, p+"context-tokens", o.ContextTokens, "Token budget for retrieved context; 0 disables the limit.")
	fs.IntVar(&o.HistoryTokens, p+"history-tokens", o.HistoryTokens, "Token budget for conversation history.")
	fs.IntVar(&o.HistoryMessages, p+"history-messages", o.HistoryMessages, "Number of recent messages included in the prompt.")
	fs.BoolVar(&o.FollowUp, p+"follow-up", o.FollowUp, "Append a follow-up suggestion to answers.")
}

// Validate validates the generator options.
func (o *GeneratorOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ContextTokens < 0 || o.HistoryTokens < 0 {
		errs = append(errs, fmt.Errorf("generator token budgets must not be negative"))
	}
	if o.HistoryMessages < 0 {
		errs = append(errs, fmt.Errorf("generator history-messages must not be negative"))
	}
	return errs
}

// RouterOptions 路由配置。
type RouterOptions struct {
	MMALink         string `json:"mma-link" mapstructure:"mma-link"`
	ConfessionReply string `json:"confession-reply" mapstructure:"confession-reply"`
}

// NewRouterOptions creates default router options. Empty values fall back
// to built-in replies.
func NewRouterOptions() *RouterOptions {
	return &RouterOptions{}
}

// AddFlags adds flags for router options to the specified FlagSet.
func (o *RouterOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "router."
	fs.StringVar(&o.MMALink, p+"mma-link", o.MMALink, "External link attached to MMA answers.")
	fs.StringVar(&o.ConfessionReply, p+"confession-reply", o.ConfessionReply, "Fixed reply for confession messages.")
}

// Validate validates the router options.
func (o *RouterOptions) Validate() []error {
	return nil
}
