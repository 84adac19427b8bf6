// Package tokenbudget counts and trims text against a token budget.
package tokenbudget

import (
	"fmt"
	"unicode/utf8"

	"github.com/kart-io/logger"
	"github.com/pkoukk/tiktoken-go"
)

// RunesPerToken approximates how many runes make up one token.
const RunesPerToken = 4

// Counter counts tokens and truncates text to a token limit.
type Counter interface {
	Count(text string) int
	Truncate(text string, maxTokens int) (string, int)
}

// TiktokenCounter counts with a BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding (for example cl100k_base).
func NewTiktoken(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *TiktokenCounter) Truncate(text string, maxTokens int) (string, int) {
	if text == "" || maxTokens <= 0 {
		return "", 0
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, len(tokens)
	}
	return c.enc.Decode(tokens[:maxTokens]), maxTokens
}

// RuneCounter estimates tokens from the rune count.
type RuneCounter struct{}

func (RuneCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + RunesPerToken - 1) / RunesPerToken
}

func (c RuneCounter) Truncate(text string, maxTokens int) (string, int) {
	if text == "" || maxTokens <= 0 {
		return "", 0
	}
	limit := maxTokens * RunesPerToken
	if utf8.RuneCountInString(text) <= limit {
		return text, c.Count(text)
	}
	return string([]rune(text)[:limit]), maxTokens
}

// New returns a tiktoken counter for encoding, or a RuneCounter when the
// encoding is empty or cannot be loaded.
func New(encoding string) Counter {
	if encoding == "" {
		return RuneCounter{}
	}
	c, err := NewTiktoken(encoding)
	if err != nil {
		logger.Warnw("tokenizer unavailable, estimating tokens from runes", "encoding", encoding, "error", err.Error())
		return RuneCounter{}
	}
	return c
}
