package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// StubProviderName 离线降级供应商名称。
const StubProviderName = "stub"

const (
	// DefaultStubDimension 离线 Embedding 的默认维度。
	DefaultStubDimension = 256

	// StubAnswerPrefix 离线生成结果的固定前缀。
	StubAnswerPrefix = "[offline mode] "

	stubTailWords = 40
)

func init() {
	RegisterEmbeddingProvider(StubProviderName, func(config map[string]any) (EmbeddingProvider, error) {
		dim, _ := config["dimension"].(int)
		return NewStubEmbeddingProvider(dim), nil
	})
	RegisterChatProvider(StubProviderName, func(map[string]any) (ChatProvider, error) {
		return NewStubChatProvider(), nil
	})
}

// StubEmbeddingProvider 基于特征哈希的确定性 Embedding。
// 相同文本总是得到相同向量，共享词越多的文本余弦相似度越高。
type StubEmbeddingProvider struct {
	dimension int
}

// NewStubEmbeddingProvider 创建离线 Embedding 供应商。
func NewStubEmbeddingProvider(dimension int) *StubEmbeddingProvider {
	if dimension <= 0 {
		dimension = DefaultStubDimension
	}
	return &StubEmbeddingProvider{dimension: dimension}
}

// Embed 为多个文本生成向量嵌入。
func (p *StubEmbeddingProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.vector(text)
	}
	return out, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *StubEmbeddingProvider) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	return p.vector(text), nil
}

// Name 返回供应商名称。
func (p *StubEmbeddingProvider) Name() string { return StubProviderName }

// Degraded 总是返回 true。
func (p *StubEmbeddingProvider) Degraded() bool { return true }

// Dimension 返回向量维度。
func (p *StubEmbeddingProvider) Dimension() int { return p.dimension }

func (p *StubEmbeddingProvider) vector(text string) []float32 {
	vec := make([]float64, p.dimension)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(p.dimension))
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, p.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// StubChatProvider 离线生成实现，回显提示词的尾部内容。
type StubChatProvider struct{}

// NewStubChatProvider 创建离线 Chat 供应商。
func NewStubChatProvider() *StubChatProvider {
	return &StubChatProvider{}
}

// Generate 返回固定前缀加提示词最后 40 个单词。
func (p *StubChatProvider) Generate(_ context.Context, prompt string, _ string) (string, error) {
	words := strings.Fields(prompt)
	if len(words) > stubTailWords {
		words = words[len(words)-stubTailWords:]
	}
	return StubAnswerPrefix + strings.Join(words, " "), nil
}

// Chat 以最后一条消息作为提示词。
func (p *StubChatProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return p.Generate(ctx, "", "")
	}
	return p.Generate(ctx, messages[len(messages)-1].Content, "")
}

// Name 返回供应商名称。
func (p *StubChatProvider) Name() string { return StubProviderName }

// Degraded 总是返回 true。
func (p *StubChatProvider) Degraded() bool { return true }
