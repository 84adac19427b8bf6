package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/persona-assistant/internal/assistant/metrics"
	"github.com/kart-io/persona-assistant/internal/pkg/memory"
	"github.com/kart-io/persona-assistant/internal/pkg/textutil"
	"github.com/kart-io/persona-assistant/internal/pkg/tokenbudget"
	"github.com/kart-io/persona-assistant/pkg/errors"
	logfields "github.com/kart-io/persona-assistant/pkg/infra/logger"
	"github.com/kart-io/persona-assistant/pkg/llm"
)

const (
	// ApologyAnswer 模型调用失败时返回的回答。
	ApologyAnswer = "Sorry, an answer could not be generated right now. Please try again shortly."

	// NoInformationAnswer 没有任何上下文时返回的回答。
	NoInformationAnswer = "There is not enough information available to answer that question."
)

// GeneratorConfig 生成器配置。
type GeneratorConfig struct {
	// SubjectName 助手所介绍的人。
	SubjectName string
	// ContextTokens 拼接后上下文的 token 上限。
	ContextTokens int
	// HistoryTokens 历史对话的 token 上限。
	HistoryTokens int
	// HistoryMessages 纳入提示词的最近消息数（两轮对话为 4）。
	HistoryMessages int
	// AssistantTurnChars 历史中助手回复的截断长度。
	AssistantTurnChars int
	// DegradedSentences 降级模式下从上下文截取的句子数。
	DegradedSentences int
	// FollowUp 是否附加追问提示。
	FollowUp bool
}

// DefaultGeneratorConfig 返回默认生成器配置。
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		SubjectName:        "Noah",
		ContextTokens:      1500,
		HistoryTokens:      400,
		HistoryMessages:    4,
		AssistantTurnChars: 300,
		DegradedSentences:  3,
		FollowUp:           true,
	}
}

// Answer 生成结果。
type Answer struct {
	Text     string
	Degraded bool
	// Failed 模型调用失败，Text 为致歉语。
	Failed bool
}

type generateOptions struct {
	instructions []string
	followUp     bool
}

// GenerateOption 单次生成的选项。
type GenerateOption func(*generateOptions)

// WithInstructions 追加额外指令。
func WithInstructions(instructions ...string) GenerateOption {
	return func(o *generateOptions) {
		o.instructions = append(o.instructions, instructions...)
	}
}

// WithoutFollowUp 不附加追问提示。
func WithoutFollowUp() GenerateOption {
	return func(o *generateOptions) { o.followUp = false }
}

// Generator 负责回答生成。
type Generator struct {
	chat     llm.ChatProvider
	degraded bool
	tokens   tokenbudget.Counter
	config   *GeneratorConfig
	rewriter *personRewriter
	metrics  *metrics.Metrics
}

// NewGenerator 创建生成器实例。degraded 为真时不调用模型。
func NewGenerator(chat llm.ChatProvider, degraded bool, tokens tokenbudget.Counter, config *GeneratorConfig, m *metrics.Metrics) *Generator {
	if config == nil {
		config = DefaultGeneratorConfig()
	}
	if tokens == nil {
		tokens = tokenbudget.RuneCounter{}
	}
	if m == nil {
		m = metrics.New()
	}
	return &Generator{
		chat:     chat,
		degraded: degraded || chat == nil || llm.IsDegraded(chat),
		tokens:   tokens,
		config:   config,
		rewriter: newPersonRewriter(config.SubjectName),
		metrics:  m,
	}
}

// Degraded reports whether answers are synthesized offline.
func (g *Generator) Degraded() bool { return g.degraded }

// Generate 生成回答文本，不会返回错误。
func (g *Generator) Generate(ctx context.Context, query string, contexts []string, role Role, history []memory.Message, opts ...GenerateOption) string {
	return g.GenerateAnswer(ctx, query, contexts, role, history, opts...).Text
}

// GenerateAnswer 与 Generate 相同，同时返回降级与失败状态。
func (g *Generator) GenerateAnswer(ctx context.Context, query string, contexts []string, role Role, history []memory.Message, opts ...GenerateOption) *Answer {
	o := &generateOptions{followUp: g.config.FollowUp}
	for _, opt := range opts {
		opt(o)
	}

	start := time.Now()
	joined := g.joinContext(contexts)

	var raw string
	switch {
	case joined == "":
		raw = NoInformationAnswer
	case g.degraded:
		raw = textutil.FirstSentences(joined, g.config.DegradedSentences)
	default:
		prompt := g.buildPrompt(query, joined, role, history, o.instructions)
		out, err := g.chat.Generate(ctx, prompt, g.systemPrompt())
		if err == nil && strings.TrimSpace(out) == "" {
			err = fmt.Errorf("empty completion")
		}
		if err != nil {
			err = errors.ErrProviderUnavailable.WithCause(err)
			logfields.FromContext(ctx).Warnw("answer generation failed", "provider", g.chat.Name(), "error", err.Error())
			g.metrics.RecordGeneration(time.Since(start), false, err)
			return &Answer{Text: ApologyAnswer, Failed: true}
		}
		raw = out
	}

	text := g.postProcess(raw, role, query, o.followUp)
	g.metrics.RecordGeneration(time.Since(start), g.degraded, nil)
	return &Answer{Text: text, Degraded: g.degraded}
}

// postProcess 改写人称，并保证至多一条追问提示。
func (g *Generator) postProcess(text string, role Role, query string, followUp bool) string {
	text = stripFollowUps(text)
	text = g.rewriter.Rewrite(text)
	if text == "" {
		text = NoInformationAnswer
	}
	if followUp {
		text += "\n\n" + followUpFor(role, query, g.config.SubjectName)
	}
	return text
}

// joinContext 按顺序拼接上下文，超出 token 预算的部分被截断。
func (g *Generator) joinContext(contexts []string) string {
	budget := g.config.ContextTokens
	parts := make([]string, 0, len(contexts))
	for _, c := range contexts {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if budget <= 0 {
			parts = append(parts, c)
			continue
		}
		remaining := budget - g.tokens.Count(strings.Join(parts, "\n\n"))
		if remaining <= 0 {
			break
		}
		if g.tokens.Count(c) > remaining {
			c, _ = g.tokens.Truncate(c, remaining)
			parts = append(parts, strings.TrimSpace(c))
			break
		}
		parts = append(parts, c)
	}
	return strings.Join(parts, "\n\n")
}

// recentHistory 取最近的若干条消息，助手回复截断，超出 token 预算时丢弃最早的消息。
func (g *Generator) recentHistory(history []memory.Message) []memory.Message {
	n := g.config.HistoryMessages
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}

	out := make([]memory.Message, 0, len(history))
	for _, m := range history {
		if m.Role != memory.RoleUser && m.Role != memory.RoleAssistant {
			continue
		}
		if m.Role == memory.RoleAssistant && g.config.AssistantTurnChars > 0 {
			m.Content = textutil.TruncateWithEllipsis(m.Content, g.config.AssistantTurnChars)
		}
		out = append(out, m)
	}

	if g.config.HistoryTokens > 0 {
		for len(out) > 0 && g.tokens.Count(renderHistory(out)) > g.config.HistoryTokens {
			out = out[1:]
		}
	}
	return out
}

func renderHistory(history []memory.Message) string {
	var sb strings.Builder
	for _, m := range history {
		speaker := "User"
		if m.Role == memory.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, m.Content)
	}
	return sb.String()
}

func (g *Generator) systemPrompt() string {
	return fmt.Sprintf("You answer questions about %s using only the supplied context. "+
		"Refer to %s in the third person. If the context does not contain the answer, say so.",
		g.subject(), g.subject())
}

func (g *Generator) subject() string {
	if g.config.SubjectName == "" {
		return "the candidate"
	}
	return g.config.SubjectName
}

func (g *Generator) buildPrompt(query, joined string, role Role, history []memory.Message, extra []string) string {
	var sb strings.Builder

	if recent := g.recentHistory(history); len(recent) > 0 {
		sb.WriteString("Previous conversation:\n")
		sb.WriteString(renderHistory(recent))
		sb.WriteString("\n")
	}

	sb.WriteString("Context:\n")
	sb.WriteString(joined)
	sb.WriteString("\n\nInstructions:\n")
	if ins := role.instructions(); ins != "" {
		sb.WriteString(ins)
		sb.WriteString("\n")
	}
	for _, ins := range extra {
		if ins = strings.TrimSpace(ins); ins != "" {
			sb.WriteString(ins)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Do not end with a follow-up question.\n\n")

	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(query))
	sb.WriteString("\nAnswer:")
	return sb.String()
}
