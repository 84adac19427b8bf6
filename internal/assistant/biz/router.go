package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/persona-assistant/internal/pkg/classifier"
	"github.com/kart-io/persona-assistant/internal/pkg/codeindex"
	"github.com/kart-io/persona-assistant/internal/pkg/memory"
	"github.com/kart-io/persona-assistant/internal/pkg/textutil"
	"github.com/kart-io/persona-assistant/pkg/errors"
	logfields "github.com/kart-io/persona-assistant/pkg/infra/logger"
)

const (
	// DefaultMMALink 默认的比赛记录链接。
	DefaultMMALink = "https://www.tapology.com/fightcenter"

	// DefaultConfessionReply 默认的匿名留言回复。
	DefaultConfessionReply = "Thanks for sharing. Your message has been received and will stay between us."

	codeSnippetChars = 800
)

// RouterConfig 路由器配置。
type RouterConfig struct {
	TopK            int
	Threshold       float64
	CodeMaxResults  int
	MMALink         string
	ConfessionReply string
}

// DefaultRouterConfig 返回默认路由器配置。
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		TopK:            4,
		Threshold:       0.3,
		CodeMaxResults:  3,
		MMALink:         DefaultMMALink,
		ConfessionReply: DefaultConfessionReply,
	}
}

type handler func(ctx context.Context, req *ConversationRequest) *RoutedResponse

// Router 按角色分派的单次问答编排器。
type Router struct {
	engine    *Engine
	config    *RouterConfig
	retriever *Retriever
	generator *Generator
	handlers  map[Role]handler
}

// NewRouter 创建路由器实例。
func NewRouter(engine *Engine, config *RouterConfig, genConfig *GeneratorConfig) *Router {
	if engine == nil {
		engine = &Engine{}
	}
	engine.withDefaults()

	if config == nil {
		config = DefaultRouterConfig()
	}
	if config.MMALink == "" {
		config.MMALink = DefaultMMALink
	}
	if config.ConfessionReply == "" {
		config.ConfessionReply = DefaultConfessionReply
	}

	r := &Router{
		engine:    engine,
		config:    config,
		retriever: NewRetriever(engine.Embedder, engine.Index, engine.Metrics),
		generator: NewGenerator(engine.Chat, engine.ChatDegraded, engine.Tokens, genConfig, engine.Metrics),
	}
	r.handlers = map[Role]handler{
		RoleHiringManagerNonTechnical: r.handleStandard,
		RoleHiringManagerTechnical:    r.handleStandard,
		RoleDeveloper:                 r.handleStandard,
		RoleTechnicalManager:          r.handleStandard,
		RoleJustLooking:               r.handleStandard,
		RoleConfession:                r.handleConfession,
	}
	return r
}

// Handles reports whether role has a handler.
func (r *Router) Handles(role Role) bool {
	_, ok := r.handlers[role]
	return ok
}

// Retriever 返回路由器使用的检索器。
func (r *Router) Retriever() *Retriever { return r.retriever }

// Route 处理一次问答。任何失败都体现在返回值中，Response 始终非空。
func (r *Router) Route(ctx context.Context, in RouteRequest) *RoutedResponse {
	requestID := r.engine.IDs.Generate()
	turn := turnIndex(in.History)
	ctx = logfields.WithRequestID(ctx, requestID)

	role, err := ParseRole(in.Role)
	if err != nil {
		r.engine.Metrics.RecordInvalidRole()
		logfields.FromContext(ctx).Infow("rejected unknown role", "role", in.Role)
		return r.errorResponse(fmt.Sprintf("Unknown role %q. Please choose one of: %s.", in.Role, validRolesText()),
			in.Role, turn, requestID)
	}

	if strings.TrimSpace(in.Query) == "" && role != RoleConfession {
		r.engine.Metrics.RecordQuery(false, errors.ErrEmptyQuery)
		return r.errorResponse("Please enter a question.", role.String(), turn, requestID)
	}

	req := &ConversationRequest{
		Role:    role,
		Query:   strings.TrimSpace(in.Query),
		History: in.History,
	}
	resp := r.handlers[role](ctx, req)
	resp.Meta.Role = role.String()
	resp.Meta.TurnIndex = turn
	resp.Meta.RequestID = requestID
	resp.Meta.SuppressFollowUp = resp.Meta.SuppressFollowUp || resp.Type.suppressesFollowUp()
	return resp
}

// RouteSession 读取会话历史后路由，并将本轮问答追加到会话中。
func (r *Router) RouteSession(ctx context.Context, sessionID, role, query string) *RoutedResponse {
	var history []memory.Message
	if r.engine.Memory != nil && sessionID != "" {
		if session, ok := r.engine.Memory.Retrieve(ctx, sessionID); ok {
			history = session.ChatHistory
		}
	}

	resp := r.Route(ctx, RouteRequest{Role: role, Query: query, History: history})

	if r.engine.Memory != nil && sessionID != "" && resp.Type != ResponseError {
		history = append(history,
			memory.Message{Role: memory.RoleUser, Content: query},
			memory.Message{Role: memory.RoleAssistant, Content: resp.Response},
		)
		r.engine.Memory.Store(ctx, sessionID, resp.Meta.Role, history)
	}
	return resp
}

func (r *Router) errorResponse(message, role string, turn int, requestID string) *RoutedResponse {
	return &RoutedResponse{
		Response: message,
		Type:     ResponseError,
		Context:  []string{},
		Meta: Meta{
			TopicFocus:       "general",
			Role:             role,
			TurnIndex:        turn,
			SuppressFollowUp: true,
			RequestID:        requestID,
		},
	}
}

func (r *Router) handleConfession(_ context.Context, req *ConversationRequest) *RoutedResponse {
	r.engine.Metrics.RecordConfession()
	req.ResponseType = ResponseConfession
	return &RoutedResponse{
		Response: r.config.ConfessionReply,
		Type:     ResponseConfession,
		Context:  []string{},
		Meta:     Meta{TopicFocus: "confession"},
	}
}

func (r *Router) handleStandard(ctx context.Context, req *ConversationRequest) *RoutedResponse {
	req.Classification = classifier.Classify(req.Query)
	req.ResponseType = responseTypeFor(req.Classification.Intent)

	req.Retrieval = r.retriever.RetrieveForRole(ctx, req.Role, req.Query, r.config.TopK, r.config.Threshold)
	req.Context = append([]string{}, req.Retrieval.Matches...)

	var opts []GenerateOption
	if req.ResponseType == ResponseFunFact {
		opts = append(opts, WithoutFollowUp())
	}

	codePath := req.ResponseType == ResponseTechnical && req.Role.CodeEnriched() && r.engine.Code != nil
	if codePath {
		r.enrichWithCode(ctx, req)
		if cached := r.cachedAnswer(ctx, req); cached != nil {
			return cached
		}
		if len(req.CodeSymbols) > 0 {
			opts = append(opts, WithInstructions("When referring to code, cite it as file:start-end."))
		}
	}

	req.Answer = r.generator.GenerateAnswer(ctx, req.Query, req.Context, req.Role, req.History, opts...)
	r.engine.Metrics.RecordQuery(false, nil)

	resp := &RoutedResponse{
		Response: req.Answer.Text,
		Type:     req.ResponseType,
		Context:  req.Context,
		Meta: Meta{
			TopicFocus:       req.Classification.Topic,
			SuppressFollowUp: req.Answer.Failed,
			Degraded:         req.Answer.Degraded,
			Grounded:         !req.Retrieval.Empty() || len(req.CodeSymbols) > 0,
		},
	}
	if req.ResponseType == ResponseMMA {
		resp.ExternalLink = r.config.MMALink
	}
	if codePath {
		resp.CodeSymbols = req.CodeSymbols
		resp.IndexVersion = req.IndexVersion
		if !req.Answer.Failed && !req.Answer.Degraded {
			r.storeAnswer(ctx, req)
		}
	}
	return resp
}

// enrichWithCode 查找相关代码符号，并将其作为带引用的上下文追加。
func (r *Router) enrichWithCode(ctx context.Context, req *ConversationRequest) {
	code := r.engine.Code

	version, err := code.Version(ctx)
	if err != nil {
		logfields.FromContext(ctx).Warnw("code index unavailable", "error", errors.ErrIndexUnavailable.WithCause(err).Error())
		return
	}
	req.IndexVersion = version

	symbols, err := code.SearchByNameOrContent(ctx, req.Query, r.config.CodeMaxResults)
	if err == nil && len(symbols) == 0 {
		if kws := queryKeywords(req.Query); len(kws) > 0 {
			symbols, err = code.SearchByKeywords(ctx, kws, r.config.CodeMaxResults)
		}
	}
	if err != nil {
		logfields.FromContext(ctx).Warnw("code symbol search failed", "error", errors.ErrIndexUnavailable.WithCause(err).Error())
		return
	}

	r.engine.Metrics.RecordCodeLookup(len(symbols))
	req.CodeSymbols = symbols
	for _, s := range symbols {
		req.Context = append(req.Context, symbolContext(s))
	}
}

func symbolContext(s codeindex.Symbol) string {
	return fmt.Sprintf("Code (%s %s, %s):\n%s", s.Kind, s.Name, s.Citation,
		textutil.TruncateWithEllipsis(s.Content, codeSnippetChars))
}

func (r *Router) cachedAnswer(ctx context.Context, req *ConversationRequest) *RoutedResponse {
	cache := r.engine.Cache
	if !cache.Enabled() || req.IndexVersion == "" {
		return nil
	}
	answer, err := cache.Get(ctx, req.Role, req.Query, req.IndexVersion)
	if err != nil || answer == nil {
		return nil
	}

	r.engine.Metrics.RecordQuery(true, nil)
	return &RoutedResponse{
		Response:     answer.Answer,
		Type:         ResponseTechnical,
		Context:      []string{},
		CodeSymbols:  answer.CodeSymbols,
		IndexVersion: answer.IndexVersion,
		Meta: Meta{
			TopicFocus: req.Classification.Topic,
			Grounded:   true,
			Cached:     true,
		},
	}
}

func (r *Router) storeAnswer(ctx context.Context, req *ConversationRequest) {
	cache := r.engine.Cache
	if !cache.Enabled() || req.IndexVersion == "" {
		return
	}
	_ = cache.Set(ctx, req.Role, req.Query, req.IndexVersion, &TechnicalAnswer{
		Answer:       req.Answer.Text,
		CodeSymbols:  req.CodeSymbols,
		HasCode:      len(req.CodeSymbols) > 0,
		IndexVersion: req.IndexVersion,
	})
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "how": true, "does": true, "did": true,
	"what": true, "why": true, "with": true, "this": true, "that": true, "his": true,
	"her": true, "their": true, "you": true, "your": true, "are": true, "was": true,
	"can": true, "about": true, "from": true, "into": true, "use": true, "used": true,
	"show": true, "code": true, "work": true, "works": true,
}

// queryKeywords 提取长度不少于 3 的非停用词，保持首次出现顺序。
func queryKeywords(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range textutil.Words(query) {
		if len(w) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// turnIndex 返回历史中用户发言数加一。
func turnIndex(history []memory.Message) int {
	n := 0
	for _, m := range history {
		if m.Role == memory.RoleUser {
			n++
		}
	}
	return n + 1
}
