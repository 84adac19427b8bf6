package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/persona-assistant/internal/assistant/metrics"
	"github.com/kart-io/persona-assistant/internal/assistant/store"
	"github.com/kart-io/persona-assistant/internal/pkg/codeindex"
	"github.com/kart-io/persona-assistant/internal/pkg/memory"
)

type routerFixture struct {
	embedder *fakeEmbedder
	chat     *fakeChat
	index    *fakeIndex
	code     *fakeCode
	metrics  *metrics.Metrics
	router   *Router
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		embedder: &fakeEmbedder{},
		chat:     &fakeChat{reply: "I am happy to help. The answer is grounded."},
		index: &fakeIndex{candidates: []store.Candidate{
			{Content: "Noah trains MMA twice a week and has an amateur record.", SourceID: "mma.md", Similarity: 0.8},
			{Content: "Noah built a retrieval pipeline in Go.", SourceID: "projects.md", Similarity: 0.6},
			{Content: "Unrelated note.", SourceID: "misc.md", Similarity: 0.1},
		}},
		code: &fakeCode{
			byName:    []codeindex.Symbol{symbol("rag/retriever.py", "retrieve", 10, 24)},
			byKeyword: []codeindex.Symbol{symbol("rag/pipeline.py", "run_pipeline", 3, 9)},
			version:   "abc123def456",
		},
		metrics: metrics.New(),
	}
	engine := &Engine{
		Embedder: f.embedder,
		Chat:     f.chat,
		Index:    f.index,
		Code:     f.code,
		Memory:   memory.New(context.Background(), nil),
		Metrics:  f.metrics,
	}
	f.router = NewRouter(engine, nil, nil)
	return f
}

func TestEveryRoleHasHandler(t *testing.T) {
	r := NewRouter(nil, nil, nil)
	for _, role := range Roles() {
		assert.True(t, r.Handles(role), role)
	}
	assert.False(t, r.Handles(Role("ninja")))
}

func TestRouteInvalidRole(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.router.Route(context.Background(), RouteRequest{Role: "astronaut", Query: "hi"})

	assert.Equal(t, ResponseError, resp.Type)
	assert.NotEmpty(t, resp.Response)
	assert.Contains(t, resp.Response, string(RoleDeveloper))
	assert.True(t, resp.Meta.SuppressFollowUp)
	assert.NotNil(t, resp.Context)
	assert.Equal(t, 0, f.embedder.Calls())
	assert.Equal(t, 0, f.chat.Calls())

	queries := f.metrics.Stats()["queries"].(map[string]any)
	assert.Equal(t, uint64(1), queries["invalid_roles"])
}

func TestRouteEmptyQuery(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.router.Route(context.Background(), RouteRequest{Role: "developer", Query: "   "})
	assert.Equal(t, ResponseError, resp.Type)
	assert.NotEmpty(t, resp.Response)
	assert.Equal(t, 0, f.chat.Calls())
}

func TestRouteConfessionShortCircuits(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.router.Route(context.Background(), RouteRequest{Role: "Confession", Query: "I ate the last cookie"})

	assert.Equal(t, ResponseConfession, resp.Type)
	assert.Equal(t, DefaultConfessionReply, resp.Response)
	assert.Equal(t, []string{}, resp.Context)
	assert.True(t, resp.Meta.SuppressFollowUp)
	assert.Equal(t, "confession", resp.Meta.Role)
	assert.Equal(t, 0, f.embedder.Calls())
	assert.Equal(t, 0, f.index.Calls())
	assert.Equal(t, 0, f.chat.Calls())
}

func TestRouteMMAForCasualVisitor(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.router.Route(context.Background(), RouteRequest{
		Role:  "Just looking around",
		Query: "Does he do MMA?",
	})

	assert.Equal(t, ResponseMMA, resp.Type)
	assert.Equal(t, DefaultMMALink, resp.ExternalLink)
	assert.Equal(t, "mma", resp.Meta.TopicFocus)
	assert.Equal(t, "just-looking-around", resp.Meta.Role)
	assert.False(t, resp.Meta.SuppressFollowUp)
	assert.True(t, resp.Meta.Grounded)
	assert.Equal(t, 1, CountFollowUps(resp.Response))
	assert.Len(t, resp.Context, 2)
	assert.Empty(t, resp.CodeSymbols)
	assert.Nil(t, f.index.lastFilter)
}

func TestRoutePersonaRewriteInResponse(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.router.Route(context.Background(), RouteRequest{Role: "just-looking-around", Query: "Tell me about him"})
	assert.True(t, strings.HasPrefix(resp.Response, "Noah is happy to help."))
}

func TestRouteFunFactSuppressesFollowUp(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.router.Route(context.Background(), RouteRequest{Role: "just-looking-around", Query: "Tell me a fun fact"})

	assert.Equal(t, ResponseFunFact, resp.Type)
	assert.True(t, resp.Meta.SuppressFollowUp)
	assert.Equal(t, 0, CountFollowUps(resp.Response))
}

func TestRouteTechnicalDeveloperGetsCode(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.router.Route(context.Background(), RouteRequest{
		Role:  "developer",
		Query: "How is retrieval implemented?",
	})

	assert.Equal(t, ResponseTechnical, resp.Type)
	assert.Equal(t, "retrieval", resp.Meta.TopicFocus)
	require.Len(t, resp.CodeSymbols, 1)
	assert.Equal(t, "rag/retriever.py:10-24", resp.CodeSymbols[0].Citation)
	assert.Equal(t, "abc123def456", resp.IndexVersion)
	assert.Len(t, resp.Context, 3)
	assert.Contains(t, resp.Context[2], "rag/retriever.py:10-24")
	assert.Contains(t, f.chat.LastPrompt(), "rag/retriever.py:10-24")
	assert.Equal(t, 1, CountFollowUps(resp.Response))
	require.NotNil(t, f.index.lastFilter)
	assert.Equal(t, []string{TagPersonal}, f.index.lastFilter.ExcludeTags)
}

func TestRouteCodeKeywordFallback(t *testing.T) {
	f := newRouterFixture(t)
	f.code.byName = nil

	resp := f.router.Route(context.Background(), RouteRequest{
		Role:  "technical-manager",
		Query: "How does the pipeline architecture work?",
	})

	require.Len(t, resp.CodeSymbols, 1)
	assert.Equal(t, "run_pipeline", resp.CodeSymbols[0].Name)
	require.Len(t, f.code.keywordQueries, 1)
	assert.Equal(t, []string{"pipeline", "architecture"}, f.code.keywordQueries[0])
}

func TestRouteTechnicalNonCodeRoleSkipsCode(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.router.Route(context.Background(), RouteRequest{
		Role:  "hiring-manager-technical",
		Query: "How is retrieval implemented?",
	})

	assert.Equal(t, ResponseTechnical, resp.Type)
	assert.Empty(t, resp.CodeSymbols)
	assert.Empty(t, f.code.nameQueries)
}

func TestRouteCodeIndexFailureStillAnswers(t *testing.T) {
	f := newRouterFixture(t)
	f.code.err = errBoom

	resp := f.router.Route(context.Background(), RouteRequest{Role: "developer", Query: "Show the retrieval code"})
	assert.Equal(t, ResponseTechnical, resp.Type)
	assert.NotEmpty(t, resp.Response)
	assert.Empty(t, resp.CodeSymbols)
}

func TestRouteEmbeddingFailureAnswersWithoutContext(t *testing.T) {
	f := newRouterFixture(t)
	f.embedder.err = errBoom

	resp := f.router.Route(context.Background(), RouteRequest{Role: "developer", Query: "What is his career history?"})

	assert.Equal(t, ResponseCareer, resp.Type)
	assert.True(t, strings.HasPrefix(resp.Response, NoInformationAnswer))
	assert.False(t, resp.Meta.Grounded)
	assert.Empty(t, resp.Context)
	assert.Equal(t, 0, f.chat.Calls())
}

func TestRouteGenerationFailureApologizes(t *testing.T) {
	f := newRouterFixture(t)
	f.chat.err = errBoom

	resp := f.router.Route(context.Background(), RouteRequest{Role: "developer", Query: "What is his career history?"})

	assert.Equal(t, ResponseCareer, resp.Type)
	assert.Equal(t, ApologyAnswer, resp.Response)
	assert.True(t, resp.Meta.SuppressFollowUp)
}

func TestRouteDegradedEngine(t *testing.T) {
	r := NewRouter(&Engine{Index: &fakeIndex{candidates: []store.Candidate{
		{Content: "Noah writes Go. Noah likes search. Noah ships often. Extra.", SourceID: "a", Similarity: 0.9},
	}}}, nil, nil)

	resp := r.Route(context.Background(), RouteRequest{Role: "developer", Query: "What skills does he have?"})

	assert.True(t, resp.Meta.Degraded)
	assert.NotEmpty(t, resp.Response)
	assert.NotContains(t, resp.Response, "Extra")
}

func TestRouteMetaTurnIndexAndRequestID(t *testing.T) {
	f := newRouterFixture(t)
	history := []memory.Message{
		{Role: memory.RoleUser, Content: "a"},
		{Role: memory.RoleAssistant, Content: "b"},
		{Role: memory.RoleUser, Content: "c"},
		{Role: memory.RoleAssistant, Content: "d"},
	}

	first := f.router.Route(context.Background(), RouteRequest{Role: "developer", Query: "career?", History: history})
	second := f.router.Route(context.Background(), RouteRequest{Role: "developer", Query: "career?"})

	assert.Equal(t, 3, first.Meta.TurnIndex)
	assert.Equal(t, 1, second.Meta.TurnIndex)
	assert.Len(t, first.Meta.RequestID, 26)
	assert.NotEqual(t, first.Meta.RequestID, second.Meta.RequestID)
}

func TestRouteSessionAppendsHistory(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	f.router.RouteSession(ctx, "s1", "developer", "What is his experience?")
	resp := f.router.RouteSession(ctx, "s1", "developer", "And his skills?")

	assert.Equal(t, 2, resp.Meta.TurnIndex)
	session, ok := f.router.engine.Memory.Retrieve(ctx, "s1")
	require.True(t, ok)
	require.Len(t, session.ChatHistory, 4)
	assert.Equal(t, "And his skills?", session.ChatHistory[2].Content)
	assert.Equal(t, resp.Response, session.ChatHistory[3].Content)
	assert.Contains(t, f.chat.LastPrompt(), "What is his experience?")

	f.router.RouteSession(ctx, "s2", "astronaut", "hi")
	_, ok = f.router.engine.Memory.Retrieve(ctx, "s2")
	assert.False(t, ok)
}

func TestQueryKeywords(t *testing.T) {
	assert.Equal(t, []string{"retrieval", "pipeline"}, queryKeywords("How does the retrieval pipeline work? The pipeline!"))
	assert.Empty(t, queryKeywords("how is it"))
}
