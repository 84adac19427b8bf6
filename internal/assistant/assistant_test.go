package assistant

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/persona-assistant/internal/assistant/biz"
	"github.com/kart-io/persona-assistant/internal/assistant/store"
	"github.com/kart-io/persona-assistant/pkg/llm"
	assistantopts "github.com/kart-io/persona-assistant/pkg/options/assistant"
	cacheopts "github.com/kart-io/persona-assistant/pkg/options/cache"
	codeindexopts "github.com/kart-io/persona-assistant/pkg/options/codeindex"
	llmopts "github.com/kart-io/persona-assistant/pkg/options/llm"
	logopts "github.com/kart-io/persona-assistant/pkg/options/logger"
	memoryopts "github.com/kart-io/persona-assistant/pkg/options/memory"
	milvusopts "github.com/kart-io/persona-assistant/pkg/options/milvus"
	redisopts "github.com/kart-io/persona-assistant/pkg/options/redis"
	retrievalopts "github.com/kart-io/persona-assistant/pkg/options/retrieval"
	tracingopts "github.com/kart-io/persona-assistant/pkg/options/tracing"
)

const testCorpus = `[
  {"id": "career-1", "content": "Noah builds data platforms in Go and leads the infrastructure team.", "source": "resume", "tags": ["career"]},
  {"id": "personal-1", "content": "Noah trains mixed martial arts on weekends.", "source": "about", "tags": ["personal"]}
]`

func offlineConfig(t *testing.T) *Config {
	t.Helper()
	corpus := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(corpus, []byte(testCorpus), 0o600))

	embedding := llmopts.NewEmbeddingOptions()
	embedding.Provider = llm.StubProviderName
	chat := llmopts.NewChatOptions()
	chat.Provider = llm.StubProviderName

	retrieval := retrievalopts.NewOptions()
	retrieval.CorpusPath = corpus
	retrieval.Dimension = 64
	retrieval.Threshold = 0

	mem := memoryopts.NewOptions()
	mem.Backend = memoryopts.BackendNone

	embCache := cacheopts.NewEmbeddingOptions()
	embCache.Enabled = false

	return &Config{
		LogOptions:            logopts.NewOptions(),
		TracingOptions:        tracingopts.NewOptions(),
		EmbeddingOptions:      embedding,
		ChatOptions:           chat,
		RetrievalOptions:      retrieval,
		MilvusOptions:         milvusopts.NewOptions(),
		CodeIndexOptions:      codeindexopts.NewOptions(),
		MemoryOptions:         mem,
		RedisOptions:          redisopts.NewOptions(),
		AnswerCacheOptions:    cacheopts.NewAnswerOptions(),
		EmbeddingCacheOptions: embCache,
		GeneratorOptions:      assistantopts.NewGeneratorOptions(),
		RouterOptions:         assistantopts.NewRouterOptions(),
	}
}

func TestNewAssistantOffline(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t)
	require.False(t, cfg.needsRedis())

	a, err := cfg.NewAssistant(ctx)
	require.NoError(t, err)
	defer a.Close(ctx)

	resp := a.Ask(ctx, "", string(biz.RoleDeveloper), "What does Noah build in Go?")
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.Response)
	assert.NotEmpty(t, resp.Meta.RequestID)

	stats := a.Stats(ctx)
	assert.Equal(t, store.KindMemory, stats["retriever"])
	assert.Equal(t, true, stats["degraded"])
	assert.NotEmpty(t, a.Metrics())
}

func TestNewAssistantMissingCorpus(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.RetrievalOptions.CorpusPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := cfg.NewAssistant(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")
}

func TestIngestWritesEmbeddingsBack(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t)

	a, err := cfg.NewAssistant(ctx)
	require.NoError(t, err)
	defer a.Close(ctx)

	result, err := a.Ingest(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, cfg.RetrievalOptions.CorpusPath, result.Target)

	idx, err := store.LoadMemoryIndex(cfg.RetrievalOptions.CorpusPath)
	require.NoError(t, err)
	for _, d := range idx.Documents() {
		assert.Len(t, d.Embedding, 64, d.ID)
	}
}

func TestIngestRecreateReembeds(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t)
	stale := `[
  {"id": "career-1", "content": "Noah builds data platforms in Go.", "source": "resume", "embedding": [1, 0]},
  {"id": "personal-1", "content": "Noah trains on weekends.", "source": "about", "embedding": [0, 1]}
]`
	require.NoError(t, os.WriteFile(cfg.RetrievalOptions.CorpusPath, []byte(stale), 0o600))

	a, err := cfg.NewAssistant(ctx)
	require.NoError(t, err)
	defer a.Close(ctx)

	_, err = a.Ingest(ctx, false)
	require.NoError(t, err)
	idx, err := store.LoadMemoryIndex(cfg.RetrievalOptions.CorpusPath)
	require.NoError(t, err)
	assert.Len(t, idx.Documents()[0].Embedding, 2)

	_, err = a.Ingest(ctx, true)
	require.NoError(t, err)
	idx, err = store.LoadMemoryIndex(cfg.RetrievalOptions.CorpusPath)
	require.NoError(t, err)
	for _, d := range idx.Documents() {
		assert.Len(t, d.Embedding, 64, d.ID)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a, err := offlineConfig(t).NewAssistant(ctx)
	require.NoError(t, err)

	a.Close(ctx)
	a.Close(ctx)
}

func TestEmbeddingDimension(t *testing.T) {
	assert.Equal(t, 8, embeddingDimension(nil, 8))
	docs := []*store.Document{{ID: "a"}, {ID: "b", Embedding: make([]float32, 3)}}
	assert.Equal(t, 3, embeddingDimension(docs, 8))
}

func TestRouterConfigOverrides(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.RetrievalOptions.TopK = 7
	cfg.RouterOptions.MMALink = "https://example.com/fights"

	rc := cfg.routerConfig()
	assert.Equal(t, 7, rc.TopK)
	assert.Equal(t, "https://example.com/fights", rc.MMALink)
	assert.Equal(t, biz.DefaultRouterConfig().ConfessionReply, rc.ConfessionReply)

	gc := cfg.generatorConfig()
	assert.Equal(t, "Noah", gc.SubjectName)
}
