package biz

import (
	"context"
	"sort"
	"time"

	"github.com/kart-io/persona-assistant/internal/assistant/metrics"
	"github.com/kart-io/persona-assistant/internal/assistant/store"
	"github.com/kart-io/persona-assistant/internal/pkg/textutil"
	"github.com/kart-io/persona-assistant/pkg/errors"
	logfields "github.com/kart-io/persona-assistant/pkg/infra/logger"
	"github.com/kart-io/persona-assistant/pkg/llm"
)

// KindNone 未配置向量索引时的检索器类型。
const KindNone = "none"

// Retriever 负责阈值过滤的语义检索。
// 失败时返回空结果而不是错误，调用方将其视为无可用上下文。
type Retriever struct {
	embedder llm.EmbeddingProvider
	index    store.VectorIndex
	kind     string
	metrics  *metrics.Metrics
}

// NewRetriever 创建检索器实例。index 为空时所有检索返回空结果。
func NewRetriever(embedder llm.EmbeddingProvider, index store.VectorIndex, m *metrics.Metrics) *Retriever {
	kind := KindNone
	if index != nil {
		kind = index.Kind()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Retriever{embedder: embedder, index: index, kind: kind, metrics: m}
}

// Kind 返回检索器类型标识。
func (r *Retriever) Kind() string { return r.kind }

// Retrieve 检索与 query 相似度不低于 threshold 的至多 topK 个文本块。
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) *RetrievalResult {
	return r.retrieve(ctx, query, topK, threshold, nil)
}

// RetrieveForRole 在检索前按角色过滤索引内容。
func (r *Retriever) RetrieveForRole(ctx context.Context, role Role, query string, topK int, threshold float64) *RetrievalResult {
	var filter *store.Filter
	if tags := role.ExcludeTags(); len(tags) > 0 {
		filter = &store.Filter{ExcludeTags: tags}
	}
	return r.retrieve(ctx, query, topK, threshold, filter)
}

func (r *Retriever) empty(start time.Time) *RetrievalResult {
	return &RetrievalResult{
		Matches:       []string{},
		Scores:        []float64{},
		Sources:       []string{},
		LatencyMS:     time.Since(start).Milliseconds(),
		RetrieverKind: r.kind,
	}
}

func (r *Retriever) retrieve(ctx context.Context, query string, topK int, threshold float64, filter *store.Filter) *RetrievalResult {
	start := time.Now()
	if r.index == nil || topK <= 0 {
		return r.empty(start)
	}

	vector, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		err = errors.ErrProviderUnavailable.WithCause(err)
		logfields.FromContext(ctx).Warnw("query embedding failed, continuing without context", "error", err.Error())
		r.metrics.RecordRetrieval(time.Since(start), 0, err)
		return r.empty(start)
	}

	candidates, err := r.index.Search(ctx, vector, topK, filter)
	if err != nil {
		err = errors.ErrIndexUnavailable.WithCause(err)
		logfields.FromContext(ctx).Warnw("vector index unavailable, continuing without context",
			"kind", r.kind, "error", err.Error())
		r.metrics.RecordRetrieval(time.Since(start), 0, err)
		return r.empty(start)
	}

	kept := make([]store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.Similarity = textutil.Clamp01(c.Similarity)
		if c.Similarity >= threshold {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})
	if len(kept) > topK {
		kept = kept[:topK]
	}

	result := r.empty(start)
	for _, c := range kept {
		result.Matches = append(result.Matches, c.Content)
		result.Scores = append(result.Scores, c.Similarity)
		result.Sources = append(result.Sources, c.SourceID)
	}
	result.LatencyMS = time.Since(start).Milliseconds()

	if result.Empty() {
		logfields.FromContext(ctx).Debugw("no context cleared the similarity threshold",
			"threshold", threshold, "candidates", len(candidates), "code", errors.ErrRetrievalEmpty.Code)
	}
	r.metrics.RecordRetrieval(time.Since(start), len(result.Matches), nil)
	return result
}
