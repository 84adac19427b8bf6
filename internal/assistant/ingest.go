package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/persona-assistant/internal/assistant/store"
	retrievalopts "github.com/kart-io/persona-assistant/pkg/options/retrieval"
)

// IngestResult 语料导入结果。
type IngestResult struct {
	Documents  int    `json:"documents"`
	Written    int    `json:"written"`
	Target     string `json:"target"`
	DurationMS int64  `json:"duration_ms"`
}

// Ingest embeds the corpus file. With the memory index the vectors are
// written back to the corpus; with Milvus the documents are inserted into the
// configured collection, creating it when missing. recreate re-embeds every
// document and, for Milvus, drops the collection first.
func (a *Assistant) Ingest(ctx context.Context, recreate bool) (*IngestResult, error) {
	start := time.Now()
	opts := a.cfg.RetrievalOptions

	corpus, err := store.LoadMemoryIndex(opts.CorpusPath)
	if err != nil {
		return nil, err
	}
	if recreate {
		for _, d := range corpus.Documents() {
			d.Embedding = nil
		}
	}
	if a.engine.EmbedderDegraded {
		logger.Warnw("ingesting with offline embeddings; rerun once the embedding provider is configured")
	}
	if err := corpus.EnsureEmbeddings(ctx, a.engine.Embedder); err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	docs := corpus.Documents()

	result := &IngestResult{Documents: len(docs)}
	switch opts.Index {
	case retrievalopts.IndexMilvus:
		if a.milvus == nil {
			return nil, fmt.Errorf("milvus is not reachable at %s", a.cfg.MilvusOptions.Address)
		}
		idx := store.NewMilvusIndex(a.milvus, a.cfg.MilvusOptions.Collection)
		if recreate {
			if err := idx.Drop(ctx); err != nil {
				return nil, fmt.Errorf("drop collection: %w", err)
			}
		}
		if err := idx.EnsureCollection(ctx, embeddingDimension(docs, opts.Dimension)); err != nil {
			return nil, fmt.Errorf("ensure collection: %w", err)
		}
		n, err := idx.Insert(ctx, docs)
		if err != nil {
			return nil, err
		}
		result.Written = n
		result.Target = "milvus:" + a.cfg.MilvusOptions.Collection
	default:
		if err := store.SaveCorpus(opts.CorpusPath, docs); err != nil {
			return nil, err
		}
		result.Written = len(docs)
		result.Target = opts.CorpusPath
	}

	result.DurationMS = time.Since(start).Milliseconds()
	logger.Infow("corpus ingested", "documents", result.Documents, "written", result.Written,
		"target", result.Target, "duration_ms", result.DurationMS)
	return result, nil
}

// embeddingDimension 以实际向量维度为准，语料为空时使用配置值。
func embeddingDimension(docs []*store.Document, fallback int) int {
	for _, d := range docs {
		if n := len(d.Embedding); n > 0 {
			return n
		}
	}
	return fallback
}
