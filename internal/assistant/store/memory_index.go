package store

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/kart-io/logger"

	"github.com/kart-io/persona-assistant/internal/pkg/textutil"
	"github.com/kart-io/persona-assistant/pkg/llm"
	"github.com/kart-io/persona-assistant/pkg/utils/json"
)

// MemoryIndex 进程内向量索引，暴力计算余弦相似度。
type MemoryIndex struct {
	docs []*Document
}

// NewMemoryIndex 从文档列表创建内存索引。
func NewMemoryIndex(docs []*Document) *MemoryIndex {
	return &MemoryIndex{docs: docs}
}

// LoadMemoryIndex 从 JSON 语料文件加载内存索引。
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	var docs []*Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	if err := ValidateDocuments(docs); err != nil {
		return nil, fmt.Errorf("invalid corpus %s: %w", path, err)
	}
	return NewMemoryIndex(docs), nil
}

// SaveCorpus 将文档（含已生成的向量）写回 JSON 语料文件。
func SaveCorpus(path string, docs []*Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write corpus %s: %w", path, err)
	}
	return nil
}

// Documents 返回索引中的文档。
func (m *MemoryIndex) Documents() []*Document {
	return m.docs
}

// EnsureEmbeddings 为缺少向量的文档批量生成 Embedding。
func (m *MemoryIndex) EnsureEmbeddings(ctx context.Context, embedder llm.EmbeddingProvider) error {
	var (
		missing []*Document
		texts   []string
	)
	for _, d := range m.docs {
		if len(d.Embedding) == 0 {
			missing = append(missing, d)
			texts = append(texts, d.Content)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(missing) {
		return fmt.Errorf("embed corpus: expected %d vectors, got %d", len(missing), len(vectors))
	}
	for i, d := range missing {
		d.Embedding = vectors[i]
	}
	logger.Infow("corpus embeddings generated", "count", len(missing), "provider", embedder.Name())
	return nil
}

// Search 在过滤后的文档上计算相似度并返回前 topK 个。
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(m.docs))
	for _, d := range m.docs {
		if excluded(d, filter) || len(d.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:         d.ID,
			Content:    d.Content,
			SourceID:   d.Source,
			Similarity: textutil.CosineSimilarity(vector, d.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func excluded(d *Document, filter *Filter) bool {
	if filter.Empty() {
		return false
	}
	for _, tag := range filter.ExcludeTags {
		if d.HasTag(tag) {
			return true
		}
	}
	return false
}

// Kind 返回 "memory"。
func (m *MemoryIndex) Kind() string { return KindMemory }

// Close 无需释放资源。
func (m *MemoryIndex) Close(context.Context) error { return nil }

var _ VectorIndex = (*MemoryIndex)(nil)
