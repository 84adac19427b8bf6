package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/persona-assistant/pkg/component/milvus"
)

// Milvus 集合字段。
const (
	fieldDocID   = "doc_id"
	fieldContent = "content"
	fieldSource  = "source"
	fieldTags    = "tags"
)

var outputFields = []string{fieldDocID, fieldContent, fieldSource}

// milvusClient 是 MilvusIndex 使用的客户端子集。
type milvusClient interface {
	CreateCollection(ctx context.Context, schema *milvus.CollectionSchema) error
	Insert(ctx context.Context, collectionName string, data *milvus.InsertData) ([]int64, error)
	Search(ctx context.Context, req *milvus.SearchRequest) ([]milvus.SearchResult, error)
	DropCollection(ctx context.Context, collectionName string) error
	RowCount(ctx context.Context, collectionName string) (int64, error)
	Close(ctx context.Context) error
}

// MilvusIndex 基于 Milvus 集合的向量索引。
// 标签以 ",a,b," 形式存储，角色过滤转换为服务端过滤表达式。
type MilvusIndex struct {
	client     milvusClient
	collection string
}

// NewMilvusIndex 创建 Milvus 向量索引。
func NewMilvusIndex(client *milvus.Client, collection string) *MilvusIndex {
	return newMilvusIndex(client, collection)
}

func newMilvusIndex(client milvusClient, collection string) *MilvusIndex {
	return &MilvusIndex{client: client, collection: collection}
}

// EnsureCollection 不存在时创建集合（COSINE 度量）。
func (m *MilvusIndex) EnsureCollection(ctx context.Context, dimension int) error {
	return m.client.CreateCollection(ctx, &milvus.CollectionSchema{
		Name:        m.collection,
		Description: "persona assistant corpus",
		Dimension:   dimension,
		MetricType:  entity.COSINE,
		MetaFields: []milvus.MetaField{
			{Name: fieldDocID, DataType: entity.FieldTypeVarChar, MaxLen: 128},
			{Name: fieldContent, DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: fieldSource, DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: fieldTags, DataType: entity.FieldTypeVarChar, MaxLen: 512},
		},
	})
}

// Drop 删除集合，用于重建索引。
func (m *MilvusIndex) Drop(ctx context.Context) error {
	return m.client.DropCollection(ctx, m.collection)
}

// Count 返回集合中的文档数。
func (m *MilvusIndex) Count(ctx context.Context) (int64, error) {
	return m.client.RowCount(ctx, m.collection)
}

// Collection 返回集合名。
func (m *MilvusIndex) Collection() string { return m.collection }

// Insert 写入带向量的文档。
func (m *MilvusIndex) Insert(ctx context.Context, docs []*Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	embeddings := make([][]float32, len(docs))
	metadata := map[string][]any{
		fieldDocID:   make([]any, len(docs)),
		fieldContent: make([]any, len(docs)),
		fieldSource:  make([]any, len(docs)),
		fieldTags:    make([]any, len(docs)),
	}
	for i, d := range docs {
		if len(d.Embedding) == 0 {
			return 0, fmt.Errorf("document %s has no embedding", d.ID)
		}
		embeddings[i] = d.Embedding
		metadata[fieldDocID][i] = d.ID
		metadata[fieldContent][i] = d.Content
		metadata[fieldSource][i] = d.Source
		metadata[fieldTags][i] = encodeTags(d.Tags)
	}

	ids, err := m.client.Insert(ctx, m.collection, &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	})
	if err != nil {
		return 0, fmt.Errorf("insert into milvus: %w", err)
	}
	return len(ids), nil
}

// Search 执行带过滤表达式的向量检索。
func (m *MilvusIndex) Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Candidate, error) {
	results, err := m.client.Search(ctx, &milvus.SearchRequest{
		Collection:   m.collection,
		Vector:       vector,
		TopK:         topK,
		Filter:       filterExpr(filter),
		OutputFields: outputFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search milvus: %w", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		c := Candidate{Similarity: float64(r.Score)}
		c.ID, _ = r.Metadata[fieldDocID].(string)
		c.Content, _ = r.Metadata[fieldContent].(string)
		c.SourceID, _ = r.Metadata[fieldSource].(string)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Kind 返回 "milvus"。
func (m *MilvusIndex) Kind() string { return KindMilvus }

// Close 关闭 Milvus 连接。
func (m *MilvusIndex) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	normalized := make([]string, len(tags))
	for i, t := range tags {
		normalized[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return "," + strings.Join(normalized, ",") + ","
}

// filterExpr 将排除标签转换为 Milvus 布尔表达式。
func filterExpr(filter *Filter) string {
	if filter.Empty() {
		return ""
	}
	clauses := make([]string, 0, len(filter.ExcludeTags))
	for _, tag := range filter.ExcludeTags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.NewReplacer(`"`, "", `%`, "", `,`, "").Replace(tag)
		if tag == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf(`not (%s like "%%,%s,%%")`, fieldTags, tag))
	}
	return strings.Join(clauses, " and ")
}

var _ VectorIndex = (*MilvusIndex)(nil)
