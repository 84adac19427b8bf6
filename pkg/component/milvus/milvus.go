// Package milvus 封装 Milvus v2 SDK，提供集合管理、写入与带过滤条件的向量检索。
package milvus

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/persona-assistant/pkg/options/milvus"
)

// VectorField 向量字段名。
const VectorField = "embedding"

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options

	// loaded 记录本进程已加载到内存的集合，避免每次检索都发起 Load。
	loaded sync.Map
}

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// CollectionSchema defines the schema for a vector collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	// MetricType 为空时使用 COSINE。
	MetricType entity.MetricType
	MetaFields []MetaField
}

// MetaField defines a metadata field in the collection.
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int // For VARCHAR type
}

// CreateCollection creates a new collection with the given schema.
// 已存在的集合直接返回。
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(true)

	collSchema.WithField(
		entity.NewField().
			WithName("pk").
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).
			WithIsAutoID(true),
	)
	collSchema.WithField(
		entity.NewField().
			WithName(VectorField).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)),
	)
	for _, f := range schema.MetaFields {
		field := entity.NewField().
			WithName(f.Name).
			WithDataType(f.DataType)
		if f.DataType == entity.FieldTypeVarChar && f.MaxLen > 0 {
			field.WithMaxLength(int64(f.MaxLen))
		}
		collSchema.WithField(field)
	}

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	metric := schema.MetricType
	if metric == "" {
		metric = entity.COSINE
	}
	idx := index.NewIvfFlatIndex(metric, 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, VectorField, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.load(ctx, schema.Name)
}

func (c *Client) load(ctx context.Context, collectionName string) error {
	if _, ok := c.loaded.Load(collectionName); ok {
		return nil
	}
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	c.loaded.Store(collectionName, struct{}{})
	return nil
}

// InsertData represents data to be inserted into a collection.
type InsertData struct {
	Embeddings [][]float32
	Metadata   map[string][]any
}

// Insert inserts vectors and metadata into the collection.
func (c *Client) Insert(ctx context.Context, collectionName string, data *InsertData) ([]int64, error) {
	if data == nil || len(data.Embeddings) == 0 {
		return nil, nil
	}

	columns := make([]column.Column, 0, len(data.Metadata)+1)
	columns = append(columns, column.NewColumnFloatVector(VectorField, len(data.Embeddings[0]), data.Embeddings))

	names := make([]string, 0, len(data.Metadata))
	for name := range data.Metadata {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := data.Metadata[name]
		if len(values) != len(data.Embeddings) {
			return nil, fmt.Errorf("field %s has %d values, expected %d", name, len(values), len(data.Embeddings))
		}
		switch v := values[0].(type) {
		case string:
			strVals := make([]string, len(values))
			for i, val := range values {
				strVals[i], _ = val.(string)
			}
			columns = append(columns, column.NewColumnVarChar(name, strVals))
		case int64:
			intVals := make([]int64, len(values))
			for i, val := range values {
				intVals[i], _ = val.(int64)
			}
			columns = append(columns, column.NewColumnInt64(name, intVals))
		default:
			return nil, fmt.Errorf("unsupported metadata type: %T for field %s", v, name)
		}
	}

	result, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...))
	if err != nil {
		return nil, fmt.Errorf("failed to insert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return nil, fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for flush: %w", err)
	}

	ids, ok := result.IDs.(*column.ColumnInt64)
	if !ok {
		return nil, nil
	}
	return ids.Data(), nil
}

// SearchRequest 描述一次向量检索。
type SearchRequest struct {
	Collection   string
	Vector       []float32
	TopK         int
	Filter       string
	OutputFields []string
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID       int64
	Score    float32
	Metadata map[string]any
}

// Search performs a vector similarity search. Filter 非空时在排序前由服务端过滤。
func (c *Client) Search(ctx context.Context, req *SearchRequest) ([]SearchResult, error) {
	if err := c.load(ctx, req.Collection); err != nil {
		return nil, err
	}

	opt := milvusclient.NewSearchOption(
		req.Collection,
		req.TopK,
		[]entity.Vector{entity.FloatVector(req.Vector)},
	).WithANNSField(VectorField).
		WithSearchParam("nprobe", "16").
		WithOutputFields(req.OutputFields...)
	if req.Filter != "" {
		opt = opt.WithFilter(req.Filter)
	}

	results, err := c.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	set := results[0]
	out := make([]SearchResult, 0, set.ResultCount)
	for i := 0; i < set.ResultCount; i++ {
		r := SearchResult{
			Score:    set.Scores[i],
			Metadata: make(map[string]any, len(set.Fields)),
		}
		if idCol, ok := set.IDs.(*column.ColumnInt64); ok {
			r.ID = idCol.Data()[i]
		}
		for _, field := range set.Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				r.Metadata[col.Name()] = col.Data()[i]
			case *column.ColumnInt64:
				r.Metadata[col.Name()] = col.Data()[i]
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// DropCollection 删除集合，集合不存在时不报错。
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	c.loaded.Delete(collectionName)
	return nil
}

// RowCount returns the number of entities in a collection.
func (c *Client) RowCount(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
