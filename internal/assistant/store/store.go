// Package store 定义外部向量索引接口及其实现（内存索引、Milvus）。
package store

import (
	"context"
	"strings"
)

// Index kinds reported by VectorIndex.Kind.
const (
	KindMemory = "memory"
	KindMilvus = "milvus"
)

// Document 语料中的一个文本块。
type Document struct {
	ID        string    `json:"id" validate:"notblank"`
	Content   string    `json:"content" validate:"notblank"`
	Source    string    `json:"source" validate:"notblank"`
	Tags      []string  `json:"tags,omitempty" validate:"dive,notblank"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// HasTag reports whether the document carries tag (case-insensitive).
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Candidate 索引返回的候选结果，不保证顺序。
type Candidate struct {
	ID         string
	Content    string
	SourceID   string
	Similarity float64
}

// Filter 检索前应用的过滤条件。
type Filter struct {
	// ExcludeTags 带有任一标签的文档不参与相似度排序。
	ExcludeTags []string
}

// Empty reports whether the filter excludes nothing.
func (f *Filter) Empty() bool {
	return f == nil || len(f.ExcludeTags) == 0
}

// VectorIndex 外部向量索引。
type VectorIndex interface {
	// Search 返回与 vector 最相似的至多 topK 个候选。
	Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Candidate, error)

	// Kind 返回索引类型标识。
	Kind() string

	// Close 释放索引资源。
	Close(ctx context.Context) error
}
