// Package retrieval provides vector retrieval options.
package retrieval

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// 支持的向量索引类型。
const (
	IndexMemory = "memory"
	IndexMilvus = "milvus"
)

// Options 检索配置。
type Options struct {
	// TopK 每次检索返回的候选数量。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Threshold 相似度阈值，低于该值的候选被丢弃。
	Threshold float64 `json:"threshold" mapstructure:"threshold"`

	// Index 向量索引类型（memory, milvus）。
	Index string `json:"index" mapstructure:"index"`

	// CorpusPath JSON 语料文件路径。
	CorpusPath string `json:"corpus-path" mapstructure:"corpus-path"`

	// Dimension 向量维度，创建 Milvus 集合与降级 Embedding 时使用。
	Dimension int `json:"dimension" mapstructure:"dimension"`
}

// NewOptions creates default retrieval options.
func NewOptions() *Options {
	return &Options{
		TopK:       4,
		Threshold:  0.3,
		Index:      IndexMemory,
		CorpusPath: "data/corpus.json",
		Dimension:  1536,
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "retrieval."
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of candidates fetched per query.")
	fs.Float64Var(&o.Threshold, p+"threshold", o.Threshold, "Minimum similarity score in [0,1].")
	fs.StringVar(&o.Index, p+"index", o.Index, "Vector index backend (memory, milvus).")
	fs.StringVar(&o.CorpusPath, p+"corpus-path", o.CorpusPath, "Path to the JSON corpus.")
	fs.IntVar(&o.Dimension, p+"dimension", o.Dimension, "Embedding vector dimension.")
}

// Validate validates the retrieval options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval top-k must be positive"))
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		errs = append(errs, fmt.Errorf("retrieval threshold must be within [0, 1]"))
	}
	switch o.Index {
	case IndexMemory:
		if o.CorpusPath == "" {
			errs = append(errs, fmt.Errorf("retrieval corpus path is required for the memory index"))
		}
	case IndexMilvus:
	default:
		errs = append(errs, fmt.Errorf("unknown retrieval index %q", o.Index))
	}
	if o.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("retrieval dimension must be positive"))
	}
	return errs
}
