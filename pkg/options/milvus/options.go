// Package milvusopts provides options for the Milvus vector index.
package milvusopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options Milvus 连接与集合配置。
type Options struct {
	// Address Milvus 地址（host:port）。
	Address string `json:"address" mapstructure:"address"`

	// Database 数据库名称。
	Database string `json:"database" mapstructure:"database"`

	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`

	// Collection 语料集合名称。
	Collection string `json:"collection" mapstructure:"collection"`

	// Timeout 建连与单次操作超时。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Address:    "localhost:19530",
		Database:   "default",
		Collection: "persona_corpus",
		Timeout:    30 * time.Second,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "milvus."
	fs.StringVar(&o.Address, p+"address", o.Address, "Milvus server address (host:port).")
	fs.StringVar(&o.Database, p+"database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, p+"username", o.Username, "Milvus username.")
	fs.StringVar(&o.Password, p+"password", o.Password, "Milvus password.")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Collection holding the corpus vectors.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Connection and operation timeout.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus address is required"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("milvus collection is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus timeout must be positive"))
	}
	return errs
}
