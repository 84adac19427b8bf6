// Package codeindex provides code symbol index options.
package codeindex

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options 代码符号索引配置。Root 为空时不启用代码检索。
type Options struct {
	Root         string `json:"root" mapstructure:"root"`
	LinkBase     string `json:"link-base" mapstructure:"link-base"`
	CheckModTime bool   `json:"check-mtime" mapstructure:"check-mtime"`
	Workers      int    `json:"workers" mapstructure:"workers"`
	MaxResults   int    `json:"max-results" mapstructure:"max-results"`
}

// NewOptions creates default code index options.
func NewOptions() *Options {
	return &Options{
		CheckModTime: true,
		Workers:      runtime.NumCPU(),
		MaxResults:   3,
	}
}

// Enabled reports whether a source root is configured.
func (o *Options) Enabled() bool {
	return o != nil && o.Root != ""
}

// AddFlags adds flags for code index options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "codeindex."
	fs.StringVar(&o.Root, p+"root", o.Root, "Source tree to index; empty disables code lookup.")
	fs.StringVar(&o.LinkBase, p+"link-base", o.LinkBase, "URL prefix for symbol links, e.g. https://github.com/owner/repo/blob/main.")
	fs.BoolVar(&o.CheckModTime, p+"check-mtime", o.CheckModTime, "Rebuild the index when source files change.")
	fs.IntVar(&o.Workers, p+"workers", o.Workers, "Parser worker count.")
	fs.IntVar(&o.MaxResults, p+"max-results", o.MaxResults, "Default number of symbols per lookup.")
}

// Validate validates the code index options.
func (o *Options) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	var errs []error
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("codeindex workers must be positive"))
	}
	if o.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("codeindex max-results must be positive"))
	}
	return errs
}
