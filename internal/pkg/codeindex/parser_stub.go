//go:build !cgo

package codeindex

import (
	"context"
	"errors"
)

// stubParser is used when CGO is not available; it indexes nothing.
type stubParser struct{}

// NewParser returns a parser that supports no files.
func NewParser() Parser {
	return stubParser{}
}

func (stubParser) Supports(string) bool { return false }

func (stubParser) Parse(context.Context, string, []byte) ([]Definition, error) {
	return nil, errors.New("tree-sitter parser requires cgo")
}
