package codeindex

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind 符号类型。
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
)

// Symbol 源码中的一个函数或类定义。
type Symbol struct {
	File         string `json:"file"`
	Name         string `json:"name"`
	Kind         Kind   `json:"kind"`
	LineStart    int    `json:"line_start"`
	LineEnd      int    `json:"line_end"`
	Content      string `json:"content"`
	Citation     string `json:"citation"`
	ExternalLink string `json:"external_link,omitempty"`
}

// Citation formats "file:start-end".
func Citation(file string, start, end int) string {
	return fmt.Sprintf("%s:%d-%d", file, start, end)
}

// ExternalLink 生成指向代码托管平台的行号链接，base 为空时返回空串。
func ExternalLink(base, file string, start, end int) string {
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s#L%d-L%d", strings.TrimRight(base, "/"), file, start, end)
}

// Definition 解析器从单个文件中提取的定义，行号从 1 开始。
type Definition struct {
	Name      string
	Kind      Kind
	LineStart int
	LineEnd   int
}

// Parser 将源文件解析为定义列表。实现必须可以并发调用。
type Parser interface {
	// Supports 判断是否能解析该路径的文件。
	Supports(path string) bool

	// Parse 返回文件中所有顶层与嵌套的函数、类定义（文档顺序）。
	// 语法错误返回 error。
	Parse(ctx context.Context, path string, src []byte) ([]Definition, error)
}

// Language 源码语言。
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
)

var extLanguages = map[string]Language{
	".go":  LangGo,
	".py":  LangPython,
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".ts":  LangTypeScript,
}

// LanguageOf returns the language for a file path by extension.
func LanguageOf(path string) (Language, bool) {
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}
