//go:build cgo

package codeindex

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kart-io/persona-assistant/internal/pkg/textutil"
)

// TreeSitterParser 基于 tree-sitter 的多语言解析器。
type TreeSitterParser struct{}

// NewParser returns the tree-sitter parser.
func NewParser() Parser {
	return TreeSitterParser{}
}

func grammar(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	}
	return nil
}

var (
	functionNodes = map[Language][]string{
		LangGo:         {"function_declaration", "method_declaration"},
		LangPython:     {"function_definition"},
		LangJavaScript: {"function_declaration", "generator_function_declaration", "method_definition"},
		LangTypeScript: {"function_declaration", "generator_function_declaration", "method_definition"},
	}
	classNodes = map[Language][]string{
		LangGo:         {"type_declaration"},
		LangPython:     {"class_definition"},
		LangJavaScript: {"class_declaration"},
		LangTypeScript: {"class_declaration", "abstract_class_declaration"},
	}
)

// Supports 判断文件扩展名是否受支持。
func (TreeSitterParser) Supports(path string) bool {
	_, ok := LanguageOf(path)
	return ok
}

// Parse 解析源文件并提取定义。每次调用使用独立的 sitter.Parser。
func (TreeSitterParser) Parse(ctx context.Context, path string, src []byte) ([]Definition, error) {
	lang, ok := LanguageOf(path)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar(lang))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("parse %s: syntax error", path)
	}

	funcs := functionNodes[lang]
	classes := classNodes[lang]

	var defs []Definition
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch t := n.Type(); {
		case textutil.ContainsString(funcs, t):
			if name := childText(n, "name", src); name != "" {
				defs = append(defs, definition(n, name, KindFunction))
			}
		case textutil.ContainsString(classes, t):
			defs = append(defs, classDefinitions(n, lang, src)...)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return defs, nil
}

// classDefinitions 处理类定义；Go 的分组 type 声明对每个 type_spec 生成一个定义。
func classDefinitions(n *sitter.Node, lang Language, src []byte) []Definition {
	if lang != LangGo {
		if name := childText(n, "name", src); name != "" {
			return []Definition{definition(n, name, KindClass)}
		}
		return nil
	}

	var specs []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "type_spec" || c.Type() == "type_alias" {
			specs = append(specs, c)
		}
	}
	if len(specs) == 1 {
		if name := childText(specs[0], "name", src); name != "" {
			return []Definition{definition(n, name, KindClass)}
		}
		return nil
	}
	defs := make([]Definition, 0, len(specs))
	for _, s := range specs {
		if name := childText(s, "name", src); name != "" {
			defs = append(defs, definition(s, name, KindClass))
		}
	}
	return defs
}

func definition(n *sitter.Node, name string, kind Kind) Definition {
	return Definition{
		Name:      name,
		Kind:      kind,
		LineStart: int(n.StartPoint().Row) + 1,
		LineEnd:   int(n.EndPoint().Row) + 1,
	}
}

func childText(n *sitter.Node, field string, src []byte) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return c.Content(src)
}
