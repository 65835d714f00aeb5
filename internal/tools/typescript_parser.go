package tools

import (
	"github.com/agusespa/calldelta/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

type TypeScriptParser struct {
	*treeParser
	extensions []string
}

func NewTypeScriptParser() (*TypeScriptParser, error) {
	tp, err := newTreeParser(sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()))
	if err != nil {
		return nil, err
	}
	return &TypeScriptParser{treeParser: tp, extensions: []string{".ts"}}, nil
}

// NewTSXParser uses the TSX dialect of the grammar for .tsx files.
func NewTSXParser() (*TypeScriptParser, error) {
	tp, err := newTreeParser(sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()))
	if err != nil {
		return nil, err
	}
	return &TypeScriptParser{treeParser: tp, extensions: []string{".tsx"}}, nil
}

func (tp *TypeScriptParser) Language() string {
	return "TypeScript"
}

func (tp *TypeScriptParser) SupportedExtensions() []string {
	return tp.extensions
}

func (tp *TypeScriptParser) ParseSpans(filePath string, content []byte) ([]types.FunctionSpan, error) {
	return tp.collectSpans(content, func(root *sitter.Node, add func(*sitter.Node, string)) {
		for _, child := range namedChildren(root) {
			switch child.Kind() {
			case "function_declaration", "generator_function_declaration":
				add(child, fieldText(child, "name", content))
			case "export_statement":
				decl := child.ChildByFieldName("declaration")
				if decl == nil {
					continue
				}
				switch decl.Kind() {
				case "function_declaration", "generator_function_declaration":
					add(child, fieldText(decl, "name", content))
				}
			}
		}
	})
}
