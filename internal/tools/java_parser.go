package tools

import (
	"github.com/agusespa/calldelta/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

type JavaParser struct {
	*treeParser
}

func NewJavaParser() (*JavaParser, error) {
	tp, err := newTreeParser(sitter.NewLanguage(tree_sitter_java.Language()))
	if err != nil {
		return nil, err
	}
	return &JavaParser{treeParser: tp}, nil
}

func (jp *JavaParser) Language() string {
	return "Java"
}

func (jp *JavaParser) SupportedExtensions() []string {
	return []string{".java"}
}

var javaTypeDeclarations = map[string]bool{
	"class_declaration":     true,
	"interface_declaration": true,
	"enum_declaration":      true,
	"record_declaration":    true,
}

// ParseSpans treats the members of top-level type bodies as the file's
// top-level functions; nested and local classes are not descended into.
func (jp *JavaParser) ParseSpans(filePath string, content []byte) ([]types.FunctionSpan, error) {
	return jp.collectSpans(content, func(root *sitter.Node, add func(*sitter.Node, string)) {
		var members func(body *sitter.Node)
		members = func(body *sitter.Node) {
			for _, member := range namedChildren(body) {
				switch member.Kind() {
				case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
					add(member, fieldText(member, "name", content))
				case "enum_body_declarations":
					members(member)
				}
			}
		}

		for _, child := range namedChildren(root) {
			if !javaTypeDeclarations[child.Kind()] {
				continue
			}
			if body := child.ChildByFieldName("body"); body != nil {
				members(body)
			}
		}
	})
}
