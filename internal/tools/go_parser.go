package tools

import (
	"github.com/agusespa/calldelta/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

type GoParser struct {
	*treeParser
}

func NewGoParser() (*GoParser, error) {
	tp, err := newTreeParser(sitter.NewLanguage(tree_sitter_go.Language()))
	if err != nil {
		return nil, err
	}
	return &GoParser{treeParser: tp}, nil
}

func (gp *GoParser) Language() string {
	return "Go"
}

func (gp *GoParser) SupportedExtensions() []string {
	return []string{".go"}
}

// ParseSpans returns package-level functions and methods. Methods are keyed by
// their bare name, without the receiver type.
func (gp *GoParser) ParseSpans(filePath string, content []byte) ([]types.FunctionSpan, error) {
	return gp.collectSpans(content, func(root *sitter.Node, add func(*sitter.Node, string)) {
		for _, child := range namedChildren(root) {
			switch child.Kind() {
			case "function_declaration", "method_declaration":
				add(child, fieldText(child, "name", content))
			}
		}
	})
}
