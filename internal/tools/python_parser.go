package tools

import (
	"github.com/agusespa/calldelta/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

type PythonParser struct {
	*treeParser
}

func NewPythonParser() (*PythonParser, error) {
	tp, err := newTreeParser(sitter.NewLanguage(tree_sitter_python.Language()))
	if err != nil {
		return nil, err
	}
	return &PythonParser{treeParser: tp}, nil
}

func (pp *PythonParser) Language() string {
	return "Python"
}

func (pp *PythonParser) SupportedExtensions() []string {
	return []string{".py"}
}

// ParseSpans returns module-level functions. A decorated function's span
// starts at its first decorator.
func (pp *PythonParser) ParseSpans(filePath string, content []byte) ([]types.FunctionSpan, error) {
	return pp.collectSpans(content, func(root *sitter.Node, add func(*sitter.Node, string)) {
		for _, child := range namedChildren(root) {
			switch child.Kind() {
			case "function_definition":
				add(child, fieldText(child, "name", content))
			case "decorated_definition":
				def := child.ChildByFieldName("definition")
				if def != nil && def.Kind() == "function_definition" {
					add(child, fieldText(def, "name", content))
				}
			}
		}
	})
}
