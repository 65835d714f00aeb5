package tools

import (
	"strings"

	"github.com/agusespa/calldelta/internal/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
)

// CParser extracts function definitions with the C grammar. The same grammar
// serves the cpp profile, which only differs in its extension list.
type CParser struct {
	*treeParser
	extensions []string
}

func NewCParser(extensions ...string) (*CParser, error) {
	tp, err := newTreeParser(sitter.NewLanguage(tree_sitter_c.Language()))
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = []string{".c"}
	}
	return &CParser{treeParser: tp, extensions: extensions}, nil
}

func (cp *CParser) Language() string {
	return "C"
}

func (cp *CParser) SupportedExtensions() []string {
	return cp.extensions
}

// Top-level containers whose children are still file-scope definitions.
var cScopeContainers = map[string]bool{
	"preproc_if":            true,
	"preproc_ifdef":         true,
	"preproc_else":          true,
	"preproc_elif":          true,
	"preproc_elifdef":       true,
	"linkage_specification": true,
	"declaration_list":      true,
}

func (cp *CParser) ParseSpans(filePath string, content []byte) ([]types.FunctionSpan, error) {
	return cp.collectSpans(content, func(root *sitter.Node, add func(*sitter.Node, string)) {
		var walk func(node *sitter.Node)
		walk = func(node *sitter.Node) {
			for _, child := range namedChildren(node) {
				switch {
				case child.Kind() == "function_definition":
					add(child, cp.functionName(child, content))
				case cScopeContainers[child.Kind()]:
					walk(child)
				}
			}
		}
		walk(root)
	})
}

// functionName follows the declarator chain (pointer returns, parenthesised
// declarators, attributes) down to the identifier being declared.
func (cp *CParser) functionName(fn *sitter.Node, src []byte) string {
	node := fn.ChildByFieldName("declarator")
	for node != nil {
		switch node.Kind() {
		case "identifier", "field_identifier":
			return strings.TrimSpace(node.Utf8Text(src))
		}
		next := node.ChildByFieldName("declarator")
		if next == nil && node.NamedChildCount() > 0 {
			next = node.NamedChild(0)
		}
		node = next
	}
	return ""
}
