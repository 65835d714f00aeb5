package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/agusespa/calldelta/internal/types"
	"github.com/sirupsen/logrus"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Language profile tags accepted by the registry.
const (
	LanguageC          = "c"
	LanguageCPP        = "cpp"
	LanguageGo         = "go"
	LanguagePython     = "python"
	LanguageJava       = "java"
	LanguageTypeScript = "typescript"
)

type SpanParser interface {
	// ParseSpans extracts the top-level function definitions of a file, ordered by start line
	ParseSpans(filePath string, content []byte) ([]types.FunctionSpan, error)

	// SupportedExtensions returns the file extensions this parser can handle
	SupportedExtensions() []string

	// Language returns the human-readable name of the language this parser handles
	Language() string
}

// ParserRegistry maps a language profile to the parsers of its file extensions.
type ParserRegistry struct {
	profiles map[string]map[string]SpanParser
	logger   logrus.FieldLogger
}

func NewParserRegistry(logger logrus.FieldLogger) (*ParserRegistry, error) {
	registry := &ParserRegistry{
		profiles: make(map[string]map[string]SpanParser),
		logger:   logger,
	}

	cParser, err := NewCParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create C parser: %w", err)
	}
	registry.RegisterParser(LanguageC, cParser)

	cppParser, err := NewCParser(".cpp", ".cxx", ".cc", ".hpp", ".h")
	if err != nil {
		return nil, fmt.Errorf("failed to create C++ parser: %w", err)
	}
	registry.RegisterParser(LanguageCPP, cppParser)

	goParser, err := NewGoParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create Go parser: %w", err)
	}
	registry.RegisterParser(LanguageGo, goParser)

	pythonParser, err := NewPythonParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create Python parser: %w", err)
	}
	registry.RegisterParser(LanguagePython, pythonParser)

	javaParser, err := NewJavaParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create Java parser: %w", err)
	}
	registry.RegisterParser(LanguageJava, javaParser)

	tsParser, err := NewTypeScriptParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create TypeScript parser: %w", err)
	}
	registry.RegisterParser(LanguageTypeScript, tsParser)

	tsxParser, err := NewTSXParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create TSX parser: %w", err)
	}
	registry.RegisterParser(LanguageTypeScript, tsxParser)

	return registry, nil
}

func (pr *ParserRegistry) RegisterParser(language string, parser SpanParser) {
	byExt, ok := pr.profiles[language]
	if !ok {
		byExt = make(map[string]SpanParser)
		pr.profiles[language] = byExt
	}
	for _, ext := range parser.SupportedExtensions() {
		byExt[ext] = parser
	}
}

// Languages returns the registered profile tags, sorted.
func (pr *ParserRegistry) Languages() []string {
	var tags []string
	for tag := range pr.profiles {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (pr *ParserRegistry) HasLanguage(language string) bool {
	_, ok := pr.profiles[language]
	return ok
}

// GetParser returns the parser for filePath under the given profile, or nil
// when the extension does not belong to that language.
func (pr *ParserRegistry) GetParser(filePath, language string) SpanParser {
	ext := strings.ToLower(filepath.Ext(filePath))
	return pr.profiles[language][ext]
}

func (pr *ParserRegistry) IsLanguageFile(filePath, language string) bool {
	return pr.GetParser(filePath, language) != nil
}

// ParseSpans parses in-memory content. Files of another language yield no spans.
func (pr *ParserRegistry) ParseSpans(filePath, language string, content []byte) ([]types.FunctionSpan, error) {
	parser := pr.GetParser(filePath, language)
	if parser == nil {
		return []types.FunctionSpan{}, nil
	}
	return parser.ParseSpans(filePath, content)
}

// ExtractSpans reads and parses one file. It never fails: a file of another
// language, an unreadable file or a parse failure all yield an empty slice.
func (pr *ParserRegistry) ExtractSpans(filePath, language string) []types.FunctionSpan {
	parser := pr.GetParser(filePath, language)
	if parser == nil {
		return []types.FunctionSpan{}
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		pr.logger.WithError(err).WithField("file", filePath).Debug("source file unreadable, no spans")
		return []types.FunctionSpan{}
	}

	spans, err := parser.ParseSpans(filePath, content)
	if err != nil {
		pr.logger.WithError(err).WithField("file", filePath).Debug("source file unparsable, no spans")
		return []types.FunctionSpan{}
	}
	return spans
}

// treeParser wraps a tree-sitter parser, which must not be used from two
// goroutines at once.
type treeParser struct {
	mu       sync.Mutex
	parser   *sitter.Parser
	language *sitter.Language
}

func newTreeParser(lang *sitter.Language) (*treeParser, error) {
	parser := sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}
	return &treeParser{parser: parser, language: lang}, nil
}

func (tp *treeParser) parse(src []byte) (*sitter.Tree, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	tree := tp.parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil")
	}
	return tree, nil
}

// collectSpans parses src and hands the root node to visit, which appends the
// definitions it finds. The result is ordered by start line.
func (tp *treeParser) collectSpans(src []byte, visit func(root *sitter.Node, add func(node *sitter.Node, name string))) ([]types.FunctionSpan, error) {
	tree, err := tp.parse(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	spans := []types.FunctionSpan{}
	visit(tree.RootNode(), func(node *sitter.Node, name string) {
		if name == "" {
			return
		}
		spans = append(spans, spanOf(node, name, src))
	})

	slices.SortStableFunc(spans, func(a, b types.FunctionSpan) int {
		return a.StartLine - b.StartLine
	})
	return spans, nil
}

func spanOf(node *sitter.Node, name string, src []byte) types.FunctionSpan {
	return types.FunctionSpan{
		Name:      name,
		StartLine: int(node.StartPosition().Row) + 1,
		EndLine:   int(node.EndPosition().Row) + 1,
		Content:   DecodeSource(src[node.StartByte():node.EndByte()]),
	}
}

func fieldText(node *sitter.Node, field string, src []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Utf8Text(src))
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	count := node.NamedChildCount()
	children := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if child := node.NamedChild(i); child != nil {
			children = append(children, child)
		}
	}
	return children
}
