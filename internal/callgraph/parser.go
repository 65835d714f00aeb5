package callgraph

import (
	"regexp"
	"strings"

	"github.com/agusespa/calldelta/internal/types"
)

// DefaultIndentUnit is the number of columns cflow uses per tree level.
const DefaultIndentUnit = 2

var calledIdentifier = regexp.MustCompile(`([A-Za-z_]\w*)\s*\(`)

// Parser turns call-tree text into caller/callee adjacency.
type Parser struct {
	// IndentUnit is the prefix width of one tree level.
	IndentUnit int
	// Inverted is set for reverse trees, where a child calls its parent.
	Inverted bool
}

// ParseStats describes one pass over call-tree text.
type ParseStats struct {
	Nodes   int // branch lines that yielded an identifier
	Edges   int // edges recorded, duplicates included
	Skipped int // branch lines without an identifier
}

type frame struct {
	depth int
	name  string
}

// Parse parses text into fresh trees using the given indentation unit.
func Parse(text string, indentUnit int) types.Trees {
	trees := types.NewTrees()
	Parser{IndentUnit: indentUnit}.ParseInto(text, trees)
	return trees
}

// ParseInto parses text and unions the edges into trees.
func (p Parser) ParseInto(text string, trees types.Trees) ParseStats {
	unit := p.IndentUnit
	if unit <= 0 {
		unit = DefaultIndentUnit
	}

	var stats ParseStats
	var stack []frame

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		prefix, rest := splitTreePrefix(line)
		if rest == "" || (rest[0] != '+' && rest[0] != '\\') {
			continue
		}

		m := calledIdentifier.FindStringSubmatch(rest)
		if m == nil {
			stats.Skipped++
			continue
		}
		name := m[1]
		depth := prefix / unit
		stats.Nodes++

		for len(stack) > 0 && (len(stack) > depth || stack[len(stack)-1].depth >= depth) {
			stack = stack[:len(stack)-1]
		}

		if len(stack) > 0 {
			parent := stack[len(stack)-1].name
			edge := types.CallEdge{Caller: parent, Callee: name}
			if p.Inverted {
				edge = types.CallEdge{Caller: name, Callee: parent}
			}
			trees.AddEdge(edge)
			stats.Edges++
		}

		stack = append(stack, frame{depth: depth, name: name})
	}

	return stats
}

// splitTreePrefix measures the leading run of blanks and "|" guides, which
// cflow uses to draw the branches of non-last siblings.
func splitTreePrefix(line string) (int, string) {
	width := 0
	for width < len(line) && (line[width] == ' ' || line[width] == '\t' || line[width] == '|') {
		width++
	}
	return width, line[width:]
}
