package callgraph

import (
	"context"

	"github.com/agusespa/calldelta/internal/types"
	"github.com/sirupsen/logrus"
)

// BuildStats counts what happened while building the trees of one version.
type BuildStats struct {
	Invocations  int
	ToolFailures int
	SkippedLines int
	// Interrupted is set when the context ended before every root was
	// queried. The trees are then incomplete.
	Interrupted bool
}

func (s *BuildStats) Add(other BuildStats) {
	s.Invocations += other.Invocations
	s.ToolFailures += other.ToolFailures
	s.SkippedLines += other.SkippedLines
	s.Interrupted = s.Interrupted || other.Interrupted
}

// Builder queries the tool once per root function and unions the parsed
// trees. A failed query contributes nothing and never stops the others.
type Builder struct {
	tool   Tool
	parser Parser
	depth  int
	logger logrus.FieldLogger
}

func NewBuilder(tool Tool, depth, indentUnit int, logger logrus.FieldLogger) *Builder {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Builder{
		tool:   tool,
		parser: Parser{IndentUnit: indentUnit},
		depth:  depth,
		logger: logger,
	}
}

// Build returns the caller/callee trees around each root, scoped to files.
// Roots are queried in order; duplicates are queried once.
func (b *Builder) Build(ctx context.Context, roots []string, files []string) (types.Trees, BuildStats) {
	trees := types.NewTrees()
	var stats BuildStats
	seen := make(map[string]bool, len(roots))

	for _, root := range roots {
		if seen[root] {
			continue
		}
		seen[root] = true

		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}

		stats.Invocations++
		res := b.tool.Run(ctx, Invocation{Root: root, Depth: b.depth, Files: files})
		if ctx.Err() != nil {
			// a run killed by the caller is not a tool failure
			stats.Interrupted = true
			break
		}
		if !res.OK() {
			stats.ToolFailures++
			b.logger.WithFields(logrus.Fields{
				"function": root,
				"outcome":  res.Outcome.String(),
			}).WithError(res.Err).Warn("call-graph query contributed no edges")
			continue
		}

		ps := b.parser.ParseInto(res.Output, trees)
		stats.SkippedLines += ps.Skipped
		b.logger.WithFields(logrus.Fields{
			"function": root,
			"nodes":    ps.Nodes,
			"edges":    ps.Edges,
		}).Debug("call tree parsed")
	}

	return trees, stats
}

// BuildReverse runs the tool once in reverse mode over files.
func (b *Builder) BuildReverse(ctx context.Context, files []string) (types.Trees, Result) {
	trees := types.NewTrees()
	res := b.tool.Run(ctx, Invocation{Reverse: true, Depth: b.depth, Files: files})
	if res.OK() {
		inverted := b.parser
		inverted.Inverted = true
		inverted.ParseInto(res.Output, trees)
	}
	return trees, res
}
