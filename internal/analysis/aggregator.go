package analysis

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agusespa/calldelta/internal/callgraph"
	"github.com/agusespa/calldelta/internal/tools"
	"github.com/agusespa/calldelta/internal/types"
	"github.com/sirupsen/logrus"
)

// Scope selects which files the call-graph tool sees for one query.
type Scope string

const (
	// ScopeFile passes only the file that defines the queried function.
	ScopeFile Scope = "file"
	// ScopeTree passes every language file of that version's tree.
	ScopeTree Scope = "tree"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(s)) {
	case "", ScopeFile:
		return ScopeFile, nil
	case ScopeTree:
		return ScopeTree, nil
	default:
		return "", fmt.Errorf("unknown call-graph scope %q (want file or tree)", s)
	}
}

// Snapshot is one commit's pair of extracted trees.
type Snapshot struct {
	CommitBefore string
	CommitAfter  string
	BeforeDir    string
	AfterDir     string
}

// FilePair holds the slash-separated paths of one file in both trees,
// relative to the snapshot directories.
type FilePair struct {
	Before string
	After  string
}

// PairResult is what one file pair contributes to a PatchRecord.
type PairResult struct {
	FunctionsBefore []types.FunctionRecord
	FunctionsAfter  []types.FunctionRecord
	TreesBefore     types.Trees
	TreesAfter      types.Trees
	Build           callgraph.BuildStats
}

// Stats summarises one AnalyzeCommit call.
type Stats struct {
	Pairs           int
	ChangedPairs    int
	FunctionsBefore int
	FunctionsAfter  int
	Build           callgraph.BuildStats
}

// Aggregator turns the file pairs of a snapshot into a PatchRecord.
type Aggregator struct {
	registry *tools.ParserRegistry
	builder  *callgraph.Builder
	language string
	scope    Scope
	logger   logrus.FieldLogger
}

func NewAggregator(registry *tools.ParserRegistry, builder *callgraph.Builder, language string, scope Scope, logger logrus.FieldLogger) *Aggregator {
	if scope == "" {
		scope = ScopeFile
	}
	return &Aggregator{
		registry: registry,
		builder:  builder,
		language: language,
		scope:    scope,
		logger:   logger,
	}
}

// PairFiles walks the after tree in lexical order and pairs every language
// file with its counterpart in the before tree. The commit id in the first
// two path components is rewritten from the after commit to the before
// commit. Files added by the change have no counterpart and are skipped.
func PairFiles(registry *tools.ParserRegistry, snap Snapshot, language string) ([]FilePair, error) {
	var pairs []FilePair

	err := filepath.WalkDir(snap.AfterDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !registry.IsLanguageFile(path, language) {
			return nil
		}

		rel, err := filepath.Rel(snap.AfterDir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 {
			return nil
		}

		after := strings.Join(parts, "/")
		for i := 0; i < 2; i++ {
			parts[i] = strings.ReplaceAll(parts[i], snap.CommitAfter, snap.CommitBefore)
		}
		before := strings.Join(parts, "/")

		info, err := os.Stat(filepath.Join(snap.BeforeDir, filepath.FromSlash(before)))
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}

		pairs = append(pairs, FilePair{Before: before, After: after})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", snap.AfterDir, err)
	}

	return pairs, nil
}

// AnalyzeCommit runs every file pair of the snapshot and merges the results.
// It returns a nil record when no function changed on either side.
func (a *Aggregator) AnalyzeCommit(ctx context.Context, snap Snapshot) (*types.PatchRecord, Stats, error) {
	var stats Stats

	pairs, err := PairFiles(a.registry, snap, a.language)
	if err != nil {
		return nil, stats, err
	}

	var scope versionScope
	if a.scope == ScopeTree {
		if scope, err = a.treeScope(snap); err != nil {
			return nil, stats, err
		}
	}

	record := types.NewPatchRecord(snap.CommitBefore, snap.CommitAfter)
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		res := a.analyzePair(ctx, snap, pair, scope)
		stats.Pairs++
		stats.Build.Add(res.Build)
		if len(res.FunctionsBefore) == 0 && len(res.FunctionsAfter) == 0 {
			continue
		}
		stats.ChangedPairs++

		record.FunctionsBefore = append(record.FunctionsBefore, res.FunctionsBefore...)
		record.FunctionsAfter = append(record.FunctionsAfter, res.FunctionsAfter...)
		record.BeforeTrees().Merge(res.TreesBefore)
		record.AfterTrees().Merge(res.TreesAfter)
	}

	// a pair cut short by cancellation has missing edges
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	stats.FunctionsBefore = len(record.FunctionsBefore)
	stats.FunctionsAfter = len(record.FunctionsAfter)

	if record.Empty() {
		return nil, stats, nil
	}
	return record, stats, nil
}

// AnalyzePair runs a single file pair of the snapshot.
func (a *Aggregator) AnalyzePair(ctx context.Context, snap Snapshot, pair FilePair) (PairResult, error) {
	var scope versionScope
	if a.scope == ScopeTree {
		var err error
		if scope, err = a.treeScope(snap); err != nil {
			return PairResult{}, err
		}
	}
	res := a.analyzePair(ctx, snap, pair, scope)
	if err := ctx.Err(); err != nil {
		return PairResult{}, err
	}
	return res, nil
}

// versionScope holds the tool file lists of a tree-scoped commit. A nil
// list means the defining file alone.
type versionScope struct {
	before []string
	after  []string
}

func (a *Aggregator) treeScope(snap Snapshot) (versionScope, error) {
	before, err := a.languageFiles(snap.BeforeDir)
	if err != nil {
		return versionScope{}, err
	}
	after, err := a.languageFiles(snap.AfterDir)
	if err != nil {
		return versionScope{}, err
	}
	return versionScope{before: before, after: after}, nil
}

func (a *Aggregator) languageFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && a.registry.IsLanguageFile(path, a.language) {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			files = append(files, abs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list source files under %s: %w", root, err)
	}
	return files, nil
}

func (a *Aggregator) analyzePair(ctx context.Context, snap Snapshot, pair FilePair, scope versionScope) PairResult {
	res := PairResult{TreesBefore: types.NewTrees(), TreesAfter: types.NewTrees()}

	beforePath := filepath.Join(snap.BeforeDir, filepath.FromSlash(pair.Before))
	afterPath := filepath.Join(snap.AfterDir, filepath.FromSlash(pair.After))

	fc := detectFiles(a.registry, beforePath, afterPath, a.language)
	if len(fc.changed) == 0 {
		return res
	}

	log := a.logger.WithFields(logrus.Fields{
		"commit": snap.CommitAfter,
		"file":   pair.After,
	})
	log.WithField("functions", fc.changed.Names()).Debug("changed functions detected")

	var stats callgraph.BuildStats
	res.FunctionsBefore, res.TreesBefore, stats = a.versionRecords(ctx, fc.changed.FilterSpans(fc.beforeSpans), pair.Before, beforePath, scope.before)
	res.Build.Add(stats)
	res.FunctionsAfter, res.TreesAfter, stats = a.versionRecords(ctx, fc.changed.FilterSpans(fc.afterSpans), pair.After, afterPath, scope.after)
	res.Build.Add(stats)

	return res
}

// versionRecords queries the tool once per span and builds the records of
// one side of a pair.
func (a *Aggregator) versionRecords(ctx context.Context, spans []types.FunctionSpan, relPath, absPath string, scopeFiles []string) ([]types.FunctionRecord, types.Trees, callgraph.BuildStats) {
	if len(spans) == 0 {
		return nil, types.NewTrees(), callgraph.BuildStats{}
	}

	files := scopeFiles
	if files == nil {
		abs, err := filepath.Abs(absPath)
		if err != nil {
			abs = absPath
		}
		files = []string{abs}
	}

	roots := make([]string, 0, len(spans))
	for _, span := range spans {
		roots = append(roots, span.Name)
	}
	trees, stats := a.builder.Build(ctx, roots, files)

	records := make([]types.FunctionRecord, 0, len(spans))
	for _, span := range spans {
		records = append(records, types.FunctionRecord{
			Name:    span.Name,
			Content: span.Content,
			File:    relPath,
			Callers: trees.Callers(span.Name),
			Callees: trees.Callees(span.Name),
		})
	}
	return records, trees, stats
}
