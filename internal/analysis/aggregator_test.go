package analysis

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agusespa/calldelta/internal/callgraph"
	"github.com/agusespa/calldelta/internal/tools"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	commitBefore = "aaa111"
	commitAfter  = "bbb222"
)

// fakeTool answers root queries from canned cflow output.
type fakeTool struct {
	mu      sync.Mutex
	outputs map[string]string
	calls   []callgraph.Invocation
}

func (f *fakeTool) Run(ctx context.Context, inv callgraph.Invocation) callgraph.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv)

	if out, ok := f.outputs[inv.Root]; ok {
		return callgraph.Result{Outcome: callgraph.OutcomeOutput, Output: out}
	}
	return callgraph.Result{Outcome: callgraph.OutcomeEmpty, Err: callgraph.ErrEmptyOutput}
}

const unchangedSource = `static int twice(int x)
{
    return 2 * x;
}
`

// newSnapshot lays out two extracted trees the way release archives unpack:
// one root folder named after the commit.
func newSnapshot(t *testing.T) Snapshot {
	t.Helper()
	root := t.TempDir()
	snap := Snapshot{
		CommitBefore: commitBefore,
		CommitAfter:  commitAfter,
		BeforeDir:    filepath.Join(root, "before"),
		AfterDir:     filepath.Join(root, "after"),
	}

	writeFile(t, filepath.Join(snap.BeforeDir, "proj-"+commitBefore, "src", "a.c"), beforeSource)
	writeFile(t, filepath.Join(snap.BeforeDir, "proj-"+commitBefore, "util.c"), unchangedSource)

	writeFile(t, filepath.Join(snap.AfterDir, "proj-"+commitAfter, "src", "a.c"), afterSource)
	writeFile(t, filepath.Join(snap.AfterDir, "proj-"+commitAfter, "src", "added.c"), unchangedSource)
	writeFile(t, filepath.Join(snap.AfterDir, "proj-"+commitAfter, "util.c"), unchangedSource)
	writeFile(t, filepath.Join(snap.AfterDir, "proj-"+commitAfter, "README.md"), "# readme\n")
	writeFile(t, filepath.Join(snap.AfterDir, "loose.c"), unchangedSource)

	return snap
}

func newTestAggregator(t *testing.T, tool callgraph.Tool, scope Scope) *Aggregator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	builder := callgraph.NewBuilder(tool, 2, 2, logger)
	return NewAggregator(newRegistry(t), builder, tools.LanguageC, scope, logger)
}

func TestPairFiles(t *testing.T) {
	snap := newSnapshot(t)

	pairs, err := PairFiles(newRegistry(t), snap, tools.LanguageC)
	require.NoError(t, err)

	assert.Equal(t, []FilePair{
		{Before: "proj-aaa111/src/a.c", After: "proj-bbb222/src/a.c"},
		{Before: "proj-aaa111/util.c", After: "proj-bbb222/util.c"},
	}, pairs)
}

func TestPairFiles_MissingTree(t *testing.T) {
	snap := Snapshot{AfterDir: filepath.Join(t.TempDir(), "missing")}
	_, err := PairFiles(newRegistry(t), snap, tools.LanguageC)
	assert.Error(t, err)
}

func TestAggregator_AnalyzeCommit(t *testing.T) {
	snap := newSnapshot(t)
	tool := &fakeTool{outputs: map[string]string{
		"compute": "+-compute() <int compute (int x) at a.c:6>\n  \\-helper() <int helper (int x) at a.c:1>\n",
	}}

	record, stats, err := newTestAggregator(t, tool, ScopeFile).AnalyzeCommit(context.Background(), snap)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, commitBefore, record.CommitBefore)
	assert.Equal(t, commitAfter, record.CommitAfter)

	require.Len(t, record.FunctionsBefore, 2)
	assert.Equal(t, "compute", record.FunctionsBefore[0].Name)
	assert.Equal(t, "proj-aaa111/src/a.c", record.FunctionsBefore[0].File)
	assert.Equal(t, []string{"helper"}, record.FunctionsBefore[0].Callees)
	assert.Equal(t, []string{}, record.FunctionsBefore[0].Callers)
	assert.Contains(t, record.FunctionsBefore[0].Content, "* 2;")

	assert.Equal(t, "removed", record.FunctionsBefore[1].Name)
	assert.Equal(t, []string{}, record.FunctionsBefore[1].Callees)

	require.Len(t, record.FunctionsAfter, 1)
	assert.Equal(t, "compute", record.FunctionsAfter[0].Name)
	assert.Equal(t, "proj-bbb222/src/a.c", record.FunctionsAfter[0].File)
	assert.Contains(t, record.FunctionsAfter[0].Content, "* 3;")

	assert.Equal(t, []string{"helper"}, record.CallerTreeAfter.Get("compute"))
	assert.Equal(t, []string{"compute"}, record.CalleeTreeAfter.Get("helper"))
	assert.Equal(t, []string{"helper"}, record.CallerTreeBefore.Get("compute"))

	assert.Equal(t, 2, stats.Pairs)
	assert.Equal(t, 1, stats.ChangedPairs)
	assert.Equal(t, 2, stats.FunctionsBefore)
	assert.Equal(t, 1, stats.FunctionsAfter)
	assert.Equal(t, 3, stats.Build.Invocations)
	assert.Equal(t, 1, stats.Build.ToolFailures)

	for _, call := range tool.calls {
		require.Len(t, call.Files, 1)
		assert.True(t, filepath.IsAbs(call.Files[0]))
		assert.Equal(t, "a.c", filepath.Base(call.Files[0]))
	}
}

func TestAggregator_TreeScope(t *testing.T) {
	snap := newSnapshot(t)
	tool := &fakeTool{outputs: map[string]string{}}

	_, _, err := newTestAggregator(t, tool, ScopeTree).AnalyzeCommit(context.Background(), snap)
	require.NoError(t, err)

	require.NotEmpty(t, tool.calls)
	// before tree: src/a.c, util.c; after tree: loose.c, src/a.c, src/added.c, util.c
	assert.Len(t, tool.calls[0].Files, 2)
	assert.Len(t, tool.calls[len(tool.calls)-1].Files, 4)
}

func TestAggregator_NothingChanged(t *testing.T) {
	root := t.TempDir()
	snap := Snapshot{
		CommitBefore: commitBefore,
		CommitAfter:  commitAfter,
		BeforeDir:    filepath.Join(root, "before"),
		AfterDir:     filepath.Join(root, "after"),
	}
	writeFile(t, filepath.Join(snap.BeforeDir, "proj-"+commitBefore, "util.c"), unchangedSource)
	writeFile(t, filepath.Join(snap.AfterDir, "proj-"+commitAfter, "util.c"), unchangedSource)

	tool := &fakeTool{}
	record, stats, err := newTestAggregator(t, tool, ScopeFile).AnalyzeCommit(context.Background(), snap)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 1, stats.Pairs)
	assert.Empty(t, tool.calls)
}

func TestAggregator_Cancelled(t *testing.T) {
	snap := newSnapshot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record, _, err := newTestAggregator(t, &fakeTool{}, ScopeFile).AnalyzeCommit(ctx, snap)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, record)
}

// interruptingTool cancels the run from inside its first query.
type interruptingTool struct {
	cancel context.CancelFunc
}

func (i *interruptingTool) Run(ctx context.Context, inv callgraph.Invocation) callgraph.Result {
	i.cancel()
	return callgraph.Result{Outcome: callgraph.OutcomeFailure, Err: ctx.Err()}
}

func TestAggregator_CancelledDuringLastPair(t *testing.T) {
	root := t.TempDir()
	snap := Snapshot{
		CommitBefore: commitBefore,
		CommitAfter:  commitAfter,
		BeforeDir:    filepath.Join(root, "before"),
		AfterDir:     filepath.Join(root, "after"),
	}
	writeFile(t, filepath.Join(snap.BeforeDir, "proj-"+commitBefore, "a.c"), beforeSource)
	writeFile(t, filepath.Join(snap.AfterDir, "proj-"+commitAfter, "a.c"), afterSource)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agg := newTestAggregator(t, &interruptingTool{cancel: cancel}, ScopeFile)

	record, stats, err := agg.AnalyzeCommit(ctx, snap)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, record)
	assert.True(t, stats.Build.Interrupted)
	assert.Equal(t, 0, stats.Build.ToolFailures)

	_, err = agg.AnalyzePair(ctx, snap, FilePair{
		Before: "proj-aaa111/a.c",
		After:  "proj-bbb222/a.c",
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_AnalyzePair(t *testing.T) {
	snap := newSnapshot(t)
	tool := &fakeTool{outputs: map[string]string{
		"compute": "+-compute()\n  \\-helper()\n",
	}}

	res, err := newTestAggregator(t, tool, ScopeFile).AnalyzePair(context.Background(), snap, FilePair{
		Before: "proj-aaa111/src/a.c",
		After:  "proj-bbb222/src/a.c",
	})
	require.NoError(t, err)
	assert.Len(t, res.FunctionsBefore, 2)
	assert.Len(t, res.FunctionsAfter, 1)
	assert.Equal(t, []string{"compute"}, res.TreesAfter.Callers("helper"))
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		input    string
		expected Scope
		wantErr  bool
	}{
		{"", ScopeFile, false},
		{"file", ScopeFile, false},
		{"TREE", ScopeTree, false},
		{"project", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			scope, err := ParseScope(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, scope)
		})
	}
}
