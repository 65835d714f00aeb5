package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agusespa/calldelta/internal/batch"
	"github.com/agusespa/calldelta/internal/types"
	"github.com/agusespa/calldelta/pkg/config"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBefore = `int helper(int x)
{
    return x + 1;
}

int compute(int x)
{
    return helper(x) * 2;
}
`

const sampleAfter = `int helper(int x)
{
    return x + 1;
}

int compute(int x)
{
    return helper(x) * 3;
}
`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))

	err := rootCmd.Execute()
	return out.String(), err
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSpansCommand(t *testing.T) {
	file := writeSource(t, t.TempDir(), "calc.c", sampleAfter)

	out, err := execute(t, "", "spans", file, "--no-content")
	require.NoError(t, err)

	var spans []types.FunctionSpan
	require.NoError(t, json.Unmarshal([]byte(out), &spans))
	require.Len(t, spans, 2)
	assert.Equal(t, "helper", spans[0].Name)
	assert.Equal(t, 1, spans[0].StartLine)
	assert.Equal(t, 4, spans[0].EndLine)
	assert.Equal(t, "compute", spans[1].Name)
	assert.Empty(t, spans[1].Content)
}

func TestChangedCommand(t *testing.T) {
	dir := t.TempDir()
	before := writeSource(t, dir, "before/calc.c", sampleBefore)
	after := writeSource(t, dir, "after/calc.c", sampleAfter)

	out, err := execute(t, "", "changed", before, after)
	require.NoError(t, err)
	assert.Equal(t, "compute\n", out)
}

func TestChangedCommand_UnsupportedLanguage(t *testing.T) {
	_, err := execute(t, "", "changed", "a.rb", "b.rb", "--language", "ruby")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestGraphCommand_Stdin(t *testing.T) {
	tree := "+-main() <int main () at main.c:3>\n  +-parse()\n  \\-run()\n"

	out, err := execute(t, tree, "graph", "--stdin")
	require.NoError(t, err)

	var got struct {
		CallerTree map[string][]string `json:"callerTree"`
		CalleeTree map[string][]string `json:"calleeTree"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string][]string{"main": {"parse", "run"}}, got.CallerTree)
	assert.Equal(t, map[string][]string{"parse": {"main"}, "run": {"main"}}, got.CalleeTree)
}

func TestPatchCommand(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "src/calc.c", sampleAfter)
	diffText := `--- a/src/calc.c
+++ b/src/calc.c
@@ -7,3 +7,3 @@
 {
-    return helper(x) * 2;
+    return helper(x) * 3;
 }
`

	out, err := execute(t, diffText, "patch", "-", "--tree", dir, "--language", "c")
	require.NoError(t, err)
	assert.Contains(t, out, `"file": "src/calc.c"`)
	assert.Contains(t, out, `"name": "compute"`)
	assert.NotContains(t, out, `"name": "helper"`)
}

func TestResolveLanguage(t *testing.T) {
	logger, _ = test.NewNullLogger()
	cfg = config.Default()
	registry, err := newRegistry()
	require.NoError(t, err)

	tests := []struct {
		name     string
		flag     string
		path     string
		expected string
		wantErr  bool
	}{
		{"flag wins", "python", "main.c", "python", false},
		{"from extension", "", "lib/util.go", "go", false},
		{"header maps to cpp", "", "include/api.h", "cpp", false},
		{"config default", "", "", "c", false},
		{"unknown extension falls back", "", "notes.txt", "c", false},
		{"unsupported flag", "cobol", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveLanguage(registry, tt.flag, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestProgressMessage(t *testing.T) {
	assert.Equal(t, "commits 3/10 (emitted 2)", progressMessage(3, 10, batchSummary(2)))
}

func batchSummary(emitted int) (s batch.Summary) {
	s.Emitted = emitted
	return s
}
