package archive

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestEnsureExtracted(t *testing.T) {
	dir := t.TempDir()
	zipPath := Path(dir, "abc123")
	writeZip(t, zipPath, map[string]string{
		"proj-abc123/":        "",
		"proj-abc123/src/a.c": "int a(void) { return 1; }\n",
		"proj-abc123/README":  "hello\n",
	})

	dest := filepath.Join(dir, "work", "after")
	require.NoError(t, EnsureExtracted(zipPath, dest))

	content, err := os.ReadFile(filepath.Join(dest, "proj-abc123", "src", "a.c"))
	require.NoError(t, err)
	assert.Equal(t, "int a(void) { return 1; }\n", string(content))
}

func TestEnsureExtracted_ReusesPopulatedDir(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "done")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "marker"), []byte("x"), 0o644))

	// The archive does not exist; a populated destination is never re-read.
	require.NoError(t, EnsureExtracted(filepath.Join(dir, "missing.zip"), dest))
	assert.FileExists(t, filepath.Join(dest, "marker"))
}

func TestEnsureExtracted_Failures(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.zip")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip"), 0o644))

	empty := filepath.Join(dir, "empty.zip")
	writeZip(t, empty, map[string]string{})

	traversal := filepath.Join(dir, "slip.zip")
	writeZip(t, traversal, map[string]string{
		"ok/file.c":    "int f(void);\n",
		"../escaped.c": "int g(void);\n",
	})

	tests := []struct {
		name    string
		zipPath string
		target  error
	}{
		{"missing archive", filepath.Join(dir, "missing.zip"), nil},
		{"corrupt archive", corrupt, nil},
		{"empty archive", empty, ErrEmptyArchive},
		{"path traversal", traversal, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(dir, "out-"+filepath.Base(tt.zipPath))
			err := EnsureExtracted(tt.zipPath, dest)
			require.Error(t, err)

			var archiveErr *ArchiveError
			require.True(t, errors.As(err, &archiveErr))
			assert.Equal(t, tt.zipPath, archiveErr.Path)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}

			assert.NoDirExists(t, dest)
		})
	}

	assert.NoFileExists(t, filepath.Join(dir, "escaped.c"))
}

type closeFailWriter struct {
	bytes.Buffer
	closeErr error
}

func (w *closeFailWriter) Close() error {
	return w.closeErr
}

func TestWriteEntry_ReportsCloseError(t *testing.T) {
	flushErr := errors.New("no space left on device")
	out := &closeFailWriter{closeErr: flushErr}

	n, err := writeEntry(out, bytes.NewReader([]byte("int main(void);\n")), "src/main.c")
	require.Error(t, err)
	assert.ErrorIs(t, err, flushErr)
	assert.Contains(t, err.Error(), "src/main.c")
	assert.Equal(t, int64(16), n)
}

func TestWriteEntry_ClosesOnSuccess(t *testing.T) {
	out := &closeFailWriter{}

	n, err := writeEntry(out, bytes.NewReader([]byte("x")), "a.c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "x", out.String())
}
