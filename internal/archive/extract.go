package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	maxFileSize  = 256 * 1024 * 1024      // per entry
	maxTotalSize = 4 * 1024 * 1024 * 1024 // whole archive
	maxFileCount = 200000
)

var ErrEmptyArchive = errors.New("archive contains no files")

// ArchiveError reports a snapshot archive that could not be extracted.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// EnsureExtracted unpacks zipPath into destDir. A destDir that already holds
// entries is reused as is. On failure destDir is removed so a later run
// starts clean. Entries that would escape destDir and symlinks are rejected.
func EnsureExtracted(zipPath, destDir string) error {
	if entries, err := os.ReadDir(destDir); err == nil && len(entries) > 0 {
		return nil
	}

	if err := extract(zipPath, destDir); err != nil {
		os.RemoveAll(destDir)
		return &ArchiveError{Path: zipPath, Err: err}
	}
	return nil
}

func extract(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer reader.Close()

	if len(reader.File) == 0 {
		return ErrEmptyArchive
	}
	if len(reader.File) > maxFileCount {
		return fmt.Errorf("archive holds %d entries, exceeds maximum of %d", len(reader.File), maxFileCount)
	}

	base, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("failed to resolve destination: %w", err)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	var total int64
	for _, file := range reader.File {
		if file.Mode()&os.ModeSymlink != 0 {
			continue
		}

		target := filepath.Join(base, file.Name)
		if target != base && !strings.HasPrefix(target, base+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry attempts path traversal: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", file.Name, err)
			}
			continue
		}

		n, err := extractFile(file, target)
		if err != nil {
			return err
		}
		total += n
		if total > maxTotalSize {
			return fmt.Errorf("total extracted size exceeds maximum of %d bytes", int64(maxTotalSize))
		}
	}

	return nil
}

func extractFile(file *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create parent directory for %s: %w", file.Name, err)
	}

	rc, err := file.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open zip entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", file.Name, err)
	}
	return writeEntry(out, rc, file.Name)
}

// writeEntry copies at most maxFileSize bytes of r into out and closes it.
// A failed close is an error: the file on disk may be truncated.
func writeEntry(out io.WriteCloser, r io.Reader, name string) (n int64, err error) {
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", name, cerr)
		}
	}()

	n, err = io.Copy(out, io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return n, fmt.Errorf("failed to extract %s: %w", name, err)
	}
	if n > maxFileSize {
		return n, fmt.Errorf("file %s exceeds maximum size of %d bytes", name, maxFileSize)
	}
	return n, nil
}

// Path returns the archive location of a commit under root.
func Path(root, commit string) string {
	return filepath.Join(root, commit+".zip")
}
