package utils

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// LineSet is a set of 1-based line numbers of the new ("after") file.
type LineSet map[int]struct{}

func (s LineSet) Add(line int) {
	s[line] = struct{}{}
}

func (s LineSet) Has(line int) bool {
	_, ok := s[line]
	return ok
}

// AnyWithin reports whether a line of the set falls in [start, end].
func (s LineSet) AnyWithin(start, end int) bool {
	if end-start+1 < len(s) {
		for line := start; line <= end; line++ {
			if s.Has(line) {
				return true
			}
		}
		return false
	}
	for line := range s {
		if start <= line && line <= end {
			return true
		}
	}
	return false
}

func (s LineSet) Sorted() []int {
	lines := make([]int, 0, len(s))
	for line := range s {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}

// ChangedLines diffs two line sequences and returns the after-lines touched by
// an edit. Inserted and replaced lines are marked; a pure deletion marks the
// after-line that follows the deletion point, when there is one.
func ChangedLines(before, after []string) LineSet {
	changed := LineSet{}
	matcher := difflib.NewMatcher(before, after)

	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r', 'i':
			for j := op.J1; j < op.J2; j++ {
				changed.Add(j + 1)
			}
		case 'd':
			if op.J1 < len(after) {
				changed.Add(op.J1 + 1)
			}
		}
	}

	return changed
}

// ChangedLinesFromPatch applies the same marking rules to a unified diff,
// keyed by the new file name without its "b/" prefix. Deleted files are
// left out.
func ChangedLinesFromPatch(patch []byte) (map[string]LineSet, error) {
	fileDiffs, err := diff.ParseMultiFileDiff(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unified diff: %w", err)
	}

	result := make(map[string]LineSet)
	for _, fd := range fileDiffs {
		name := cleanDiffPath(fd.NewName)
		if name == "" {
			continue
		}
		lines, ok := result[name]
		if !ok {
			lines = LineSet{}
			result[name] = lines
		}
		for _, hunk := range fd.Hunks {
			markHunk(lines, hunk)
		}
	}

	return result, nil
}

func markHunk(lines LineSet, hunk *diff.Hunk) {
	body := bytes.Split(hunk.Body, []byte("\n"))
	if n := len(body); n > 0 && len(body[n-1]) == 0 {
		body = body[:n-1]
	}

	newLine := int(hunk.NewStartLine)
	for _, raw := range body {
		if len(raw) == 0 {
			// Some tools strip the single space of blank context lines
			newLine++
			continue
		}
		switch raw[0] {
		case '+':
			lines.Add(newLine)
			newLine++
		case '-':
			lines.Add(newLine)
		case ' ':
			newLine++
		}
	}
}

func cleanDiffPath(name string) string {
	if name == "" || name == "/dev/null" {
		return ""
	}
	if i := strings.IndexAny(name, "\t"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimPrefix(name, "b/")
}
