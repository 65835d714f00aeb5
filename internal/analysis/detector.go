package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agusespa/calldelta/internal/tools"
	"github.com/agusespa/calldelta/internal/types"
	"github.com/agusespa/calldelta/internal/utils"
)

// DetectChanges correlates a line diff of two file versions with their
// function spans. An after-function is changed when a changed after-line
// falls inside it; a before-function is changed when no after-function
// carries its name. Renames are reported as the old name only.
//
// If either side has no spans the result is empty, even when the other side
// clearly changed.
func DetectChanges(before, after []string, beforeSpans, afterSpans []types.FunctionSpan) types.ChangeSet {
	changed := types.NewChangeSet()
	if len(beforeSpans) == 0 || len(afterSpans) == 0 {
		return changed
	}

	lines := utils.ChangedLines(before, after)
	markSpans(changed, afterSpans, lines)

	afterNames := make(map[string]bool, len(afterSpans))
	for _, span := range afterSpans {
		afterNames[span.Name] = true
	}
	for _, span := range beforeSpans {
		if !afterNames[span.Name] {
			changed.Add(span.Name)
		}
	}

	return changed
}

func markSpans(changed types.ChangeSet, spans []types.FunctionSpan, lines utils.LineSet) {
	if len(lines) == 0 {
		return
	}
	for _, span := range spans {
		if lines.AnyWithin(span.StartLine, span.EndLine) {
			changed.Add(span.Name)
		}
	}
}

// fileChange is the detection result for one file pair, keeping the spans
// so callers don't parse the files twice.
type fileChange struct {
	changed     types.ChangeSet
	beforeSpans []types.FunctionSpan
	afterSpans  []types.FunctionSpan
}

func detectFiles(registry *tools.ParserRegistry, beforeFile, afterFile, language string) fileChange {
	fc := fileChange{
		changed:     types.NewChangeSet(),
		beforeSpans: registry.ExtractSpans(beforeFile, language),
		afterSpans:  registry.ExtractSpans(afterFile, language),
	}
	if len(fc.beforeSpans) == 0 || len(fc.afterSpans) == 0 {
		return fc
	}

	beforeLines, err := tools.ReadSourceLines(beforeFile)
	if err != nil {
		return fc
	}
	afterLines, err := tools.ReadSourceLines(afterFile)
	if err != nil {
		return fc
	}

	fc.changed = DetectChanges(beforeLines, afterLines, fc.beforeSpans, fc.afterSpans)
	return fc
}

// ChangedFunctions returns the changed function names between two files of
// the given language. Unreadable or unparsable files yield an empty set.
func ChangedFunctions(registry *tools.ParserRegistry, beforeFile, afterFile, language string) types.ChangeSet {
	return detectFiles(registry, beforeFile, afterFile, language).changed
}

// PatchChange lists the functions of one after-file touched by a patch.
type PatchChange struct {
	File      string               `json:"file"`
	Functions []types.FunctionSpan `json:"functions"`
}

// DetectFromPatch maps the changed after-lines of a unified diff onto the
// function spans of the patched tree rooted at afterDir. Only files of the
// given language that still exist under afterDir are considered. Deleted
// functions cannot be seen from a patch alone and are not reported.
func DetectFromPatch(registry *tools.ParserRegistry, patch []byte, afterDir, language string) ([]PatchChange, error) {
	byFile, err := utils.ChangedLinesFromPatch(patch)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(byFile))
	for name := range byFile {
		names = append(names, name)
	}
	sort.Strings(names)

	var changes []PatchChange
	for _, name := range names {
		path := filepath.Join(afterDir, filepath.FromSlash(name))
		if !registry.IsLanguageFile(path, language) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		lines := byFile[name]
		var touched []types.FunctionSpan
		for _, span := range registry.ExtractSpans(path, language) {
			if lines.AnyWithin(span.StartLine, span.EndLine) {
				touched = append(touched, span)
			}
		}
		if len(touched) > 0 {
			changes = append(changes, PatchChange{File: name, Functions: touched})
		}
	}

	return changes, nil
}
