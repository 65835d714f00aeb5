package batch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

const maxManifestLine = 16 * 1024 * 1024

// Commit identifies one change: the fix commit and its first parent.
type Commit struct {
	Before string
	After  string
}

var commitIDPattern = regexp.MustCompile(`^[0-9A-Za-z._-]+$`)

// Validate rejects ids that are empty or that could escape the work and
// archive directories once joined into a path.
func (c Commit) Validate() error {
	for _, id := range []string{c.Before, c.After} {
		if id == "" {
			return errors.New("missing commit id")
		}
		if !commitIDPattern.MatchString(id) || strings.Contains(id, "..") {
			return fmt.Errorf("invalid commit id %q", id)
		}
	}
	return nil
}

// Key identifies the commit in the checkpoint store and in work directories.
func (c Commit) Key() string {
	return c.Before + ".." + c.After
}

type manifestEntry struct {
	CommitID string `json:"commit_id"`
	Parents  []struct {
		CommitIDBefore string `json:"commit_id_before"`
	} `json:"parents"`
}

// ReadManifest parses a JSONL manifest. Each line names the after commit in
// commit_id and the before commit in parents[0].commit_id_before; other
// fields are ignored. Malformed lines and lines missing either id are
// skipped with a warning.
func ReadManifest(r io.Reader, logger logrus.FieldLogger) ([]Commit, error) {
	var commits []Commit

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxManifestLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry manifestEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			logger.WithError(err).WithField("line", lineNo).Warn("skipping malformed manifest line")
			continue
		}

		commit := Commit{After: entry.CommitID}
		if len(entry.Parents) > 0 {
			commit.Before = entry.Parents[0].CommitIDBefore
		}
		if err := commit.Validate(); err != nil {
			logger.WithError(err).WithField("line", lineNo).Warn("skipping manifest line")
			continue
		}

		commits = append(commits, commit)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return commits, nil
}

func ReadManifestFile(path string, logger logrus.FieldLogger) ([]Commit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	return ReadManifest(f, logger)
}
