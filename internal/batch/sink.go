package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/agusespa/calldelta/internal/types"
)

// Sink receives finished records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Write(record *types.PatchRecord) error
}

// JSONLSink writes one JSON document per line. A record is encoded in full
// before it is written, so concurrent writers never interleave.
type JSONLSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	count  int
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// NewFileSink opens path for output. Unless appending, an existing file is
// truncated.
func NewFileSink(path string, appendMode bool) (*JSONLSink, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return &JSONLSink{w: f, closer: f}, nil
}

func (s *JSONLSink) Write(record *types.PatchRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record %s..%s: %w", record.CommitBefore, record.CommitAfter, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("failed to write record %s..%s: %w", record.CommitBefore, record.CommitAfter, err)
	}
	s.count++
	return nil
}

// Count returns how many records were written.
func (s *JSONLSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
