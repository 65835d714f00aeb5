package batch

import "fmt"

// Outcome is the final state of one commit.
type Outcome int

const (
	OutcomeEmitted Outcome = iota
	OutcomeEmpty
	OutcomeArchiveFailed
	OutcomeFailed
	OutcomeSkipped
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmitted:
		return "emitted"
	case OutcomeEmpty:
		return "empty"
	case OutcomeArchiveFailed:
		return "archive_failed"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CommitResult is what processing one commit reports back to the fold.
type CommitResult struct {
	Commit          Commit
	Outcome         Outcome
	FunctionsBefore int
	FunctionsAfter  int
	ToolInvocations int
	ToolFailures    int
}

// Summary folds CommitResults. It is a plain value; the driver owns the
// only copy and updates it under its own lock.
type Summary struct {
	Commits         int `json:"commits"`
	Emitted         int `json:"emitted"`
	Empty           int `json:"empty"`
	ArchiveFailures int `json:"archive_failures"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
	Cancelled       int `json:"cancelled"`
	FunctionsBefore int `json:"functions_before"`
	FunctionsAfter  int `json:"functions_after"`
	ToolInvocations int `json:"tool_invocations"`
	ToolFailures    int `json:"tool_failures"`
}

func (s *Summary) Add(r CommitResult) {
	s.Commits++
	switch r.Outcome {
	case OutcomeEmitted:
		s.Emitted++
	case OutcomeEmpty:
		s.Empty++
	case OutcomeArchiveFailed:
		s.ArchiveFailures++
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeCancelled:
		s.Cancelled++
	}
	s.FunctionsBefore += r.FunctionsBefore
	s.FunctionsAfter += r.FunctionsAfter
	s.ToolInvocations += r.ToolInvocations
	s.ToolFailures += r.ToolFailures
}

func (s Summary) String() string {
	return fmt.Sprintf("%d commits: %d emitted, %d empty, %d archive failures, %d failed, %d skipped; functions %d before / %d after; %d of %d tool calls failed",
		s.Commits, s.Emitted, s.Empty, s.ArchiveFailures, s.Failed, s.Skipped,
		s.FunctionsBefore, s.FunctionsAfter, s.ToolFailures, s.ToolInvocations)
}
