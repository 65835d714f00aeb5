package callgraph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultDepth bounds the neighbourhood returned for one root function.
const DefaultDepth = 2

var ErrEmptyOutput = errors.New("call-graph tool produced no output")

// Outcome classifies one tool invocation.
type Outcome int

const (
	OutcomeOutput Outcome = iota
	OutcomeTimeout
	OutcomeFailure
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOutput:
		return "output"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeFailure:
		return "failure"
	case OutcomeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Invocation describes one call-tree query.
type Invocation struct {
	Root    string   // function to start from; ignored in reverse mode
	Reverse bool     // print callers of every function in Files instead
	Depth   int      // maximum tree depth
	Files   []string // absolute source paths
}

// Result is the value every invocation produces. Only OutcomeOutput carries
// usable text; the other outcomes carry the reason in Err.
type Result struct {
	Outcome Outcome
	Output  string
	Err     error
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeOutput
}

// Tool runs an external call-graph analyzer.
type Tool interface {
	Run(ctx context.Context, inv Invocation) Result
}

// Cflow runs GNU cflow in tree mode.
type Cflow struct {
	Binary  string
	Timeout time.Duration
}

func NewCflow(binary string, timeout time.Duration) *Cflow {
	if binary == "" {
		binary = "cflow"
	}
	return &Cflow{Binary: binary, Timeout: timeout}
}

// Args builds the cflow command line for inv.
func (c *Cflow) Args(inv Invocation) []string {
	depth := inv.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}

	args := []string{"-T"}
	if inv.Reverse {
		args = append(args, "-r")
	} else {
		args = append(args, "-m", inv.Root)
	}
	args = append(args, "-d", strconv.Itoa(depth), "--omit-symbol-names")
	return append(args, inv.Files...)
}

func (c *Cflow) Run(ctx context.Context, inv Invocation) Result {
	if len(inv.Files) == 0 {
		return Result{Outcome: OutcomeFailure, Err: errors.New("no source files to analyze")}
	}
	if !inv.Reverse && inv.Root == "" {
		return Result{Outcome: OutcomeFailure, Err: errors.New("root function required")}
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Binary, c.Args(inv)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 500 * time.Millisecond

	err := cmd.Run()
	if ctxErr := runCtx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return Result{Outcome: OutcomeTimeout, Err: fmt.Errorf("cflow stopped at caller deadline: %w", ctxErr)}
		}
		return Result{Outcome: OutcomeTimeout, Err: fmt.Errorf("cflow timed out after %v: %w", c.Timeout, ctxErr)}
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, firstLine(msg))
		}
		return Result{Outcome: OutcomeFailure, Err: fmt.Errorf("cflow failed: %w", err)}
	}

	output := stdout.String()
	if strings.TrimSpace(output) == "" {
		return Result{Outcome: OutcomeEmpty, Err: ErrEmptyOutput}
	}
	return Result{Outcome: OutcomeOutput, Output: output}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
