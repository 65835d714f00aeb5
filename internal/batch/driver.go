package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/agusespa/calldelta/internal/analysis"
	"github.com/agusespa/calldelta/internal/archive"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options locates the archives and bounds the worker pool.
type Options struct {
	BeforeRoot    string
	AfterRoot     string
	WorkDir       string
	KeepExtracted bool
	Workers       int
}

// DefaultWorkers is half the CPUs, at least one.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()/2)
}

// ProgressFunc is called after every finished commit with the number done,
// the total and the running summary.
type ProgressFunc func(done, total int, summary Summary)

// Driver processes manifest commits concurrently. Per-commit failures are
// folded into the Summary; only a sink failure or cancellation stops a run.
type Driver struct {
	aggregator *analysis.Aggregator
	sink       Sink
	checkpoint *Checkpoint
	metrics    *Metrics
	progress   ProgressFunc
	opts       Options
	runID      string
	logger     logrus.FieldLogger

	mu      sync.Mutex
	summary Summary
}

func NewDriver(aggregator *analysis.Aggregator, sink Sink, opts Options, logger logrus.FieldLogger) *Driver {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers()
	}
	runID := uuid.NewString()
	return &Driver{
		aggregator: aggregator,
		sink:       sink,
		opts:       opts,
		runID:      runID,
		logger:     logger.WithField("run", runID),
	}
}

func (d *Driver) WithCheckpoint(c *Checkpoint) *Driver {
	d.checkpoint = c
	return d
}

func (d *Driver) WithMetrics(m *Metrics) *Driver {
	d.metrics = m
	return d
}

func (d *Driver) OnProgress(fn ProgressFunc) *Driver {
	d.progress = fn
	return d
}

func (d *Driver) RunID() string {
	return d.runID
}

// Run processes commits and returns the folded summary. Output order across
// commits is not defined.
func (d *Driver) Run(ctx context.Context, commits []Commit) (Summary, error) {
	d.logger.WithFields(logrus.Fields{
		"commits": len(commits),
		"workers": d.opts.Workers,
	}).Info("batch started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	total := len(commits)
	for _, commit := range commits {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := d.processCommit(gctx, commit)
			d.record(res, total)
			return err
		})
	}

	err := g.Wait()
	summary := d.Summary()

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		d.logger.WithError(err).WithField("summary", summary.String()).Error("batch stopped")
		return summary, err
	}

	d.logger.WithField("summary", summary.String()).Info("batch finished")
	return summary, nil
}

// Summary returns a snapshot of the running fold.
func (d *Driver) Summary() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summary
}

func (d *Driver) record(res CommitResult, total int) {
	d.mu.Lock()
	d.summary.Add(res)
	summary := d.summary
	d.mu.Unlock()

	if d.progress != nil {
		d.progress(summary.Commits, total, summary)
	}
}

// processCommit walks one commit through its states: checkpoint lookup,
// extraction of both archives, analysis, emission. The returned error is
// non-nil only when the sink failed.
func (d *Driver) processCommit(ctx context.Context, commit Commit) (res CommitResult, err error) {
	start := time.Now()
	res = CommitResult{Commit: commit}
	defer func() {
		d.metrics.Observe(res, time.Since(start).Seconds())
	}()

	log := d.logger.WithFields(logrus.Fields{
		"commit":        commit.After,
		"commit_before": commit.Before,
	})

	if verr := commit.Validate(); verr != nil {
		log.WithError(verr).Warn("skipping commit")
		res.Outcome = OutcomeFailed
		return res, nil
	}

	if done, cerr := d.checkpoint.Done(commit); cerr != nil {
		log.WithError(cerr).Warn("checkpoint lookup failed, processing commit")
	} else if done {
		log.Debug("commit already processed")
		res.Outcome = OutcomeSkipped
		return res, nil
	}

	if ctx.Err() != nil {
		res.Outcome = OutcomeCancelled
		return res, nil
	}

	workDir := filepath.Join(d.opts.WorkDir, commit.Key())
	if !d.opts.KeepExtracted {
		defer func() {
			if rerr := os.RemoveAll(workDir); rerr != nil {
				log.WithError(rerr).Warn("failed to remove work directory")
			}
		}()
	}

	snap := analysis.Snapshot{
		CommitBefore: commit.Before,
		CommitAfter:  commit.After,
		BeforeDir:    filepath.Join(workDir, "before"),
		AfterDir:     filepath.Join(workDir, "after"),
	}

	if xerr := d.extract(commit, snap); xerr != nil {
		log.WithError(xerr).Warn("skipping commit, archive unusable")
		res.Outcome = OutcomeArchiveFailed
		return res, nil
	}

	record, stats, aerr := d.aggregator.AnalyzeCommit(ctx, snap)
	res.ToolInvocations = stats.Build.Invocations
	res.ToolFailures = stats.Build.ToolFailures
	if aerr != nil {
		if errors.Is(aerr, context.Canceled) || errors.Is(aerr, context.DeadlineExceeded) {
			res.Outcome = OutcomeCancelled
			return res, nil
		}
		log.WithError(aerr).Warn("commit analysis failed")
		res.Outcome = OutcomeFailed
		return res, nil
	}

	if record == nil {
		log.WithField("pairs", stats.Pairs).Debug("no changed functions")
		res.Outcome = OutcomeEmpty
	} else {
		if werr := d.sink.Write(record); werr != nil {
			res.Outcome = OutcomeFailed
			return res, werr
		}
		res.Outcome = OutcomeEmitted
		res.FunctionsBefore = len(record.FunctionsBefore)
		res.FunctionsAfter = len(record.FunctionsAfter)
		log.WithFields(logrus.Fields{
			"functions_before": res.FunctionsBefore,
			"functions_after":  res.FunctionsAfter,
		}).Info("record emitted")
	}

	if merr := d.checkpoint.Mark(commit, res.Outcome, d.runID); merr != nil {
		log.WithError(merr).Warn("failed to update checkpoint")
	}
	return res, nil
}

func (d *Driver) extract(commit Commit, snap analysis.Snapshot) error {
	if err := archive.EnsureExtracted(archive.Path(d.opts.BeforeRoot, commit.Before), snap.BeforeDir); err != nil {
		return err
	}
	return archive.EnsureExtracted(archive.Path(d.opts.AfterRoot, commit.After), snap.AfterDir)
}
