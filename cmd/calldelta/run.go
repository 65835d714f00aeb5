package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agusespa/calldelta/internal/analysis"
	"github.com/agusespa/calldelta/internal/batch"
	"github.com/agusespa/calldelta/pkg/spinner"
	"github.com/spf13/cobra"
)

var runNoProgress bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every commit of a manifest and write one JSON record per changed commit",
	Args:  cobra.NoArgs,
	RunE:  runBatch,
}

func init() {
	f := runCmd.Flags()
	f.String("manifest", "", "JSONL manifest of commits (commit_id, parents[0].commit_id_before)")
	f.String("before-root", "", "directory holding <commit_before>.zip archives")
	f.String("after-root", "", "directory holding <commit_after>.zip archives")
	f.String("output", "", "output JSONL file")
	f.Bool("append", false, "append to the output file instead of truncating it")
	f.Int("workers", 0, "concurrent commits (default: half the CPUs)")
	f.String("work-dir", "", "directory for extracted snapshots")
	f.Bool("keep-extracted", false, "keep extracted snapshots after processing")
	f.String("language", "", "language profile of the analysed files")
	f.String("scope", "", "files passed to the call-graph tool: file or tree")
	f.String("checkpoint", "", "bbolt file remembering finished commits")
	f.String("metrics", "", "write Prometheus metrics to this textfile when done")
	f.BoolVar(&runNoProgress, "no-progress", false, "disable the progress line")
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}

	str("manifest", &cfg.Input.Manifest)
	str("before-root", &cfg.Input.BeforeRoot)
	str("after-root", &cfg.Input.AfterRoot)
	str("output", &cfg.Output.Path)
	boolean("append", &cfg.Output.Append)
	str("work-dir", &cfg.WorkDir)
	boolean("keep-extracted", &cfg.KeepExtracted)
	str("language", &cfg.Language)
	str("scope", &cfg.CallGraph.Scope)
	str("checkpoint", &cfg.Checkpoint.Path)
	str("metrics", &cfg.Metrics.Path)
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry, err := newRegistry()
	if err != nil {
		return err
	}
	language, err := resolveLanguage(registry, cfg.Language, "")
	if err != nil {
		return err
	}
	scope, err := analysis.ParseScope(cfg.CallGraph.Scope)
	if err != nil {
		return err
	}

	commits, err := batch.ReadManifestFile(cfg.Input.Manifest, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	sink, err := batch.NewFileSink(cfg.Output.Path, cfg.Output.Append)
	if err != nil {
		return err
	}
	defer sink.Close()

	var checkpoint *batch.Checkpoint
	if cfg.Checkpoint.Path != "" {
		if checkpoint, err = batch.OpenCheckpoint(cfg.Checkpoint.Path); err != nil {
			return err
		}
		defer checkpoint.Close()
	}

	var metrics *batch.Metrics
	if cfg.Metrics.Path != "" {
		metrics = batch.NewMetrics()
	}

	aggregator := analysis.NewAggregator(registry, newBuilder(), language, scope, logger)
	driver := batch.NewDriver(aggregator, sink, batch.Options{
		BeforeRoot:    cfg.Input.BeforeRoot,
		AfterRoot:     cfg.Input.AfterRoot,
		WorkDir:       cfg.WorkDir,
		KeepExtracted: cfg.KeepExtracted,
		Workers:       cfg.Workers,
	}, logger).WithCheckpoint(checkpoint).WithMetrics(metrics)

	var progress *spinner.Spinner
	if !runNoProgress && spinner.Enabled(os.Stderr) {
		progress = spinner.New(progressMessage(0, len(commits), batch.Summary{}))
		driver.OnProgress(func(done, total int, summary batch.Summary) {
			progress.Update(progressMessage(done, total, summary))
		})
		progress.Start()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := driver.Run(ctx, commits)
	if progress != nil {
		progress.Stop()
	}

	if err := metrics.WriteTextfile(cfg.Metrics.Path); err != nil {
		logger.WithError(err).Warn("metrics not written")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", summary)
	fmt.Fprintf(cmd.OutOrStdout(), "Output written to %s\n", cfg.Output.Path)
	return runErr
}

func progressMessage(done, total int, summary batch.Summary) string {
	return fmt.Sprintf("commits %d/%d (emitted %d)", done, total, summary.Emitted)
}
