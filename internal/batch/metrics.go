package batch

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts batch progress on a private registry, so several drivers
// can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	// CommitsTotal counts finished commits by outcome.
	CommitsTotal *prometheus.CounterVec

	// FunctionsTotal counts emitted function records by side.
	FunctionsTotal *prometheus.CounterVec

	// ToolInvocationsTotal counts call-graph tool runs by result.
	ToolInvocationsTotal *prometheus.CounterVec

	// CommitDuration observes wall time per processed commit.
	CommitDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CommitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "calldelta",
				Name:      "commits_total",
				Help:      "Commits processed by outcome",
			},
			[]string{"outcome"},
		),
		FunctionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "calldelta",
				Name:      "functions_total",
				Help:      "Changed functions emitted by version",
			},
			[]string{"version"},
		),
		ToolInvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "calldelta",
				Name:      "tool_invocations_total",
				Help:      "Call-graph tool invocations by result",
			},
			[]string{"result"},
		),
		CommitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "calldelta",
				Name:      "commit_duration_seconds",
				Help:      "Time spent on one commit",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
	}
}

// Observe records one commit. Nil-safe.
func (m *Metrics) Observe(r CommitResult, seconds float64) {
	if m == nil {
		return
	}
	m.CommitsTotal.WithLabelValues(r.Outcome.String()).Inc()
	m.FunctionsTotal.WithLabelValues("before").Add(float64(r.FunctionsBefore))
	m.FunctionsTotal.WithLabelValues("after").Add(float64(r.FunctionsAfter))
	m.ToolInvocationsTotal.WithLabelValues("ok").Add(float64(r.ToolInvocations - r.ToolFailures))
	m.ToolInvocationsTotal.WithLabelValues("failed").Add(float64(r.ToolFailures))
	if r.Outcome != OutcomeSkipped {
		m.CommitDuration.Observe(seconds)
	}
}

// WriteTextfile writes the current values in the node_exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
