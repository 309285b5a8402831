package ports

import "time"

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, e.g. the minimum
	// diff of an analysis.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// Metric names understood by MetricsCollector implementations.
const (
	// MetricAnalyses counts finished analyses, labelled by rule and status.
	MetricAnalyses = "analyses_total"

	// MetricCandidatesEvaluated counts candidates scored by the fit stage.
	MetricCandidatesEvaluated = "candidates_evaluated_total"

	// MetricLimitExceeded counts analyses rejected by a size limit.
	MetricLimitExceeded = "limit_exceeded_total"

	// MetricSelectedCandidates is the size of the latest selection.
	MetricSelectedCandidates = "selected_candidates"

	// MetricMinDiff observes the smallest diff of each analysis.
	MetricMinDiff = "min_diff"
)
