// Package middleware provides cross-cutting concerns for the analysis engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-iita/internal/ports"
)

const metricsNamespace = "iita"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks analysis outcomes, per-stage latency, candidate volume and the
// fit quality of selected structures.
type PrometheusMetrics struct {
	analysesTotal       *prometheus.CounterVec
	stageDuration       *prometheus.HistogramVec
	candidatesEvaluated prometheus.Counter
	limitExceeded       *prometheus.CounterVec
	selectedCandidates  *prometheus.GaugeVec
	minDiff             prometheus.Histogram
	dimensions          *prometheus.GaugeVec
	observations        *prometheus.HistogramVec
	events              *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and
// registers its collectors with reg. A nil reg uses the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analyses_total",
				Help:      "Total number of analyses run, by selection rule and outcome.",
			},
			[]string{"rule", "status"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "stage_duration_seconds",
				Help:      "Execution time of analysis stages.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"stage"},
		),
		candidatesEvaluated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "candidates_evaluated_total",
				Help:      "Total number of candidate quasi-orders scored against data.",
			},
		),
		limitExceeded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "limit_exceeded_total",
				Help:      "Total number of analyses rejected by a size limit.",
			},
			[]string{"limit", "unit"},
		),
		selectedCandidates: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "selected_candidates",
				Help:      "Number of candidates selected by the most recent analysis.",
			},
			[]string{"rule"},
		),
		minDiff: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "min_diff",
				Help:      "Smallest diff value observed per analysis.",
				Buckets:   prometheus.LinearBuckets(0, 0.05, 21),
			},
		),
		dimensions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "analysis_dimensions",
				Help:      "Size of the most recent analysis seen by each unit.",
			},
			[]string{"metric", "unit"},
		),
		observations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "observations",
				Help:      "Generic observations recorded by analysis components.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric", "unit"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_total",
				Help:      "Generic counters recorded by analysis components.",
			},
			[]string{"metric", "unit"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram keyed by stage.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	stage := operation
	if unit := labels["unit"]; unit != "" {
		stage = unit
	}
	pm.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricAnalyses:
		pm.analysesTotal.WithLabelValues(labelOr(labels, "rule"), labelOr(labels, "status")).Add(value)
	case ports.MetricCandidatesEvaluated:
		pm.candidatesEvaluated.Add(value)
	case ports.MetricLimitExceeded:
		pm.limitExceeded.WithLabelValues(labelOr(labels, "limit"), labelOr(labels, "unit")).Add(value)
	default:
		pm.events.WithLabelValues(metric, labelOr(labels, "unit")).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricSelectedCandidates:
		pm.selectedCandidates.WithLabelValues(labelOr(labels, "rule")).Set(value)
	default:
		pm.dimensions.WithLabelValues(metric, labelOr(labels, "unit")).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricMinDiff:
		pm.minDiff.Observe(value)
	default:
		pm.observations.WithLabelValues(metric, labelOr(labels, "unit")).Observe(value)
	}
}

func labelOr(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
