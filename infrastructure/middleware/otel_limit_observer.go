// Package middleware provides cross-cutting concerns for the analysis engine.
package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-iita/internal/domain"
	"github.com/ahrav/go-iita/internal/ports"
)

var _ LimitObserver = (*OTelLimitObserver)(nil)

const tracerName = "github.com/ahrav/go-iita/middleware"

// OTelLimitObserver implements observability for guarded units using
// OpenTelemetry tracing. It opens one span per guarded execution, sets
// size and limit attributes, and records events when a limit is near or
// exceeded. The span travels in the context, so the observer itself holds
// no per-execution state.
type OTelLimitObserver struct {
	metrics  ports.MetricsCollector
	unitName string
	tracer   trace.Tracer
}

// NewOTelLimitObserver creates a new OpenTelemetry limit observer.
func NewOTelLimitObserver(metrics ports.MetricsCollector, unitName string) *OTelLimitObserver {
	return &OTelLimitObserver{
		metrics:  metrics,
		unitName: unitName,
		tracer:   otel.Tracer(tracerName),
	}
}

// WithTracer replaces the tracer obtained from the global provider.
func (o *OTelLimitObserver) WithTracer(tracer trace.Tracer) *OTelLimitObserver {
	o.tracer = tracer
	return o
}

// PreCheck implements the LimitObserver interface. It starts a span and
// records the incoming sizes and threshold warnings.
func (o *OTelLimitObserver) PreCheck(ctx context.Context, dims domain.Dimensions, limits Limits) context.Context {
	ctx, span := o.tracer.Start(ctx, "LimitGuard.Execute",
		trace.WithAttributes(attribute.String("iita.unit", o.unitName)))

	o.addSpanAttributes(span, dims, limits)
	o.checkThresholds(span, dims, limits)
	return ctx
}

// PostCheck implements the LimitObserver interface. It finalizes the span,
// records metrics, and handles any error conditions that occurred.
func (o *OTelLimitObserver) PostCheck(
	ctx context.Context,
	dims domain.Dimensions,
	limits Limits,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	o.addSpanAttributes(span, dims, limits)

	if o.metrics != nil {
		o.metrics.RecordLatency(o.unitName, elapsed, o.createMetricLabels())
	}

	if err != nil {
		var limitErr *domain.LimitExceededError
		if errors.As(err, &limitErr) {
			span.AddEvent("limit.exceeded", trace.WithAttributes(
				attribute.String("limit", limitErr.Limit),
				attribute.Int("max", limitErr.Max),
				attribute.Int("actual", limitErr.Actual),
			))
			span.SetStatus(codes.Error, "analysis size limit exceeded")

			if o.metrics != nil {
				labels := o.createMetricLabels()
				labels["limit"] = limitErr.Limit
				o.metrics.RecordCounter(ports.MetricLimitExceeded, 1, labels)
			}
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return
	}

	o.updateMetrics(dims)
	span.SetStatus(codes.Ok, "")
}

// addSpanAttributes sets span attributes for the current sizes and any
// configured limits.
func (o *OTelLimitObserver) addSpanAttributes(span trace.Span, dims domain.Dimensions, limits Limits) {
	span.SetAttributes(
		attribute.Int("iita.subjects", dims.Subjects),
		attribute.Int("iita.items", dims.Items),
		attribute.Int("iita.candidates", dims.Candidates),
	)

	if limits.MaxSubjects > 0 {
		span.SetAttributes(attribute.Int("iita.limit.max_subjects", limits.MaxSubjects))
	}
	if limits.MaxItems > 0 {
		span.SetAttributes(attribute.Int("iita.limit.max_items", limits.MaxItems))
	}
	if limits.MaxCandidates > 0 {
		span.SetAttributes(attribute.Int("iita.limit.max_candidates", limits.MaxCandidates))
	}
}

// checkThresholds adds span events for sizes approaching their limits.
func (o *OTelLimitObserver) checkThresholds(span trace.Span, dims domain.Dimensions, limits Limits) {
	const warningThreshold = 0.8
	const criticalThreshold = 0.9

	check := func(resource string, used, limit int) {
		if limit <= 0 {
			return
		}
		ratio := float64(used) / float64(limit)
		switch {
		case ratio >= criticalThreshold:
			span.AddEvent("limit.threshold.critical", trace.WithAttributes(
				attribute.String("resource_type", resource),
				attribute.Float64("usage_percentage", ratio*100),
			))
		case ratio >= warningThreshold:
			span.AddEvent("limit.threshold.warning", trace.WithAttributes(
				attribute.String("resource_type", resource),
				attribute.Float64("usage_percentage", ratio*100),
			))
		}
	}

	check("subjects", dims.Subjects, limits.MaxSubjects)
	check("items", dims.Items, limits.MaxItems)
	check("candidates", dims.Candidates, limits.MaxCandidates)
}

// updateMetrics sends the current sizes to the metrics collector.
func (o *OTelLimitObserver) updateMetrics(dims domain.Dimensions) {
	if o.metrics == nil {
		return
	}

	labels := o.createMetricLabels()
	o.metrics.RecordGauge("subjects", float64(dims.Subjects), labels)
	o.metrics.RecordGauge("items", float64(dims.Items), labels)
	o.metrics.RecordGauge("candidates", float64(dims.Candidates), labels)
}

func (o *OTelLimitObserver) createMetricLabels() map[string]string {
	return map[string]string{"unit": o.unitName}
}
