package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricStagesTotal    = "revisar.stages.total"
	metricStageDuration  = "revisar.stage.duration.seconds"
	metricErrorsTotal    = "revisar.errors.total"
	metricInflightStages = "revisar.inflight.stages"

	attrStage  = "stage"
	attrStatus = "status"

	// StatusOK and StatusError are the recorded stage outcomes.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 10ms to 600s; extraction over a large
// history can run for minutes while template application is sub-second.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// StageMetrics holds the RED instruments for pipeline stages.
type StageMetrics struct {
	stagesTotal    metric.Int64Counter
	stageDuration  metric.Float64Histogram
	errorsTotal    metric.Int64Counter
	inflightStages metric.Int64UpDownCounter
}

// NewStageMetrics creates stage metric instruments from the given meter.
func NewStageMetrics(mt metric.Meter) (*StageMetrics, error) {
	total, err := mt.Int64Counter(metricStagesTotal,
		metric.WithDescription("Total number of pipeline stage runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStagesTotal, err)
	}

	duration, err := mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of stage errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightStages,
		metric.WithDescription("Number of running pipeline stages"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightStages, err)
	}

	return &StageMetrics{
		stagesTotal:    total,
		stageDuration:  duration,
		errorsTotal:    errTotal,
		inflightStages: inflight,
	}, nil
}

// RecordStage records a completed stage run with its status and duration.
func (sm *StageMetrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, status),
	)

	sm.stagesTotal.Add(ctx, 1, attrs)
	sm.stageDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		sm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrStage, stage),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to
// decrement it.
func (sm *StageMetrics) TrackInflight(ctx context.Context, stage string) func() {
	attrs := metric.WithAttributes(attribute.String(attrStage, stage))
	sm.inflightStages.Add(ctx, 1, attrs)

	return func() {
		sm.inflightStages.Add(ctx, -1, attrs)
	}
}
