package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "regadvisor"

// Metrics holds all RegAdvisor metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	QueriesProcessed metric.Int64Counter
	QueriesFailed    metric.Int64Counter
	StepsCompleted   metric.Int64Counter
	StepsFailed      metric.Int64Counter
	StepsSkipped     metric.Int64Counter
	QueryDuration    metric.Float64Histogram
	FinalConfidence  metric.Float64Histogram
	QualityScore     metric.Float64Histogram
}

// NewMetrics creates all metric instruments on mp, or on the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.QueriesProcessed, err = meter.Int64Counter("regadvisor.queries.processed",
		metric.WithDescription("Number of queries synthesized successfully"))
	if err != nil {
		return nil, err
	}

	m.QueriesFailed, err = meter.Int64Counter("regadvisor.queries.failed",
		metric.WithDescription("Number of queries that failed"))
	if err != nil {
		return nil, err
	}

	m.StepsCompleted, err = meter.Int64Counter("regadvisor.steps.completed",
		metric.WithDescription("Number of workflow steps completed"))
	if err != nil {
		return nil, err
	}

	m.StepsFailed, err = meter.Int64Counter("regadvisor.steps.failed",
		metric.WithDescription("Number of workflow steps failed"))
	if err != nil {
		return nil, err
	}

	m.StepsSkipped, err = meter.Int64Counter("regadvisor.steps.skipped",
		metric.WithDescription("Number of workflow steps skipped because the agent cannot handle the context"))
	if err != nil {
		return nil, err
	}

	m.QueryDuration, err = meter.Float64Histogram("regadvisor.query.duration_seconds",
		metric.WithDescription("End-to-end query processing time in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.FinalConfidence, err = meter.Float64Histogram("regadvisor.query.confidence",
		metric.WithDescription("Final confidence of synthesized responses"))
	if err != nil {
		return nil, err
	}

	m.QualityScore, err = meter.Float64Histogram("regadvisor.query.quality",
		metric.WithDescription("Quality score of synthesized results"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordQuery records a successful query.
func (m *Metrics) RecordQuery(ctx context.Context, strategy, method string, d time.Duration, confidence, quality float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("method", method),
	)
	m.QueriesProcessed.Add(ctx, 1, attrs)
	m.QueryDuration.Record(ctx, d.Seconds(), attrs)
	m.FinalConfidence.Record(ctx, confidence, attrs)
	m.QualityScore.Record(ctx, quality, attrs)
}

// RecordQueryFailure records a failed query.
func (m *Metrics) RecordQueryFailure(ctx context.Context, strategy, reason string) {
	if m == nil {
		return
	}
	m.QueriesFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("reason", reason),
	))
}

// RecordStep records a terminal step transition.
func (m *Metrics) RecordStep(ctx context.Context, agent, status string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("agent", agent))
	switch status {
	case "completed":
		m.StepsCompleted.Add(ctx, 1, attrs)
	case "failed":
		m.StepsFailed.Add(ctx, 1, attrs)
	case "skipped":
		m.StepsSkipped.Add(ctx, 1, attrs)
	}
}
