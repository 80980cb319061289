package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "regadvisor"

// StartQuerySpan starts a span for one advisory query.
func StartQuerySpan(ctx context.Context, queryID, strategy string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "query",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.String("query.strategy", strategy),
		),
	)
}

// StartStepSpan starts a span for one workflow step.
func StartStepSpan(ctx context.Context, workflowID, agent string, index int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "step",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
			attribute.String("step.agent", agent),
			attribute.Int("step.index", index),
		),
	)
}

// FailSpan marks span as failed with err.
func FailSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
