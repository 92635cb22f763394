package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "zasterix"

// StartConsultSpan starts a span for a specialist consultation.
func StartConsultSpan(ctx context.Context, templateID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "consult",
		trace.WithAttributes(attribute.String("template.id", templateID)),
	)
}

// StartCoachSpan starts a span for an asset coach run.
func StartCoachSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "coach.run",
		trace.WithAttributes(attribute.String("coach.run_id", runID)),
	)
}

// StartJobSpan starts a span for one background job attempt.
func StartJobSpan(ctx context.Context, kind string, attempt int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "job."+kind,
		trace.WithAttributes(
			attribute.String("job.kind", kind),
			attribute.Int("job.attempt", attempt),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
