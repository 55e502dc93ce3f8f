package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/patrickmlong/Data-Intensive-PML/internal/infrastructure"
)

const (
	TracerName = "medclean.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs.
// A nil tracer is valid and records nothing.
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer backed by the given providers
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}
	tracer := providers.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}, nil
}

// TraceOperationExecution creates a span for the entire run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, stepCount int) (context.Context, trace.Span) {
	if pt == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := pt.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.Int("operation.step_count", stepCount),
		),
	)
	pt.metrics.ActiveRuns.Add(ctx, 1)
	return ctx, span
}

// TraceStepExecution creates a span for one step
func (pt *OperationTracer) TraceStepExecution(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	if pt == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return pt.tracer.Start(ctx, "operation.step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStepCompletion ends the step span and records step metrics
func (pt *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, rows int, err error) {
	if pt == nil {
		return
	}
	status := string(StepStatusCompleted)
	if err != nil {
		status = string(StepStatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		pt.metrics.StepErrors.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("step_id", stepID),
				attribute.String("error_type", string(GetErrorType(err))),
			),
		)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	attrs := metric.WithAttributes(
		attribute.String("step_id", stepID),
		attribute.String("status", status),
	)
	pt.metrics.StepsTotal.Add(ctx, 1, attrs)
	pt.metrics.StepDuration.Record(ctx, duration.Seconds(), attrs)
	if rows > 0 {
		pt.metrics.RowsWritten.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("step_id", stepID)))
	}
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	span.End()
}

// RecordOperationCompletion ends the run span and records run metrics
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, duration time.Duration, status OperationStatus, err error) {
	if pt == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(attribute.String("status", string(status)))
	pt.metrics.RunsTotal.Add(ctx, 1, attrs)
	pt.metrics.RunDuration.Record(ctx, duration.Seconds(), attrs)
	pt.metrics.ActiveRuns.Add(ctx, -1)

	span.SetAttributes(
		attribute.String("operation.status", string(status)),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)
	span.End()
}
