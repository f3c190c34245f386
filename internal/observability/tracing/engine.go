package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const engineTracerName = "github.com/medplan/reminder-engine/internal/service/engine"

func EngineTracer() trace.Tracer {
	return otel.Tracer(engineTracerName)
}

func StartSweepSpan(ctx context.Context, sweepTime time.Time) (context.Context, trace.Span) {
	return EngineTracer().Start(ctx, "engine.sweep",
		trace.WithAttributes(
			attribute.String("sweep.time", sweepTime.Format(time.RFC3339)),
		),
	)
}

func StartDeliverySpan(ctx context.Context, reminderID, trigger string) (context.Context, trace.Span) {
	return EngineTracer().Start(ctx, "engine.delivery",
		trace.WithAttributes(
			attribute.String("reminder_id", reminderID),
			attribute.String("trigger", trigger),
		),
	)
}

func StartRecalculationSpan(ctx context.Context, ruleID string) (context.Context, trace.Span) {
	return EngineTracer().Start(ctx, "engine.recalculation",
		trace.WithAttributes(
			attribute.String("rule_id", ruleID),
		),
	)
}

func StartRuleRefreshSpan(ctx context.Context) (context.Context, trace.Span) {
	return EngineTracer().Start(ctx, "engine.rule_refresh")
}

func RecordSweepResult(span trace.Span, deliveredCount, expiredCount, armedCount int, err error) {
	span.SetAttributes(
		attribute.Int("sweep.delivered_count", deliveredCount),
		attribute.Int("sweep.expired_count", expiredCount),
		attribute.Int("sweep.armed_count", armedCount),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

func RecordDeliveryResult(span trace.Span, outcome string, latency time.Duration, err error) {
	span.SetAttributes(
		attribute.String("delivery.outcome", outcome),
		attribute.Int64("delivery.latency_seconds", int64(latency.Seconds())),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
