package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	engineMeterName = "reminder.engine"
)

type EngineMetrics struct {
	remindersAdmitted  metric.Int64Counter
	remindersDelivered metric.Int64Counter
	remindersExpired   metric.Int64Counter
	remindersCancelled metric.Int64Counter
	deliveryLatency    metric.Float64Histogram
	sweepDuration      metric.Float64Histogram
}

func NewEngineMetrics() (*EngineMetrics, error) {
	meter := otel.Meter(engineMeterName)

	remindersAdmitted, err := meter.Int64Counter(
		"reminders_admitted_total",
		metric.WithDescription("Total number of reminders admitted for delivery"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, err
	}

	remindersDelivered, err := meter.Int64Counter(
		"reminders_delivered_total",
		metric.WithDescription("Total number of reminders delivered to the alert surface"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, err
	}

	remindersExpired, err := meter.Int64Counter(
		"reminders_expired_total",
		metric.WithDescription("Total number of reminders expired as stale"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, err
	}

	remindersCancelled, err := meter.Int64Counter(
		"reminders_cancelled_total",
		metric.WithDescription("Total number of reminders cancelled"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram(
		"reminder_delivery_latency_seconds",
		metric.WithDescription("Delay between a reminder's target time and its delivery"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600,
		),
	)
	if err != nil {
		return nil, err
	}

	sweepDuration, err := meter.Float64Histogram(
		"reminder_sweep_duration_seconds",
		metric.WithDescription("Time spent in one reconciliation sweep"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
		),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		remindersAdmitted:  remindersAdmitted,
		remindersDelivered: remindersDelivered,
		remindersExpired:   remindersExpired,
		remindersCancelled: remindersCancelled,
		deliveryLatency:    deliveryLatency,
		sweepDuration:      sweepDuration,
	}, nil
}

func (m *EngineMetrics) RecordAdmitted(ctx context.Context, ruleID string) {
	m.remindersAdmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule_id", ruleID),
	))
}

func (m *EngineMetrics) RecordDelivered(ctx context.Context, trigger string, latency time.Duration) {
	m.remindersDelivered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
	))
	m.deliveryLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(
		attribute.String("trigger", trigger),
	))
}

func (m *EngineMetrics) RecordExpired(ctx context.Context) {
	m.remindersExpired.Add(ctx, 1)
}

func (m *EngineMetrics) RecordCancelled(ctx context.Context, reason string) {
	m.remindersCancelled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

func (m *EngineMetrics) RecordSweepDuration(ctx context.Context, duration time.Duration) {
	m.sweepDuration.Record(ctx, duration.Seconds())
}
