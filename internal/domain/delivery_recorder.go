package domain

import (
	"context"
	"time"
)

// DeliveryRecord is one audit entry for a reminder leaving the Scheduled
// state. Records are telemetry, not engine state: losing them never affects
// delivery semantics.
type DeliveryRecord struct {
	ReminderID  string
	RuleID      string
	TargetTime  time.Time
	Outcome     string // delivered, expired, cancelled
	Trigger     string // timer, sweep, api
	LatencySecs float64
}

type DeliveryRecorder interface {
	RecordDeliveries(ctx context.Context, records []DeliveryRecord) error
	Flush(ctx context.Context) error
	Close() error
}
