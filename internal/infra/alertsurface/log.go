package alertsurface

import (
	"context"
	"log/slog"

	"github.com/medplan/reminder-engine/internal/domain"
)

// LogSurface writes alerts to the structured log instead of a delivery
// channel. It backs local development when no notifier is configured.
type LogSurface struct{}

func NewLogSurface() *LogSurface {
	return &LogSurface{}
}

func (s *LogSurface) Display(_ context.Context, reminder *domain.PendingReminder) error {
	slog.Info("alert",
		slog.String("tag", reminder.Payload.DedupTag),
		slog.String("title", reminder.Payload.Title),
		slog.String("body", reminder.Payload.Body),
		slog.Time("target_time", reminder.TargetTime),
	)
	return nil
}

func (s *LogSurface) Dismiss(_ context.Context, dedupTag string) error {
	slog.Info("alert dismissed",
		slog.String("tag", dedupTag),
	)
	return nil
}
