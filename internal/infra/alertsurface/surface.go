package alertsurface

import (
	"context"

	"github.com/medplan/reminder-engine/internal/domain"
)

//go:generate mockgen -source=surface.go -destination=mock.go -package=alertsurface

// AlertSurface is the channel through which due reminders reach the user.
type AlertSurface interface {
	Display(ctx context.Context, reminder *domain.PendingReminder) error
	Dismiss(ctx context.Context, dedupTag string) error
}
