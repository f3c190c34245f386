package domain

import "context"

//go:generate mockgen -source=reminder_store.go -destination=reminder_store_mock.go -package=domain

// ReminderStore persists pending reminders across restarts. Implementations
// must support lookup by the owning rule id.
type ReminderStore interface {
	Put(ctx context.Context, reminder *PendingReminder) error
	Get(ctx context.Context, id string) (*PendingReminder, error)
	GetAll(ctx context.Context) ([]*PendingReminder, error)
	GetByRule(ctx context.Context, ruleID string) ([]*PendingReminder, error)
	Delete(ctx context.Context, id string) error
	DeleteByRule(ctx context.Context, ruleID string) error
}
