package medmgmt

import (
	"context"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
)

//go:generate mockgen -source=repository.go -destination=mock.go -package=medmgmt

type MedicationRuleRepository interface {
	GetActiveRules(ctx context.Context, date time.Time) ([]domain.MedicationRule, error)
	MarkDoseTaken(ctx context.Context, ruleID string, dose time.Time, takenAt time.Time, late bool) error
}
