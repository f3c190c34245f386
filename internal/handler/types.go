package handler

import (
	"fmt"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type RuleRequest struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Dosage      string `json:"dosage"`
	DosesPerDay int    `json:"doses_per_day" binding:"required"`
	WindowStart string `json:"window_start" binding:"required"`
	WindowEnd   string `json:"window_end" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date"`
	Active      *bool  `json:"active"`
}

func (r *RuleRequest) toDomain() (*domain.MedicationRule, error) {
	windowStart, err := domain.ParseTimeOfDay(r.WindowStart)
	if err != nil {
		return nil, fmt.Errorf("invalid window start: %w", err)
	}
	windowEnd, err := domain.ParseTimeOfDay(r.WindowEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid window end: %w", err)
	}
	startDate, err := domain.ParseDateKey(r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}

	var endDate time.Time
	if r.EndDate != "" {
		endDate, err = domain.ParseDateKey(r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date: %w", err)
		}
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return &domain.MedicationRule{
		ID:          r.ID,
		Name:        r.Name,
		Dosage:      r.Dosage,
		DosesPerDay: r.DosesPerDay,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		StartDate:   startDate,
		EndDate:     endDate,
		Active:      active,
	}, nil
}

type GenerateRequest struct {
	WindowStart  string `json:"window_start" binding:"required"`
	WindowEnd    string `json:"window_end" binding:"required"`
	Count        int    `json:"count" binding:"required"`
	DelayMinutes int    `json:"delay_minutes"`
}

type GenerateResponse struct {
	Times []string `json:"times"`
	Count int      `json:"count"`
}

type MaterializeRequest struct {
	Rule RuleRequest `json:"rule" binding:"required"`
	Date string      `json:"date" binding:"required"`
}

type DoseResponse struct {
	RuleID     string    `json:"rule_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	ReminderID string    `json:"reminder_id"`
	TargetTime time.Time `json:"target_time"`
}

type MaterializeResponse struct {
	Doses []DoseResponse `json:"doses"`
	Count int            `json:"count"`
}

type ScheduleRemindersRequest struct {
	Rule RuleRequest `json:"rule" binding:"required"`
	Date string      `json:"date" binding:"required"`
}

type ScheduleRemindersResponse struct {
	Admitted int `json:"admitted"`
}

type CancelRemindersRequest struct {
	ReminderID string `json:"reminder_id"`
	RuleID     string `json:"rule_id"`
}

type CancelRemindersResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RuleEventRequest struct {
	EventType string       `json:"event_type" binding:"required"`
	RuleID    string       `json:"rule_id"`
	Rule      *RuleRequest `json:"rule"`
}

type RuleEventResponse struct {
	Success  bool `json:"success"`
	Admitted int  `json:"admitted"`
}

type InteractionRequest struct {
	ReminderID string `json:"reminder_id" binding:"required"`
	Action     string `json:"action" binding:"required"`
}

type InteractionResponse struct {
	Success bool `json:"success"`
}

// PermissionRequest carries the alert surface's permission state. Granted is
// a pointer so an explicit false survives binding.
type PermissionRequest struct {
	Granted *bool `json:"granted"`
}
