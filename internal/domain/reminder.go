package domain

import (
	"fmt"
	"time"
)

// ReminderState is the delivery lifecycle state of a pending reminder.
type ReminderState string

const (
	StateScheduled ReminderState = "scheduled"
	StateDelivered ReminderState = "delivered"
	StateExpired   ReminderState = "expired"
	StateCancelled ReminderState = "cancelled"
)

func (s ReminderState) String() string {
	return string(s)
}

// AlertPayload is what the alert surface displays. The dedup tag makes a
// second delivery attempt replace the prior alert instead of stacking it.
type AlertPayload struct {
	Title    string
	Body     string
	DedupTag string
	Actions  []string
}

// PendingReminder is the persisted delivery-tracking wrapper around a
// DoseInstant once it enters the scheduling horizon.
type PendingReminder struct {
	ID          string
	RuleID      string
	DoseDate    time.Time
	DoseTime    TimeOfDay
	TargetTime  time.Time
	Payload     AlertPayload
	State       ReminderState
	CreatedAt   time.Time
	DeliveredAt time.Time
}

// NewDoseReminder builds the reminder for one dose of a rule. The id is
// derived from the dose, so the constructor is idempotent per dose.
func NewDoseReminder(rule *MedicationRule, dose DoseInstant, now time.Time) *PendingReminder {
	id := dose.ReminderID()

	body := fmt.Sprintf("Time to take %s", rule.Name)
	if rule.Dosage != "" {
		body = fmt.Sprintf("Time to take %s (%s)", rule.Name, rule.Dosage)
	}

	return &PendingReminder{
		ID:         id,
		RuleID:     rule.ID,
		DoseDate:   dose.Date,
		DoseTime:   dose.Time,
		TargetTime: dose.At(),
		Payload: AlertPayload{
			Title:    "Medication reminder",
			Body:     body,
			DedupTag: id,
			Actions:  []string{"taken", "snooze"},
		},
		State:     StateScheduled,
		CreatedAt: now.UTC(),
	}
}

// Dose reconstructs the dose instant this reminder was created for.
func (r *PendingReminder) Dose() DoseInstant {
	return DoseInstant{RuleID: r.RuleID, Date: r.DoseDate, Time: r.DoseTime}
}

// DueAt reports whether the reminder's target time falls within tolerance of
// now. The sweep uses this to catch targets whose timer was lost.
func (r *PendingReminder) DueAt(now time.Time, tolerance time.Duration) bool {
	diff := now.Sub(r.TargetTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// StaleAt reports whether the target time is more than threshold in the past.
func (r *PendingReminder) StaleAt(now time.Time, threshold time.Duration) bool {
	return now.Sub(r.TargetTime) > threshold
}

func (r *PendingReminder) MarkDelivered(now time.Time) {
	r.State = StateDelivered
	r.DeliveredAt = now.UTC()
}

func (r *PendingReminder) MarkExpired() {
	r.State = StateExpired
}

func (r *PendingReminder) MarkCancelled() {
	r.State = StateCancelled
}
