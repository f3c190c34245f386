package domain

import (
	"fmt"
	"time"
)

const MaxDosesPerDay = 10

// MedicationRule is the recurring dosing rule owned by the medication
// management subsystem. The engine only reads it.
type MedicationRule struct {
	ID          string
	Name        string
	Dosage      string
	DosesPerDay int
	WindowStart TimeOfDay
	WindowEnd   TimeOfDay
	StartDate   time.Time
	EndDate     time.Time
	Active      bool
}

func (r *MedicationRule) Validate() error {
	if !r.WindowStart.Valid() || !r.WindowEnd.Valid() {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidWindow, r.WindowStart, r.WindowEnd)
	}
	if r.DosesPerDay <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, r.DosesPerDay)
	}
	if r.DosesPerDay > MaxDosesPerDay {
		return fmt.Errorf("%w: %d exceeds maximum of %d", ErrInvalidCount, r.DosesPerDay, MaxDosesPerDay)
	}
	return nil
}

// ActiveOn reports whether the rule covers the calendar day of date.
// The end date is inclusive.
func (r *MedicationRule) ActiveOn(date time.Time) bool {
	if !r.Active {
		return false
	}
	day := truncateToDay(date)
	start := truncateToDay(r.StartDate)
	end := truncateToDay(r.EndDate)
	if day.Before(start) {
		return false
	}
	if !r.EndDate.IsZero() && day.After(end) {
		return false
	}
	return true
}

// WindowWraps reports whether the daily window crosses midnight,
// e.g. an evening start with a morning end.
func (r *MedicationRule) WindowWraps() bool {
	return r.WindowEnd <= r.WindowStart
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
