package domain

import (
	"fmt"
	"time"
)

// DoseInstant is one concrete scheduled dose for one rule on one calendar day.
// It is derived data; only the reminder wrapper around it is persisted.
type DoseInstant struct {
	RuleID string
	Date   time.Time
	Time   TimeOfDay
}

func NewDoseInstant(ruleID string, date time.Time, tod TimeOfDay) DoseInstant {
	return DoseInstant{
		RuleID: ruleID,
		Date:   truncateToDay(date),
		Time:   tod,
	}
}

// At resolves the dose to an absolute wall-clock instant.
func (d DoseInstant) At() time.Time {
	return d.Time.At(d.Date)
}

// ReminderID derives the stable reminder id for this dose. Re-admitting the
// same dose therefore always maps to the same persisted entry.
func (d DoseInstant) ReminderID() string {
	return fmt.Sprintf("%s-%s-%s", d.RuleID, d.Time.String(), DateKey(d.Date))
}
