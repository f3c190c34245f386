package domain

import (
	"fmt"
	"time"
)

const MinutesPerDay = 24 * 60

// TimeOfDay is a clock time expressed as minutes since midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	t := TimeOfDay(hour*60 + minute)
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidWindow, hour, minute)
	}
	return t, nil
}

// ParseTimeOfDay parses an "HH:MM" clock time.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	return NewTimeOfDay(hour, minute)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Normalize wraps values computed past midnight back into [0, 24h).
func (t TimeOfDay) Normalize() TimeOfDay {
	m := int(t) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return TimeOfDay(m)
}

func (t TimeOfDay) String() string {
	n := t.Normalize()
	return fmt.Sprintf("%02d:%02d", n.Hour(), n.Minute())
}

// At anchors the time of day on the calendar day of date, in date's location.
func (t TimeOfDay) At(date time.Time) time.Time {
	n := t.Normalize()
	return time.Date(date.Year(), date.Month(), date.Day(), n.Hour(), n.Minute(), 0, 0, date.Location())
}

// DateKey formats a calendar day the way reminder ids embed it.
func DateKey(date time.Time) string {
	return date.Format("2006-01-02")
}

// ParseDateKey parses a "YYYY-MM-DD" calendar day.
func ParseDateKey(key string) (time.Time, error) {
	return time.Parse("2006-01-02", key)
}
