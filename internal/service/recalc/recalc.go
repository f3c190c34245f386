package recalc

import (
	"fmt"
	"math"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/service/partition"
)

// DefaultMinSpacing is the floor between two doses after a late intake.
const DefaultMinSpacing = 120 * time.Minute

// Recalculator revises the remainder of a day's schedule after a dose was
// taken late. The missed dose moves to now; the rest are redistributed over
// the time left in the window, never closer together than the spacing floor.
// When the floor cannot be met inside the window, the effective window end is
// pushed forward, past midnight if necessary.
//
// Unlike the partitioner, spacing here divides by the remaining count rather
// than count-1: the now-dose is not an endpoint the redistribution has to
// re-hit.
type Recalculator struct {
	partitioner *partition.Partitioner
	minSpacing  time.Duration
}

func NewRecalculator(partitioner *partition.Partitioner, minSpacing time.Duration) *Recalculator {
	if minSpacing <= 0 {
		minSpacing = DefaultMinSpacing
	}
	return &Recalculator{
		partitioner: partitioner,
		minSpacing:  minSpacing,
	}
}

// Recalculate returns the revised remainder-of-day schedule for rule after
// missing the given dose. The result is empty when the missed dose does not
// appear in the day's base schedule.
func (r *Recalculator) Recalculate(rule *domain.MedicationRule, missed domain.DoseInstant, now time.Time) ([]domain.DoseInstant, error) {
	base, err := r.partitioner.Partition(rule.WindowStart, rule.WindowEnd, rule.DosesPerDay)
	if err != nil {
		return nil, err
	}

	missedIndex := -1
	for i, tod := range base {
		if tod == missed.Time {
			missedIndex = i
			break
		}
	}
	if missedIndex == -1 {
		return nil, nil
	}

	now = now.Truncate(time.Minute)
	revised := []domain.DoseInstant{doseAt(rule.ID, now)}

	remaining := len(base) - missedIndex - 1
	if remaining == 0 {
		return revised, nil
	}

	windowEnd := rule.WindowEnd.At(missed.Date)
	if rule.WindowWraps() {
		windowEnd = windowEnd.AddDate(0, 0, 1)
	}

	available := windowEnd.Sub(now)
	if required := time.Duration(remaining) * r.minSpacing; available < required {
		available = required
	}

	interval := available / time.Duration(remaining)
	if interval < r.minSpacing {
		interval = r.minSpacing
	}

	for i := 1; i <= remaining; i++ {
		revised = append(revised, doseAt(rule.ID, now.Add(time.Duration(i)*interval)))
	}

	return revised, nil
}

// GenerateDelayed is the pure time-of-day form of Recalculate, used by the
// schedule generation API: the first dose lands delayMinutes into the window
// and the rest follow the same floor-constrained redistribution.
func (r *Recalculator) GenerateDelayed(start, end domain.TimeOfDay, count, delayMinutes int) ([]domain.TimeOfDay, error) {
	if !start.Valid() || !end.Valid() {
		return nil, fmt.Errorf("%w: start=%s end=%s", domain.ErrInvalidWindow, start, end)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidCount, count)
	}

	startMin := start.Minutes()
	endMin := end.Minutes()
	if endMin <= startMin {
		endMin += domain.MinutesPerDay
	}

	current := startMin + delayMinutes
	times := []domain.TimeOfDay{domain.TimeOfDay(current).Normalize()}

	remaining := count - 1
	if remaining == 0 {
		return times, nil
	}

	floor := int(r.minSpacing.Minutes())
	available := endMin - current
	if required := remaining * floor; available < required {
		available = required
	}

	interval := float64(available) / float64(remaining)
	if interval < float64(floor) {
		interval = float64(floor)
	}

	for i := 1; i <= remaining; i++ {
		minutes := float64(current) + float64(i)*interval
		times = append(times, domain.TimeOfDay(int(math.Round(minutes))).Normalize())
	}

	return times, nil
}

func doseAt(ruleID string, at time.Time) domain.DoseInstant {
	tod := domain.TimeOfDay(at.Hour()*60 + at.Minute())
	return domain.NewDoseInstant(ruleID, at, tod)
}
