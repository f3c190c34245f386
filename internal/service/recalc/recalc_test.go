package recalc

import (
	"errors"
	"testing"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/service/partition"
)

func newTestRecalculator() *Recalculator {
	return NewRecalculator(partition.NewPartitioner(), 0)
}

func testRule(t *testing.T, start, end string, count int) *domain.MedicationRule {
	t.Helper()
	startTod, err := domain.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q) error = %v", start, err)
	}
	endTod, err := domain.ParseTimeOfDay(end)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q) error = %v", end, err)
	}
	return &domain.MedicationRule{
		ID:          "rule-1",
		Name:        "Amoxicillin",
		Dosage:      "500mg",
		DosesPerDay: count,
		WindowStart: startTod,
		WindowEnd:   endTod,
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}
}

func TestRecalculator_Recalculate_MissedFirstDose(t *testing.T) {
	r := newTestRecalculator()
	rule := testRule(t, "07:00", "23:00", 3)

	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	missed := domain.NewDoseInstant(rule.ID, date, mustTod(t, "07:00"))
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) // 3h late

	got, err := r.Recalculate(rule, missed, now)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recalculate() returned %d doses, want 3", len(got))
	}

	if !got[0].At().Equal(now) {
		t.Errorf("first dose at %v, want now (%v)", got[0].At(), now)
	}
	// 13h remain until 23:00 split over 2 doses
	want1 := time.Date(2026, 3, 5, 16, 30, 0, 0, time.UTC)
	want2 := time.Date(2026, 3, 5, 23, 0, 0, 0, time.UTC)
	if !got[1].At().Equal(want1) {
		t.Errorf("second dose at %v, want %v", got[1].At(), want1)
	}
	if !got[2].At().Equal(want2) {
		t.Errorf("third dose at %v, want %v", got[2].At(), want2)
	}
}

func TestRecalculator_Recalculate_SpacingFloorUnderExtremeDelay(t *testing.T) {
	r := newTestRecalculator()
	rule := testRule(t, "07:00", "15:00", 4)

	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	missed := domain.NewDoseInstant(rule.ID, date, mustTod(t, "07:00"))
	// 7h late: only one hour left in the window for three more doses.
	now := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)

	got, err := r.Recalculate(rule, missed, now)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Recalculate() returned %d doses, want 4", len(got))
	}

	for i := 1; i < len(got); i++ {
		gap := got[i].At().Sub(got[i-1].At())
		if gap < DefaultMinSpacing {
			t.Errorf("gap between dose %d and %d = %v, want >= %v", i-1, i, gap, DefaultMinSpacing)
		}
	}

	// The floor pushed the tail past the configured 15:00 window end.
	last := got[len(got)-1]
	wantLast := time.Date(2026, 3, 5, 20, 0, 0, 0, time.UTC)
	if !last.At().Equal(wantLast) {
		t.Errorf("last dose at %v, want %v", last.At(), wantLast)
	}
}

func TestRecalculator_Recalculate_PushesPastMidnight(t *testing.T) {
	r := newTestRecalculator()
	rule := testRule(t, "07:00", "22:00", 4)

	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	missed := domain.NewDoseInstant(rule.ID, date, mustTod(t, "07:00"))
	now := time.Date(2026, 3, 5, 21, 0, 0, 0, time.UTC)

	got, err := r.Recalculate(rule, missed, now)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	// 21:00, 23:00, 01:00, 03:00 — the tail spills into March 6th.
	last := got[len(got)-1]
	wantLast := time.Date(2026, 3, 6, 3, 0, 0, 0, time.UTC)
	if !last.At().Equal(wantLast) {
		t.Errorf("last dose at %v, want %v", last.At(), wantLast)
	}
	if domain.DateKey(last.Date) != "2026-03-06" {
		t.Errorf("last dose date = %s, want 2026-03-06", domain.DateKey(last.Date))
	}
}

func TestRecalculator_Recalculate_MissedDoseNotInBaseSchedule(t *testing.T) {
	r := newTestRecalculator()
	rule := testRule(t, "07:00", "23:00", 3)

	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	missed := domain.NewDoseInstant(rule.ID, date, mustTod(t, "09:45"))
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	got, err := r.Recalculate(rule, missed, now)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recalculate() returned %d doses for unknown missed dose, want 0", len(got))
	}
}

func TestRecalculator_Recalculate_Idempotent(t *testing.T) {
	r := newTestRecalculator()
	rule := testRule(t, "07:00", "23:00", 3)

	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	missed := domain.NewDoseInstant(rule.ID, date, mustTod(t, "15:00"))
	now := time.Date(2026, 3, 5, 17, 30, 0, 0, time.UTC)

	first, err := r.Recalculate(rule, missed, now)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	second, err := r.Recalculate(rule, missed, now)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeat call returned %d doses, want %d", len(second), len(first))
	}
	for i := range first {
		if !first[i].At().Equal(second[i].At()) {
			t.Errorf("dose %d differs between calls: %v vs %v", i, first[i].At(), second[i].At())
		}
	}
}

func TestRecalculator_GenerateDelayed(t *testing.T) {
	r := newTestRecalculator()

	got, err := r.GenerateDelayed(mustTod(t, "07:00"), mustTod(t, "23:00"), 3, 180)
	if err != nil {
		t.Fatalf("GenerateDelayed() error = %v", err)
	}
	want := []string{"10:00", "16:30", "23:00"}
	if len(got) != len(want) {
		t.Fatalf("GenerateDelayed() returned %d times, want %d", len(got), len(want))
	}
	for i, tod := range got {
		if tod.String() != want[i] {
			t.Errorf("GenerateDelayed()[%d] = %s, want %s", i, tod, want[i])
		}
	}
}

func TestRecalculator_GenerateDelayed_FloorExtendsWindow(t *testing.T) {
	r := newTestRecalculator()

	// 5h late in a 07:00-15:00 window with 4 doses: the floor forces the
	// remaining three doses past 15:00.
	got, err := r.GenerateDelayed(mustTod(t, "07:00"), mustTod(t, "15:00"), 4, 300)
	if err != nil {
		t.Fatalf("GenerateDelayed() error = %v", err)
	}
	want := []string{"12:00", "14:00", "16:00", "18:00"}
	for i, tod := range got {
		if tod.String() != want[i] {
			t.Errorf("GenerateDelayed()[%d] = %s, want %s", i, tod, want[i])
		}
	}
}

func TestRecalculator_GenerateDelayed_InvalidInput(t *testing.T) {
	r := newTestRecalculator()

	if _, err := r.GenerateDelayed(domain.TimeOfDay(1500), mustTod(t, "23:00"), 3, 60); !errors.Is(err, domain.ErrInvalidWindow) {
		t.Errorf("GenerateDelayed(invalid start) error = %v, want ErrInvalidWindow", err)
	}
	if _, err := r.GenerateDelayed(mustTod(t, "07:00"), mustTod(t, "23:00"), 0, 60); !errors.Is(err, domain.ErrInvalidCount) {
		t.Errorf("GenerateDelayed(count=0) error = %v, want ErrInvalidCount", err)
	}
}

func mustTod(t *testing.T, s string) domain.TimeOfDay {
	t.Helper()
	tod, err := domain.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q) error = %v", s, err)
	}
	return tod
}
