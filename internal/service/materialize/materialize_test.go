package materialize

import (
	"errors"
	"testing"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/service/partition"
)

func testRule(t *testing.T) *domain.MedicationRule {
	t.Helper()
	start, err := domain.ParseTimeOfDay("07:00")
	if err != nil {
		t.Fatalf("ParseTimeOfDay() error = %v", err)
	}
	end, err := domain.ParseTimeOfDay("23:00")
	if err != nil {
		t.Fatalf("ParseTimeOfDay() error = %v", err)
	}
	return &domain.MedicationRule{
		ID:          "rule-1",
		Name:        "Ibuprofen",
		Dosage:      "400mg",
		DosesPerDay: 3,
		WindowStart: start,
		WindowEnd:   end,
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}
}

func TestMaterializer_Materialize(t *testing.T) {
	m := NewMaterializer(partition.NewPartitioner())
	rule := testRule(t)
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	got, err := m.Materialize(rule, date)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Materialize() returned %d doses, want 3", len(got))
	}

	wantTimes := []string{"07:00", "15:00", "23:00"}
	for i, dose := range got {
		if dose.RuleID != rule.ID {
			t.Errorf("dose %d rule id = %s, want %s", i, dose.RuleID, rule.ID)
		}
		if !dose.Date.Equal(date) {
			t.Errorf("dose %d date = %v, want %v", i, dose.Date, date)
		}
		if dose.Time.String() != wantTimes[i] {
			t.Errorf("dose %d time = %s, want %s", i, dose.Time, wantTimes[i])
		}
	}
}

func TestMaterializer_Materialize_OutsideDateRange(t *testing.T) {
	m := NewMaterializer(partition.NewPartitioner())
	rule := testRule(t)

	tests := []struct {
		name string
		date time.Time
	}{
		{"before start date", time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"after end date", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Materialize(rule, tt.date)
			if err != nil {
				t.Fatalf("Materialize() error = %v", err)
			}
			if len(got) != 0 {
				t.Errorf("Materialize() returned %d doses, want 0", len(got))
			}
		})
	}
}

func TestMaterializer_Materialize_EndDateInclusive(t *testing.T) {
	m := NewMaterializer(partition.NewPartitioner())
	rule := testRule(t)

	got, err := m.Materialize(rule, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Materialize() on the end date returned %d doses, want 3", len(got))
	}
}

func TestMaterializer_Materialize_InactiveRule(t *testing.T) {
	m := NewMaterializer(partition.NewPartitioner())
	rule := testRule(t)
	rule.Active = false

	got, err := m.Materialize(rule, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Materialize() returned %d doses for inactive rule, want 0", len(got))
	}
}

func TestMaterializer_Materialize_InvalidRule(t *testing.T) {
	m := NewMaterializer(partition.NewPartitioner())
	rule := testRule(t)
	rule.DosesPerDay = 0

	if _, err := m.Materialize(rule, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)); !errors.Is(err, domain.ErrInvalidCount) {
		t.Errorf("Materialize() error = %v, want ErrInvalidCount", err)
	}
}

func TestMaterializer_Materialize_ReminderIDStability(t *testing.T) {
	m := NewMaterializer(partition.NewPartitioner())
	rule := testRule(t)
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	first, err := m.Materialize(rule, date)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	second, err := m.Materialize(rule, date)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	for i := range first {
		if first[i].ReminderID() != second[i].ReminderID() {
			t.Errorf("dose %d reminder id differs between calls: %s vs %s",
				i, first[i].ReminderID(), second[i].ReminderID())
		}
	}
	if want := "rule-1-07:00-2026-03-05"; first[0].ReminderID() != want {
		t.Errorf("reminder id = %s, want %s", first[0].ReminderID(), want)
	}
}
