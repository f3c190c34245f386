package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/infra/medmgmt"
	"github.com/medplan/reminder-engine/internal/service/materialize"
	"github.com/medplan/reminder-engine/internal/service/partition"
	"github.com/medplan/reminder-engine/internal/service/recalc"
)

func newTestEngineWithRepo(store *fakeStore, surface *fakeSurface, ruleRepo medmgmt.MedicationRuleRepository, clock Clock) *Engine {
	partitioner := partition.NewPartitioner()
	return New(
		store,
		surface,
		ruleRepo,
		materialize.NewMaterializer(partitioner),
		recalc.NewRecalculator(partitioner, recalc.DefaultMinSpacing),
		nil,
		nil,
		clock,
		testOptions(),
	)
}

func TestRefreshRulesReconcilesUpstreamRules(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))

	ruleA := testRule()
	ruleB := &domain.MedicationRule{
		ID:          "rule-2",
		Name:        "Metformin",
		Dosage:      "850mg",
		DosesPerDay: 2,
		WindowStart: mustTimeOfDay(t, "09:00"),
		WindowEnd:   mustTimeOfDay(t, "21:00"),
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}

	mockRepo := medmgmt.NewMockMedicationRuleRepository(ctrl)
	mockRepo.EXPECT().
		GetActiveRules(gomock.Any(), gomock.Any()).
		Return([]domain.MedicationRule{*ruleA, *ruleB}, nil)
	mockRepo.EXPECT().
		GetActiveRules(gomock.Any(), gomock.Any()).
		Return([]domain.MedicationRule{*ruleB}, nil)

	eng := newTestEngineWithRepo(store, surface, mockRepo, clock)

	if err := eng.RefreshRules(ctx); err != nil {
		t.Fatalf("RefreshRules() error = %v", err)
	}
	// Refresh admits today and tomorrow: (3+2) doses per day.
	if got := store.count(); got != 10 {
		t.Fatalf("stored %d reminders after first refresh, want 10", got)
	}

	// rule-1 disappears upstream; its reminders must be withdrawn.
	if err := eng.RefreshRules(ctx); err != nil {
		t.Fatalf("RefreshRules() error = %v", err)
	}
	if got := store.count(); got != 4 {
		t.Fatalf("stored %d reminders after second refresh, want 4", got)
	}

	remaining, err := store.GetByRule(ctx, "rule-2")
	if err != nil {
		t.Fatalf("GetByRule() error = %v", err)
	}
	if len(remaining) != 4 {
		t.Errorf("rule-2 reminders = %d, want 4", len(remaining))
	}
	if got, err := store.GetByRule(ctx, "rule-1"); err != nil || len(got) != 0 {
		t.Errorf("rule-1 reminders = %d (err %v), want 0", len(got), err)
	}
}

func TestRefreshRulesUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))

	mockRepo := medmgmt.NewMockMedicationRuleRepository(ctrl)
	mockRepo.EXPECT().
		GetActiveRules(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("upstream unavailable"))

	eng := newTestEngineWithRepo(store, surface, mockRepo, clock)

	if err := eng.RefreshRules(ctx); err == nil {
		t.Fatal("RefreshRules() error = nil, want upstream error")
	}
	if got := store.count(); got != 0 {
		t.Errorf("stored %d reminders after failed refresh, want 0", got)
	}
}
