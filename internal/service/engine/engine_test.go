package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/service/materialize"
	"github.com/medplan/reminder-engine/internal/service/partition"
	"github.com/medplan/reminder-engine/internal/service/recalc"
)

type fakeStore struct {
	mu        sync.Mutex
	reminders map[string]domain.PendingReminder
	putErr    error
	getAllErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{reminders: make(map[string]domain.PendingReminder)}
}

func (s *fakeStore) Put(_ context.Context, reminder *domain.PendingReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.reminders[reminder.ID] = *reminder
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*domain.PendingReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder, ok := s.reminders[id]
	if !ok {
		return nil, domain.ErrReminderNotFound
	}
	copied := reminder
	return &copied, nil
}

func (s *fakeStore) GetAll(_ context.Context) ([]*domain.PendingReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getAllErr != nil {
		return nil, s.getAllErr
	}
	var out []*domain.PendingReminder
	for _, reminder := range s.reminders {
		copied := reminder
		out = append(out, &copied)
	}
	return out, nil
}

func (s *fakeStore) GetByRule(_ context.Context, ruleID string) ([]*domain.PendingReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PendingReminder
	for _, reminder := range s.reminders {
		if reminder.RuleID == ruleID {
			copied := reminder
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminders, id)
	return nil
}

func (s *fakeStore) DeleteByRule(_ context.Context, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, reminder := range s.reminders {
		if reminder.RuleID == ruleID {
			delete(s.reminders, id)
		}
	}
	return nil
}

func (s *fakeStore) stored(id string) (domain.PendingReminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder, ok := s.reminders[id]
	return reminder, ok
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reminders)
}

type fakeSurface struct {
	mu         sync.Mutex
	displays   []string
	dismissals []string
	displayErr error
}

func (f *fakeSurface) Display(_ context.Context, reminder *domain.PendingReminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displayErr != nil {
		return f.displayErr
	}
	f.displays = append(f.displays, reminder.ID)
	return nil
}

func (f *fakeSurface) Dismiss(_ context.Context, dedupTag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissals = append(f.dismissals, dedupTag)
	return nil
}

func (f *fakeSurface) displayCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.displays)
}

func (f *fakeSurface) setDisplayErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displayErr = err
}

type takenCall struct {
	ruleID string
	late   bool
}

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules []domain.MedicationRule
	taken []takenCall
}

func (f *fakeRuleRepo) GetActiveRules(_ context.Context, _ time.Time) ([]domain.MedicationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.MedicationRule(nil), f.rules...), nil
}

func (f *fakeRuleRepo) MarkDoseTaken(_ context.Context, ruleID string, _ time.Time, _ time.Time, late bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taken = append(f.taken, takenCall{ruleID: ruleID, late: late})
	return nil
}

type fakeTimer struct {
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves the clock forward and fires every due timer.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.deadline.After(c.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
}

// jump moves the clock forward without firing timers, simulating lost
// wakeups.
func (c *fakeClock) jump(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) activeTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}
	return count
}

func testOptions() Options {
	return Options{
		SweepInterval:  time.Minute,
		SweepTolerance: 30 * time.Second,
		Staleness:      time.Hour,
		ArmingHorizon:  24 * time.Hour,
		Snooze:         10 * time.Minute,
		RuleRefresh:    15 * time.Minute,
	}
}

func testRule() *domain.MedicationRule {
	start, _ := domain.ParseTimeOfDay("08:00")
	end, _ := domain.ParseTimeOfDay("20:00")
	return &domain.MedicationRule{
		ID:          "rule-1",
		Name:        "Amoxicillin",
		Dosage:      "500mg",
		DosesPerDay: 3,
		WindowStart: start,
		WindowEnd:   end,
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}
}

func newTestEngine(store *fakeStore, surface *fakeSurface, ruleRepo *fakeRuleRepo, clock Clock) *Engine {
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

func TestAdmitRuleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	admitted, err := eng.AdmitRule(ctx, rule, date)
	if err != nil {
		t.Fatalf("AdmitRule() error = %v", err)
	}
	if admitted != 3 {
		t.Errorf("AdmitRule() admitted = %d, want 3", admitted)
	}

	admitted, err = eng.AdmitRule(ctx, rule, date)
	if err != nil {
		t.Fatalf("AdmitRule() second call error = %v", err)
	}
	if admitted != 3 {
		t.Errorf("AdmitRule() second call admitted = %d, want 3", admitted)
	}

	if got := store.count(); got != 3 {
		t.Errorf("store holds %d reminders after duplicate admission, want 3", got)
	}
	if got := clock.activeTimers(); got != 3 {
		t.Errorf("engine holds %d timers after duplicate admission, want 3", got)
	}
}

func TestTimerDeliversAtTargetTime(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	if _, err := eng.AdmitRule(ctx, rule, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("AdmitRule() error = %v", err)
	}

	clock.Advance(time.Hour)

	if got := surface.displayCount(); got != 1 {
		t.Fatalf("displayed %d alerts after first target, want 1", got)
	}

	stored, ok := store.stored("rule-1-08:00-2026-03-05")
	if !ok {
		t.Fatal("delivered reminder missing from store")
	}
	if stored.State != domain.StateDelivered {
		t.Errorf("stored state = %s, want %s", stored.State, domain.StateDelivered)
	}
}

func TestDeliveryHappensAtMostOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	if _, err := eng.AdmitRule(ctx, rule, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("AdmitRule() error = %v", err)
	}

	// Sweep at the due instant claims and delivers.
	clock.jump(time.Hour)
	eng.Sweep(ctx)

	if got := surface.displayCount(); got != 1 {
		t.Fatalf("displayed %d alerts after sweep, want 1", got)
	}

	// The timer for the same reminder was stopped by the sweep delivery.
	clock.Advance(0)
	eng.Sweep(ctx)

	if got := surface.displayCount(); got != 1 {
		t.Errorf("displayed %d alerts after timer and second sweep, want 1", got)
	}
}

func TestSweepExpiresStaleReminder(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	dose := domain.NewDoseInstant("rule-1", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), mustTimeOfDay(t, "08:00"))
	if err := eng.Admit(ctx, rule, dose); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	// Move well past the staleness threshold without firing the timer.
	clock.jump(4 * time.Hour)
	eng.Sweep(ctx)

	if got := surface.displayCount(); got != 0 {
		t.Errorf("displayed %d alerts for stale reminder, want 0", got)
	}
	if got := store.count(); got != 0 {
		t.Errorf("store holds %d reminders after expiry, want 0", got)
	}
}

func TestRestoreRearmsAndExpires(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	now := time.Date(2026, 3, 5, 13, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)

	rule := testRule()
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	future := domain.NewDoseReminder(rule, domain.NewDoseInstant("rule-1", date, mustTimeOfDay(t, "20:00")), now)
	stale := domain.NewDoseReminder(rule, domain.NewDoseInstant("rule-1", date, mustTimeOfDay(t, "08:00")), now)
	due := domain.NewDoseReminder(rule, domain.NewDoseInstant("rule-1", date, mustTimeOfDay(t, "13:00")), now)
	for _, reminder := range []*domain.PendingReminder{future, stale, due} {
		if err := store.Put(ctx, reminder); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)
	if err := eng.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if got := surface.displayCount(); got != 1 {
		t.Errorf("displayed %d alerts on restore, want 1 (the due reminder)", got)
	}
	if got := clock.activeTimers(); got != 1 {
		t.Errorf("armed %d timers on restore, want 1 (the future reminder)", got)
	}
	if _, ok := store.stored(stale.ID); ok {
		t.Error("stale reminder survived restore, want expired and removed")
	}

	// The re-armed future reminder still fires.
	clock.Advance(7 * time.Hour)
	if got := surface.displayCount(); got != 2 {
		t.Errorf("displayed %d alerts after advancing to the future target, want 2", got)
	}
}

func TestCancelRuleWithdrawsAllReminders(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	if _, err := eng.AdmitRule(ctx, rule, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("AdmitRule() error = %v", err)
	}

	if err := eng.CancelRule(ctx, "rule-1"); err != nil {
		t.Fatalf("CancelRule() error = %v", err)
	}

	if got := store.count(); got != 0 {
		t.Errorf("store holds %d reminders after cancel, want 0", got)
	}
	if got := clock.activeTimers(); got != 0 {
		t.Errorf("engine holds %d timers after cancel, want 0", got)
	}

	clock.Advance(24 * time.Hour)
	if got := surface.displayCount(); got != 0 {
		t.Errorf("displayed %d alerts after cancel, want 0", got)
	}
}

func TestFailedDisplayIsRetriedBySweep(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	dose := domain.NewDoseInstant("rule-1", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), mustTimeOfDay(t, "08:00"))
	if err := eng.Admit(ctx, rule, dose); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	surface.setDisplayErr(errors.New("surface unavailable"))
	clock.Advance(time.Hour)

	if got := surface.displayCount(); got != 0 {
		t.Fatalf("displayed %d alerts while surface failing, want 0", got)
	}

	surface.setDisplayErr(nil)
	eng.Sweep(ctx)

	if got := surface.displayCount(); got != 1 {
		t.Errorf("displayed %d alerts after surface recovered, want 1", got)
	}
}

func TestPermissionDeniedHoldsDeliveries(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	dose := domain.NewDoseInstant("rule-1", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), mustTimeOfDay(t, "08:00"))
	if err := eng.Admit(ctx, rule, dose); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	eng.SetPermission(false)
	clock.Advance(time.Hour)
	eng.Sweep(ctx)

	if got := surface.displayCount(); got != 0 {
		t.Fatalf("displayed %d alerts while permission denied, want 0", got)
	}

	// Admission is a no-op while denied: nothing is queued invisibly.
	later := domain.NewDoseInstant("rule-1", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), mustTimeOfDay(t, "14:00"))
	if err := eng.Admit(ctx, rule, later); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if got := store.count(); got != 1 {
		t.Fatalf("stored %d reminders while permission denied, want 1", got)
	}

	eng.SetPermission(true)
	eng.Sweep(ctx)

	if got := surface.displayCount(); got != 1 {
		t.Errorf("displayed %d alerts after permission granted, want 1", got)
	}
}

func TestSnoozeRetargetsDeliveredReminder(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	dose := domain.NewDoseInstant("rule-1", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), mustTimeOfDay(t, "08:00"))
	if err := eng.Admit(ctx, rule, dose); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	clock.Advance(time.Hour)
	if got := surface.displayCount(); got != 1 {
		t.Fatalf("displayed %d alerts, want 1", got)
	}

	if err := eng.HandleInteraction(ctx, dose.ReminderID(), ActionSnooze); err != nil {
		t.Fatalf("HandleInteraction(snooze) error = %v", err)
	}

	stored, ok := store.stored(dose.ReminderID())
	if !ok {
		t.Fatal("snoozed reminder missing from store")
	}
	if stored.State != domain.StateScheduled {
		t.Errorf("snoozed state = %s, want %s", stored.State, domain.StateScheduled)
	}
	wantTarget := time.Date(2026, 3, 5, 8, 10, 0, 0, time.UTC)
	if !stored.TargetTime.Equal(wantTarget) {
		t.Errorf("snoozed target = %v, want %v", stored.TargetTime, wantTarget)
	}

	clock.Advance(10 * time.Minute)
	if got := surface.displayCount(); got != 2 {
		t.Errorf("displayed %d alerts after snooze elapsed, want 2", got)
	}
}

func TestTakenLateRecalculatesRemainingDoses(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	ruleRepo := &fakeRuleRepo{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, ruleRepo, clock)

	rule := testRule()
	if _, err := eng.AdmitRule(ctx, rule, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("AdmitRule() error = %v", err)
	}

	// First dose fires at 08:00; the user takes it at 08:45.
	clock.Advance(time.Hour)
	clock.jump(45 * time.Minute)

	if err := eng.HandleInteraction(ctx, "rule-1-08:00-2026-03-05", ActionTakenLate); err != nil {
		t.Fatalf("HandleInteraction(taken_late) error = %v", err)
	}

	if len(ruleRepo.taken) != 1 || !ruleRepo.taken[0].late {
		t.Fatalf("MarkDoseTaken calls = %+v, want one late call", ruleRepo.taken)
	}

	// 08:45 to 20:00 leaves 11h15m for the 2 remaining doses: 5h37m30s
	// spacing, truncated to the minute.
	if _, ok := store.stored("rule-1-14:00-2026-03-05"); ok {
		t.Error("stock 14:00 reminder survived recalculation")
	}
	if _, ok := store.stored("rule-1-14:22-2026-03-05"); !ok {
		t.Error("recalculated 14:22 reminder missing from store")
	}
	if _, ok := store.stored("rule-1-20:00-2026-03-05"); !ok {
		t.Error("recalculated 20:00 reminder missing from store")
	}
}

func TestStoreFailureDegradesButStillDelivers(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.putErr = errors.New("connection refused")
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	dose := domain.NewDoseInstant("rule-1", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), mustTimeOfDay(t, "08:00"))
	if err := eng.Admit(ctx, rule, dose); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	if !eng.Degraded() {
		t.Error("engine not degraded after store failure")
	}

	clock.Advance(time.Hour)
	if got := surface.displayCount(); got != 1 {
		t.Errorf("displayed %d alerts while degraded, want 1", got)
	}
}

func TestHandleInteractionUnknownAction(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	surface := &fakeSurface{}
	clock := newFakeClock(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))
	eng := newTestEngine(store, surface, &fakeRuleRepo{}, clock)

	rule := testRule()
	dose := domain.NewDoseInstant("rule-1", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), mustTimeOfDay(t, "08:00"))
	if err := eng.Admit(ctx, rule, dose); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	if err := eng.HandleInteraction(ctx, dose.ReminderID(), "shrug"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("HandleInteraction(shrug) error = %v, want ErrUnknownAction", err)
	}
	if err := eng.HandleInteraction(ctx, "missing", ActionTaken); !errors.Is(err, domain.ErrReminderNotFound) {
		t.Errorf("HandleInteraction(missing) error = %v, want ErrReminderNotFound", err)
	}
}

func mustTimeOfDay(t *testing.T, s string) domain.TimeOfDay {
	t.Helper()
	tod, err := domain.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q) error = %v", s, err)
	}
	return tod
}
