package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/infra/alertsurface"
	"github.com/medplan/reminder-engine/internal/infra/medmgmt"
	"github.com/medplan/reminder-engine/internal/observability/metrics"
	"github.com/medplan/reminder-engine/internal/observability/tracing"
	"github.com/medplan/reminder-engine/internal/service/materialize"
	"github.com/medplan/reminder-engine/internal/service/recalc"
)

// Engine owns the pending reminder set. Every state transition goes through
// its mutex, so a reminder leaves the scheduled state exactly once no matter
// how many timers and sweeps race for it.
type Engine struct {
	store        domain.ReminderStore
	surface      alertsurface.AlertSurface
	ruleRepo     medmgmt.MedicationRuleRepository
	materializer *materialize.Materializer
	recalculator *recalc.Recalculator
	recorder     domain.DeliveryRecorder
	metrics      *metrics.EngineMetrics
	clock        Clock
	opts         Options

	mu         sync.Mutex
	pending    map[string]*domain.PendingReminder
	timers     map[string]Timer
	delivering map[string]struct{}
	rules      map[string]domain.MedicationRule

	permissionGranted bool
	denialLogged      bool
	degraded          bool
	running           bool
}

func New(
	store domain.ReminderStore,
	surface alertsurface.AlertSurface,
	ruleRepo medmgmt.MedicationRuleRepository,
	materializer *materialize.Materializer,
	recalculator *recalc.Recalculator,
	recorder domain.DeliveryRecorder,
	engineMetrics *metrics.EngineMetrics,
	clock Clock,
	opts Options,
) *Engine {
	if clock == nil {
		clock = NewRealClock()
	}
	return &Engine{
		store:             store,
		surface:           surface,
		ruleRepo:          ruleRepo,
		materializer:      materializer,
		recalculator:      recalculator,
		recorder:          recorder,
		metrics:           engineMetrics,
		clock:             clock,
		opts:              opts,
		pending:           make(map[string]*domain.PendingReminder),
		timers:            make(map[string]Timer),
		delivering:        make(map[string]struct{}),
		rules:             make(map[string]domain.MedicationRule),
		permissionGranted: true,
	}
}

// Run restores persisted reminders and drives the periodic sweep and rule
// refresh until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if err := e.Restore(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to restore reminders, continuing with empty state",
			slog.String("error", err.Error()),
		)
	}

	if err := e.RefreshRules(ctx); err != nil {
		slog.WarnContext(ctx, "initial rule refresh failed",
			slog.String("error", err.Error()),
		)
	}

	sweepTicker := time.NewTicker(e.opts.SweepInterval)
	defer sweepTicker.Stop()
	refreshTicker := time.NewTicker(e.opts.RuleRefresh)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.stopTimers()
			return ctx.Err()
		case <-sweepTicker.C:
			e.Sweep(ctx)
		case <-refreshTicker.C:
			if err := e.RefreshRules(ctx); err != nil {
				slog.WarnContext(ctx, "rule refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Degraded reports whether the persistent store has failed and the engine is
// operating from memory only.
func (e *Engine) Degraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.degraded
}

// SetPermission records whether the alert surface may be used. Deliveries
// are held while permission is denied; the sweep picks them up once it is
// granted.
func (e *Engine) SetPermission(granted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.permissionGranted = granted
	if granted {
		e.denialLogged = false
	}
}

// AdmitRule materializes the rule's doses for the given date and admits each
// future dose.
func (e *Engine) AdmitRule(ctx context.Context, rule *domain.MedicationRule, date time.Time) (int, error) {
	doses, err := e.materializer.Materialize(rule, date)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.rules[rule.ID] = *rule
	granted := e.permissionGranted
	e.mu.Unlock()

	if !granted {
		return 0, nil
	}

	admitted := 0
	now := e.clock.Now()
	for _, dose := range doses {
		if !dose.At().After(now) {
			continue
		}
		if err := e.Admit(ctx, rule, dose); err != nil {
			return admitted, err
		}
		admitted++
	}

	return admitted, nil
}

// Admit registers one dose for delivery. Admission is idempotent per dose:
// a reminder that already exists is left untouched.
func (e *Engine) Admit(ctx context.Context, rule *domain.MedicationRule, dose domain.DoseInstant) error {
	now := e.clock.Now()
	reminder := domain.NewDoseReminder(rule, dose, now)

	e.mu.Lock()
	if !e.permissionGranted {
		// No alerts queued invisibly while the surface is denied.
		if !e.denialLogged {
			e.denialLogged = true
			slog.WarnContext(ctx, "alert permission denied, skipping admission")
		}
		e.mu.Unlock()
		return nil
	}
	if _, exists := e.pending[reminder.ID]; exists {
		e.mu.Unlock()
		return nil
	}
	e.pending[reminder.ID] = reminder
	e.mu.Unlock()

	e.persist(ctx, reminder)
	e.arm(ctx, reminder.ID, now)

	if e.metrics != nil {
		e.metrics.RecordAdmitted(ctx, rule.ID)
	}
	slog.InfoContext(ctx, "reminder admitted",
		slog.String("reminder_id", reminder.ID),
		slog.String("rule_id", rule.ID),
		slog.Time("target_time", reminder.TargetTime),
	)

	return nil
}

// Restore loads persisted reminders after a restart. Future reminders are
// re-armed, stale ones expired, and due ones delivered immediately.
func (e *Engine) Restore(ctx context.Context) error {
	reminders, err := e.store.GetAll(ctx)
	if err != nil {
		e.markDegraded(ctx, err)
		return err
	}

	now := e.clock.Now()
	restored := 0
	for _, reminder := range reminders {
		e.mu.Lock()
		e.pending[reminder.ID] = reminder
		e.mu.Unlock()
		restored++

		if reminder.State != domain.StateScheduled {
			continue
		}
		switch {
		case reminder.StaleAt(now, e.opts.Staleness):
			e.expire(ctx, reminder.ID)
		case reminder.TargetTime.After(now):
			e.arm(ctx, reminder.ID, now)
		default:
			e.deliver(ctx, reminder.ID, TriggerRestore)
		}
	}

	slog.InfoContext(ctx, "reminders restored",
		slog.Int("count", restored),
	)
	return nil
}

// Sweep is the reconciliation pass: it delivers due reminders whose timer was
// lost, expires stale ones, purges finished ones, and arms anything inside
// the horizon that has no timer.
func (e *Engine) Sweep(ctx context.Context) {
	start := e.clock.Now()
	ctx, span := tracing.StartSweepSpan(ctx, start)
	defer span.End()

	type candidate struct {
		id     string
		action string
	}

	e.mu.Lock()
	candidates := make([]candidate, 0, len(e.pending))
	for id, reminder := range e.pending {
		switch reminder.State {
		case domain.StateScheduled:
			switch {
			case reminder.StaleAt(start, e.opts.Staleness):
				candidates = append(candidates, candidate{id, "expire"})
			case reminder.DueAt(start, e.opts.SweepTolerance) || reminder.TargetTime.Before(start):
				candidates = append(candidates, candidate{id, "deliver"})
			default:
				candidates = append(candidates, candidate{id, "arm"})
			}
		case domain.StateDelivered:
			// Displayed alerts the user never acted on are purged once stale.
			if reminder.StaleAt(start, e.opts.Staleness) {
				candidates = append(candidates, candidate{id, "purge"})
			}
		}
	}
	e.mu.Unlock()

	delivered, expired, armed := 0, 0, 0
	for _, c := range candidates {
		switch c.action {
		case "expire":
			e.expire(ctx, c.id)
			expired++
		case "deliver":
			if e.deliver(ctx, c.id, TriggerSweep) {
				delivered++
			}
		case "arm":
			if e.arm(ctx, c.id, start) {
				armed++
			}
		case "purge":
			e.purge(ctx, c.id, false)
		}
	}

	tracing.RecordSweepResult(span, delivered, expired, armed, nil)
	if e.metrics != nil {
		e.metrics.RecordSweepDuration(ctx, e.clock.Now().Sub(start))
	}
}

// RefreshRules reconciles the pending set against the upstream rule list.
// Vanished or deactivated rules lose their reminders; new rules are admitted
// for today.
func (e *Engine) RefreshRules(ctx context.Context) error {
	ctx, span := tracing.StartRuleRefreshSpan(ctx)
	defer span.End()

	now := e.clock.Now()
	rules, err := e.ruleRepo.GetActiveRules(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to fetch active rules: %w", err)
	}

	active := make(map[string]domain.MedicationRule, len(rules))
	for _, rule := range rules {
		active[rule.ID] = rule
	}

	e.mu.Lock()
	var removed []string
	for id := range e.rules {
		if _, ok := active[id]; !ok {
			removed = append(removed, id)
		}
	}
	e.rules = active
	e.mu.Unlock()

	for _, ruleID := range removed {
		if err := e.CancelRule(ctx, ruleID); err != nil {
			slog.WarnContext(ctx, "failed to cancel reminders of removed rule",
				slog.String("rule_id", ruleID),
				slog.String("error", err.Error()),
			)
		}
	}

	// Admit today and tomorrow so the next day's doses are already
	// persisted when their targets enter the arming horizon.
	for _, day := range []time.Time{now, now.AddDate(0, 0, 1)} {
		for _, rule := range rules {
			if _, err := e.AdmitRule(ctx, &rule, day); err != nil {
				slog.WarnContext(ctx, "failed to admit rule",
					slog.String("rule_id", rule.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return nil
}

// CancelReminder withdraws one reminder and dismisses its alert if shown.
func (e *Engine) CancelReminder(ctx context.Context, reminderID string) error {
	e.mu.Lock()
	reminder, ok := e.pending[reminderID]
	if !ok {
		e.mu.Unlock()
		return domain.ErrReminderNotFound
	}
	reminder.MarkCancelled()
	e.stopTimer(reminderID)
	delete(e.pending, reminderID)
	e.mu.Unlock()

	if err := e.store.Delete(ctx, reminderID); err != nil {
		e.markDegraded(ctx, err)
	}
	if err := e.surface.Dismiss(ctx, reminder.Payload.DedupTag); err != nil {
		slog.WarnContext(ctx, "failed to dismiss alert",
			slog.String("reminder_id", reminderID),
			slog.String("error", err.Error()),
		)
	}

	e.record(ctx, reminder, "cancelled", TriggerAPI)
	if e.metrics != nil {
		e.metrics.RecordCancelled(ctx, "api")
	}
	slog.InfoContext(ctx, "reminder cancelled",
		slog.String("reminder_id", reminderID),
	)
	return nil
}

// CancelRule withdraws every reminder of a rule.
func (e *Engine) CancelRule(ctx context.Context, ruleID string) error {
	e.mu.Lock()
	var ids []string
	for id, reminder := range e.pending {
		if reminder.RuleID == ruleID {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		e.pending[id].MarkCancelled()
		e.stopTimer(id)
		delete(e.pending, id)
	}
	delete(e.rules, ruleID)
	e.mu.Unlock()

	if err := e.store.DeleteByRule(ctx, ruleID); err != nil {
		e.markDegraded(ctx, err)
	}

	for _, id := range ids {
		if err := e.surface.Dismiss(ctx, id); err != nil {
			slog.WarnContext(ctx, "failed to dismiss alert",
				slog.String("reminder_id", id),
				slog.String("error", err.Error()),
			)
		}
		if e.metrics != nil {
			e.metrics.RecordCancelled(ctx, "rule")
		}
	}

	slog.InfoContext(ctx, "rule reminders cancelled",
		slog.String("rule_id", ruleID),
		slog.Int("count", len(ids)),
	)
	return nil
}

// HandleInteraction applies a user's response to a displayed alert.
func (e *Engine) HandleInteraction(ctx context.Context, reminderID, action string) error {
	e.mu.Lock()
	reminder, ok := e.pending[reminderID]
	e.mu.Unlock()
	if !ok {
		return domain.ErrReminderNotFound
	}

	now := e.clock.Now()

	switch action {
	case ActionTaken:
		if err := e.ruleRepo.MarkDoseTaken(ctx, reminder.RuleID, reminder.TargetTime, now, false); err != nil {
			slog.WarnContext(ctx, "failed to report dose taken",
				slog.String("reminder_id", reminderID),
				slog.String("error", err.Error()),
			)
		}
		e.purge(ctx, reminderID, true)
		return nil

	case ActionTakenLate:
		if err := e.ruleRepo.MarkDoseTaken(ctx, reminder.RuleID, reminder.TargetTime, now, true); err != nil {
			slog.WarnContext(ctx, "failed to report dose taken",
				slog.String("reminder_id", reminderID),
				slog.String("error", err.Error()),
			)
		}
		e.purge(ctx, reminderID, true)
		return e.recalculateRemaining(ctx, reminder, now)

	case ActionSnooze:
		return e.snooze(ctx, reminder, now)

	case ActionDismiss:
		e.purge(ctx, reminderID, true)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}

// recalculateRemaining respreads the rule's remaining doses of the day after
// a late intake, cancelling the stock schedule and admitting the shifted one.
func (e *Engine) recalculateRemaining(ctx context.Context, taken *domain.PendingReminder, now time.Time) error {
	ctx, span := tracing.StartRecalculationSpan(ctx, taken.RuleID)
	defer span.End()

	e.mu.Lock()
	rule, ok := e.rules[taken.RuleID]
	e.mu.Unlock()
	if !ok {
		return domain.ErrRuleNotFound
	}

	doses, err := e.recalculator.Recalculate(&rule, taken.Dose(), now)
	if err != nil {
		return fmt.Errorf("failed to recalculate doses: %w", err)
	}
	if len(doses) == 0 {
		return nil
	}

	// Withdraw the remaining stock schedule for this dose day before
	// admitting the shifted one.
	dayKey := domain.DateKey(taken.DoseDate)
	e.mu.Lock()
	var stale []string
	for id, reminder := range e.pending {
		if reminder.RuleID == taken.RuleID &&
			reminder.State == domain.StateScheduled &&
			domain.DateKey(reminder.DoseDate) == dayKey {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		e.stopTimer(id)
		delete(e.pending, id)
	}
	e.mu.Unlock()

	for _, id := range stale {
		if err := e.store.Delete(ctx, id); err != nil {
			e.markDegraded(ctx, err)
		}
	}

	// The first recalculated dose is the one just taken.
	for _, dose := range doses[1:] {
		if err := e.Admit(ctx, &rule, dose); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "remaining doses recalculated",
		slog.String("rule_id", taken.RuleID),
		slog.Int("rescheduled", len(doses)-1),
	)
	return nil
}

// snooze pushes a delivered reminder back into the scheduled state a short
// way into the future.
func (e *Engine) snooze(ctx context.Context, reminder *domain.PendingReminder, now time.Time) error {
	e.mu.Lock()
	reminder.State = domain.StateScheduled
	reminder.TargetTime = now.Add(e.opts.Snooze)
	reminder.DeliveredAt = time.Time{}
	e.stopTimer(reminder.ID)
	e.mu.Unlock()

	e.persist(ctx, reminder)
	e.arm(ctx, reminder.ID, now)

	if err := e.surface.Dismiss(ctx, reminder.Payload.DedupTag); err != nil {
		slog.WarnContext(ctx, "failed to dismiss snoozed alert",
			slog.String("reminder_id", reminder.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.InfoContext(ctx, "reminder snoozed",
		slog.String("reminder_id", reminder.ID),
		slog.Time("target_time", reminder.TargetTime),
	)
	return nil
}

// deliver claims the reminder and pushes it to the alert surface. The claim
// set guarantees at most one display per reminder even when a timer and a
// sweep fire together. Returns true when this call performed the delivery.
func (e *Engine) deliver(ctx context.Context, reminderID, trigger string) bool {
	e.mu.Lock()
	reminder, ok := e.pending[reminderID]
	if !ok || reminder.State != domain.StateScheduled {
		e.mu.Unlock()
		return false
	}
	if _, claimed := e.delivering[reminderID]; claimed {
		e.mu.Unlock()
		return false
	}
	if !e.permissionGranted {
		if !e.denialLogged {
			e.denialLogged = true
			slog.WarnContext(ctx, "alert permission denied, holding deliveries")
		}
		e.mu.Unlock()
		return false
	}
	e.delivering[reminderID] = struct{}{}
	e.stopTimer(reminderID)
	snapshot := *reminder
	e.mu.Unlock()

	ctx, span := tracing.StartDeliverySpan(ctx, reminderID, trigger)
	defer span.End()

	now := e.clock.Now()
	latency := now.Sub(snapshot.TargetTime)
	if latency < 0 {
		latency = 0
	}

	err := e.surface.Display(ctx, &snapshot)

	e.mu.Lock()
	delete(e.delivering, reminderID)
	if err != nil {
		// Leave the reminder scheduled so the next sweep retries it.
		e.mu.Unlock()
		tracing.RecordDeliveryResult(span, "failed", latency, err)
		slog.WarnContext(ctx, "alert display failed",
			slog.String("reminder_id", reminderID),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
		return false
	}
	reminder.MarkDelivered(now)
	snapshot = *reminder
	e.mu.Unlock()

	e.persist(ctx, &snapshot)
	e.record(ctx, &snapshot, "delivered", trigger)
	tracing.RecordDeliveryResult(span, "delivered", latency, nil)
	if e.metrics != nil {
		e.metrics.RecordDelivered(ctx, trigger, latency)
	}

	slog.InfoContext(ctx, "reminder delivered",
		slog.String("reminder_id", reminderID),
		slog.String("trigger", trigger),
		slog.Duration("latency", latency),
	)
	return true
}

// expire discards a scheduled reminder whose target time is long past.
func (e *Engine) expire(ctx context.Context, reminderID string) {
	e.mu.Lock()
	reminder, ok := e.pending[reminderID]
	if !ok || reminder.State != domain.StateScheduled {
		e.mu.Unlock()
		return
	}
	reminder.MarkExpired()
	e.stopTimer(reminderID)
	delete(e.pending, reminderID)
	e.mu.Unlock()

	if err := e.store.Delete(ctx, reminderID); err != nil {
		e.markDegraded(ctx, err)
	}

	e.record(ctx, reminder, "expired", TriggerSweep)
	if e.metrics != nil {
		e.metrics.RecordExpired(ctx)
	}
	slog.InfoContext(ctx, "reminder expired",
		slog.String("reminder_id", reminderID),
		slog.Time("target_time", reminder.TargetTime),
	)
}

// purge removes a reminder that has completed its lifecycle.
func (e *Engine) purge(ctx context.Context, reminderID string, dismiss bool) {
	e.mu.Lock()
	reminder, ok := e.pending[reminderID]
	if ok {
		e.stopTimer(reminderID)
		delete(e.pending, reminderID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	if err := e.store.Delete(ctx, reminderID); err != nil {
		e.markDegraded(ctx, err)
	}
	if dismiss {
		if err := e.surface.Dismiss(ctx, reminder.Payload.DedupTag); err != nil {
			slog.WarnContext(ctx, "failed to dismiss alert",
				slog.String("reminder_id", reminderID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// arm sets a timer for a scheduled reminder whose target falls inside the
// arming horizon. Reports whether a timer was set.
func (e *Engine) arm(_ context.Context, reminderID string, now time.Time) bool {
	e.mu.Lock()
	reminder, ok := e.pending[reminderID]
	if !ok || reminder.State != domain.StateScheduled {
		e.mu.Unlock()
		return false
	}
	delay := reminder.TargetTime.Sub(now)
	if delay < 0 || delay > e.opts.ArmingHorizon {
		e.mu.Unlock()
		return false
	}
	if _, armed := e.timers[reminderID]; armed {
		e.mu.Unlock()
		return false
	}
	e.timers[reminderID] = e.clock.AfterFunc(delay, func() {
		e.mu.Lock()
		delete(e.timers, reminderID)
		e.mu.Unlock()
		e.deliver(context.Background(), reminderID, TriggerTimer)
	})
	e.mu.Unlock()
	return true
}

// persist writes the reminder through to the store, degrading to in-memory
// operation when the store is unavailable.
func (e *Engine) persist(ctx context.Context, reminder *domain.PendingReminder) {
	if err := e.store.Put(ctx, reminder); err != nil {
		e.markDegraded(ctx, err)
		return
	}
	e.mu.Lock()
	e.degraded = false
	e.mu.Unlock()
}

func (e *Engine) markDegraded(ctx context.Context, err error) {
	e.mu.Lock()
	already := e.degraded
	e.degraded = true
	e.mu.Unlock()
	if !already {
		slog.ErrorContext(ctx, "reminder store unavailable, operating in-memory",
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) record(ctx context.Context, reminder *domain.PendingReminder, outcome, trigger string) {
	if e.recorder == nil {
		return
	}
	latency := e.clock.Now().Sub(reminder.TargetTime).Seconds()
	if latency < 0 {
		latency = 0
	}
	err := e.recorder.RecordDeliveries(ctx, []domain.DeliveryRecord{{
		ReminderID:  reminder.ID,
		RuleID:      reminder.RuleID,
		TargetTime:  reminder.TargetTime,
		Outcome:     outcome,
		Trigger:     trigger,
		LatencySecs: latency,
	}})
	if err != nil {
		slog.WarnContext(ctx, "failed to record delivery",
			slog.String("reminder_id", reminder.ID),
			slog.String("error", err.Error()),
		)
	}
}

// stopTimer must be called with the mutex held.
func (e *Engine) stopTimer(reminderID string) {
	if timer, ok := e.timers[reminderID]; ok {
		timer.Stop()
		delete(e.timers, reminderID)
	}
}

func (e *Engine) stopTimers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, timer := range e.timers {
		timer.Stop()
		delete(e.timers, id)
	}
}
