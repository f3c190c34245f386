package engine

import "time"

// Clock abstracts wall time and timer creation so delivery timing is
// testable.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewRealClock returns a Clock backed by the system clock.
func NewRealClock() Clock {
	return realClock{}
}

// Options carries the timing knobs of the engine.
type Options struct {
	SweepInterval  time.Duration
	SweepTolerance time.Duration
	Staleness      time.Duration
	ArmingHorizon  time.Duration
	Snooze         time.Duration
	RuleRefresh    time.Duration
}

// Delivery triggers, recorded with every delivery outcome.
const (
	TriggerTimer   = "timer"
	TriggerSweep   = "sweep"
	TriggerRestore = "restore"
	TriggerAPI     = "api"
)

// User interaction actions accepted by HandleInteraction.
const (
	ActionTaken     = "taken"
	ActionTakenLate = "taken_late"
	ActionSnooze    = "snooze"
	ActionDismiss   = "dismiss"
)
