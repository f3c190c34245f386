package config

import (
	"os"
	"strconv"
	"time"
)

const (
	sweepIntervalSecondsEnv  = "SWEEP_INTERVAL_SECONDS"
	sweepToleranceSecondsEnv = "SWEEP_TOLERANCE_SECONDS"
	stalenessMinutesEnv      = "STALENESS_MINUTES"
	armingHorizonHoursEnv    = "ARMING_HORIZON_HOURS"
	minDoseSpacingMinutesEnv = "MIN_DOSE_SPACING_MINUTES"
	snoozeMinutesEnv         = "SNOOZE_MINUTES"
	ruleRefreshMinutesEnv    = "RULE_REFRESH_MINUTES"

	defaultSweepIntervalSeconds  = 60
	defaultSweepToleranceSeconds = 30
	defaultStalenessMinutes      = 60
	defaultArmingHorizonHours    = 24
	defaultMinDoseSpacingMinutes = 120
	defaultSnoozeMinutes         = 10
	defaultRuleRefreshMinutes    = 15
)

type EngineConfig struct {
	SweepInterval  time.Duration
	SweepTolerance time.Duration
	Staleness      time.Duration
	ArmingHorizon  time.Duration
	MinDoseSpacing time.Duration
	Snooze         time.Duration
	RuleRefresh    time.Duration
}

func LoadEngineConfig() *EngineConfig {
	return &EngineConfig{
		SweepInterval:  time.Duration(positiveIntEnv(sweepIntervalSecondsEnv, defaultSweepIntervalSeconds)) * time.Second,
		SweepTolerance: time.Duration(positiveIntEnv(sweepToleranceSecondsEnv, defaultSweepToleranceSeconds)) * time.Second,
		Staleness:      time.Duration(positiveIntEnv(stalenessMinutesEnv, defaultStalenessMinutes)) * time.Minute,
		ArmingHorizon:  time.Duration(positiveIntEnv(armingHorizonHoursEnv, defaultArmingHorizonHours)) * time.Hour,
		MinDoseSpacing: time.Duration(positiveIntEnv(minDoseSpacingMinutesEnv, defaultMinDoseSpacingMinutes)) * time.Minute,
		Snooze:         time.Duration(positiveIntEnv(snoozeMinutesEnv, defaultSnoozeMinutes)) * time.Minute,
		RuleRefresh:    time.Duration(positiveIntEnv(ruleRefreshMinutesEnv, defaultRuleRefreshMinutes)) * time.Minute,
	}
}

func positiveIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
