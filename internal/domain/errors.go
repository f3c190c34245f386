package domain

import "errors"

var (
	ErrInvalidWindow      = errors.New("window bounds must be within a single day")
	ErrInvalidCount       = errors.New("dose count must be positive")
	ErrReminderNotFound   = errors.New("reminder not found")
	ErrRuleNotFound       = errors.New("medication rule not found")
	ErrAlertSurfaceDenied = errors.New("alert surface permission not granted")
)
