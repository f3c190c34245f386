package engine

import "errors"

var (
	ErrUnknownAction = errors.New("unknown interaction action")
	ErrNotRunning    = errors.New("engine is not running")
)
