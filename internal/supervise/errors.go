package supervise

import (
	"fmt"
	"time"
)

// SpawnError reports a child process that could not be started at all.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TimedOutError reports a bounded wait that expired before its condition
// was observed.
type TimedOutError struct {
	Name    string
	Waiting string
	Timeout time.Duration
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s waiting for %s", e.Name, e.Timeout, e.Waiting)
}

// EarlyExitError reports a child that exited while a readiness wait was
// still in progress.
type EarlyExitError struct {
	Name string
	Err  error
}

func (e *EarlyExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s exited before becoming ready: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s exited before becoming ready", e.Name)
}

func (e *EarlyExitError) Unwrap() error { return e.Err }
