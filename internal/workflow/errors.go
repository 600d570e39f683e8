package workflow

import (
	"errors"
	"fmt"
)

// ErrRunNotFound indicates no stored run has the given ID.
var ErrRunNotFound = errors.New("run not found")

// ErrRunExists indicates Create was called with an ID already in use.
var ErrRunExists = errors.New("run already exists")

// ErrRunTerminal indicates an attempt to resume a finished run.
var ErrRunTerminal = errors.New("run already finished")

// ErrInvalidTransition indicates a status change the state machine forbids.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrCancelled indicates the run was cancelled before completing.
var ErrCancelled = errors.New("run cancelled")

// ErrRunFailed is returned when resuming a run that had already failed and
// only needed cleaning up.
var ErrRunFailed = errors.New("run failed")

// StepError names the step a failure happened in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ErrInvalidRun indicates a nil run or one without an ID.
var ErrInvalidRun = errors.New("invalid run")

// ErrMissingDependency indicates New was given an incomplete Deps.
var ErrMissingDependency = errors.New("missing dependency")
