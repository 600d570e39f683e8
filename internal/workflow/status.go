package workflow

import "fmt"

// Status is the position of a run in the state machine.
type Status string

// Run statuses.
const (
	StatusAccepted     Status = "accepted"
	StatusProbing      Status = "probing"
	StatusPricing      Status = "pricing"
	StatusChunking     Status = "chunking"
	StatusTranscribing Status = "transcribing"
	StatusAggregating  Status = "aggregating"
	StatusCleaning     Status = "cleaning"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// isValidTransition enforces the allowed run state machine edges.
// Every non-terminal status may move to Cleaning, which is how failures
// reach the janitor before the run ends as Failed.
func isValidTransition(from, to Status) bool {
	if to == StatusCleaning {
		return !from.Terminal()
	}
	switch from {
	case StatusAccepted:
		return to == StatusProbing
	case StatusProbing:
		return to == StatusPricing
	case StatusPricing:
		return to == StatusChunking || to == StatusTranscribing
	case StatusChunking:
		return to == StatusTranscribing
	case StatusTranscribing:
		// Back to Chunking for the next window.
		return to == StatusChunking || to == StatusAggregating
	case StatusAggregating:
		return false
	case StatusCleaning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// transition validates and applies a status change. Moving to the current
// status is a no-op, which lets resumed runs re-enter the step they stopped in.
func (r *Run) transition(to Status) error {
	if r.Status == to {
		return nil
	}
	if !isValidTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	return nil
}
