package janitor

import "errors"

// ErrCleanupFailed indicates a tracked file could not be removed.
// It is logged, never returned to the workflow.
var ErrCleanupFailed = errors.New("cleanup failed")
