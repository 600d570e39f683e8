package workflow

// Test hooks for the black-box tests.
var (
	IsValidTransition = isValidTransition
	ReasonFor         = reasonFor
	NewRun            = newRun
)
