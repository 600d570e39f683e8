package settings

import "errors"

// ErrInvalidModel indicates a model tier outside tiny..large.
var ErrInvalidModel = errors.New("invalid model tier")

// ErrInvalidAccuracy indicates an accuracy tier outside low/medium/high.
var ErrInvalidAccuracy = errors.New("invalid accuracy")

// ErrInvalidRequest indicates a request missing its user or media reference,
// or carrying a non-positive duration.
var ErrInvalidRequest = errors.New("invalid transcription request")
