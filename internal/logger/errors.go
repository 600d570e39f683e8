package logger

import "errors"

// ErrInvalidLevel indicates a log level other than debug, info, warn or error.
var ErrInvalidLevel = errors.New("invalid log level")

// ErrInvalidFormat indicates a log format other than text or json.
var ErrInvalidFormat = errors.New("invalid log format")
