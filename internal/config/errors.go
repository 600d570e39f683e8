package config

import "errors"

// ErrUnknownKey indicates a key that is not a recognized setting.
var ErrUnknownKey = errors.New("unknown config key")

// ErrInvalidValue indicates a value that does not parse for its key.
var ErrInvalidValue = errors.New("invalid config value")

// ErrNotDirectory indicates the output path exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrNotWritable indicates the output directory cannot be written to.
var ErrNotWritable = errors.New("directory is not writable")

// ErrInvalidSyntax indicates a config file line that is not key=value.
var ErrInvalidSyntax = errors.New("invalid config syntax")
