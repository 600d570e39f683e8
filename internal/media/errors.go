package media

import "errors"

// ErrUnsupportedFormat indicates the file extension is not on the allow-list.
var ErrUnsupportedFormat = errors.New("unsupported media format")

// ErrFileTooLarge indicates the file exceeds the upload limit.
var ErrFileTooLarge = errors.New("media file too large")

// ErrMediaNotFound indicates a media reference does not resolve to a readable file.
var ErrMediaNotFound = errors.New("media not found")

// ErrProbeFailed indicates the duration could not be read. Prober never
// returns it; it is logged and the fallback duration is used.
var ErrProbeFailed = errors.New("duration probe failed")

// ErrChunkExtractionFailed indicates FFmpeg could not cut a window.
var ErrChunkExtractionFailed = errors.New("chunk extraction failed")

// ErrInvalidPlan indicates non-positive or non-finite planning inputs.
var ErrInvalidPlan = errors.New("invalid window plan input")
