package media

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput

// FormatFFmpegTime exports formatFFmpegTime for testing.
var FormatFFmpegTime = formatFFmpegTime

// ChunkEncodingArgs exports chunkEncodingArgs for testing.
var ChunkEncodingArgs = chunkEncodingArgs

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter

// WithValidatorFileStatter replaces the statter of a Validator for testing.
func WithValidatorFileStatter(v *Validator, s fileStatter) *Validator {
	v.statter = s
	return v
}
