package media

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alnah/go-scribe/internal/format"
)

// DefaultMaxUploadBytes is the upload limit applied when none is configured.
const DefaultMaxUploadBytes int64 = 100 * 1024 * 1024

// supportedFormats lists containers accepted by whisper-family providers.
var supportedFormats = map[string]bool{
	".flac": true,
	".m4a":  true,
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".oga":  true,
	".ogg":  true,
	".wav":  true,
	".webm": true,
}

// SupportedFormats returns the allowed extensions, sorted, without dots.
func SupportedFormats() []string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return formats
}

// CheckFormat rejects paths whose extension is not on the allow-list.
func CheckFormat(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFormats[ext] {
		return fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, ext, strings.Join(SupportedFormats(), ", "))
	}
	return nil
}

// CheckSize rejects files above maxBytes. A non-positive limit disables the check.
func CheckSize(size, maxBytes int64) error {
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %s exceeds the %s limit",
			ErrFileTooLarge, format.Size(size), format.Size(maxBytes))
	}
	return nil
}

// Validator checks a resolved file before any paid work starts.
type Validator struct {
	maxBytes int64
	statter  fileStatter
}

// NewValidator creates a Validator enforcing maxBytes.
func NewValidator(maxBytes int64) *Validator {
	return &Validator{maxBytes: maxBytes, statter: osFileStatter{}}
}

// Validate checks format first (no I/O), then size.
func (v *Validator) Validate(path string) error {
	if err := CheckFormat(path); err != nil {
		return err
	}
	info, err := v.statter.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMediaNotFound, path)
	}
	return CheckSize(info.Size(), v.maxBytes)
}
