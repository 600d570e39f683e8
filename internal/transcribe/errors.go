package transcribe

import (
	"errors"
	"fmt"

	"github.com/alnah/go-scribe/internal/media"
)

// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

// ErrTranscriptionFailed indicates the provider could not transcribe a file.
var ErrTranscriptionFailed = errors.New("transcription failed")

// FailedError carries the window a transcription failed on, if any, and the
// classified cause. It matches ErrTranscriptionFailed and unwraps to the
// cause, so apierr sentinels stay visible to retry decisions.
type FailedError struct {
	Window *media.Window // nil when the whole file was sent
	Err    error
}

func (e *FailedError) Error() string {
	if e.Window != nil {
		return fmt.Sprintf("transcription failed (%s): %v", e.Window, e.Err)
	}
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

// Is reports whether target is ErrTranscriptionFailed.
func (e *FailedError) Is(target error) bool {
	return target == ErrTranscriptionFailed
}

func (e *FailedError) Unwrap() error { return e.Err }

// AtWindow attaches w to err. A FailedError in the chain is copied with its
// Window set; any other error is wrapped in a new FailedError.
func AtWindow(err error, w media.Window) error {
	if err == nil {
		return nil
	}
	var fe *FailedError
	if errors.As(err, &fe) {
		cp := *fe
		cp.Window = &w
		return &cp
	}
	return &FailedError{Window: &w, Err: err}
}

func failed(err error) error {
	return &FailedError{Err: err}
}
