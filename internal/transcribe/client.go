// Package transcribe sends one audio file to a speech-to-text provider and
// normalizes the answer into a transcript.Transcript.
//
// Each call is a single attempt. Failures are classified into apierr
// sentinels and wrapped in a *FailedError; retrying is the caller's job.
package transcribe

import (
	"context"
	"net/http"

	"github.com/alnah/go-scribe/internal/settings"
	"github.com/alnah/go-scribe/internal/transcript"
)

// MaxRecommendedParallel is the recommended upper limit for concurrent API requests.
// Higher values may trigger rate limiting.
const MaxRecommendedParallel = 10

// Client transcribes one audio file.
type Client interface {
	// Transcribe converts an audio file to a chunk-relative transcript.
	// The TaskID of the result is left empty.
	Transcribe(ctx context.Context, audioPath string, s settings.Settings) (transcript.Transcript, error)
}

// httpDoer abstracts HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Compile-time interface compliance checks.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*HTTPClient)(nil)
)
