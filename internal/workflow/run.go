package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alnah/go-scribe/internal/billing"
	"github.com/alnah/go-scribe/internal/media"
	"github.com/alnah/go-scribe/internal/settings"
	"github.com/alnah/go-scribe/internal/transcribe"
	"github.com/alnah/go-scribe/internal/transcript"
)

// Step names. Window steps are named by WindowStep.
const (
	StepResolve   = "resolve"
	StepValidate  = "validate"
	StepProbe     = "probe"
	StepPrice     = "price"
	StepPlan      = "plan"
	StepAggregate = "aggregate"
	StepCleanup   = "cleanup"
)

// WindowStep names the step transcribing window i.
func WindowStep(i int) string { return fmt.Sprintf("window/%d", i) }

// Reason classifies why a run failed.
type Reason string

// Failure reasons.
const (
	ReasonInvalidRequest    Reason = "invalid_request"
	ReasonMediaNotFound     Reason = "media_not_found"
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonFileTooLarge      Reason = "file_too_large"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonChunkExtraction   Reason = "chunk_extraction_failed"
	ReasonTranscription     Reason = "transcription_failed"
	ReasonAggregation       Reason = "aggregation_invariant"
	ReasonCancelled         Reason = "cancelled"
	ReasonInternal          Reason = "internal"
)

// reasonFor maps an error onto the failure taxonomy.
func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return ReasonCancelled
	case errors.Is(err, settings.ErrInvalidRequest),
		errors.Is(err, settings.ErrInvalidModel),
		errors.Is(err, settings.ErrInvalidAccuracy):
		return ReasonInvalidRequest
	case errors.Is(err, media.ErrMediaNotFound):
		return ReasonMediaNotFound
	case errors.Is(err, media.ErrUnsupportedFormat):
		return ReasonUnsupportedFormat
	case errors.Is(err, media.ErrFileTooLarge):
		return ReasonFileTooLarge
	case errors.Is(err, billing.ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, media.ErrChunkExtractionFailed):
		return ReasonChunkExtraction
	case errors.Is(err, transcribe.ErrTranscriptionFailed):
		return ReasonTranscription
	case errors.Is(err, transcript.ErrAggregationInvariant):
		return ReasonAggregation
	}
	return ReasonInternal
}

// ChunkRecord is the durable state of one window.
type ChunkRecord struct {
	Window     media.Window           `json:"window"`
	Artifact   string                 `json:"artifact,omitempty"` // extracted file awaiting transcription
	Transcript *transcript.Transcript `json:"transcript,omitempty"`
}

// Run is the persisted record of one request. Each step writes its output
// here before it is marked done, so a resumed run skips finished work.
type Run struct {
	ID      string           `json:"id"`
	Request settings.Request `json:"request"`
	Status  Status           `json:"status"`

	FailureReason Reason `json:"failure_reason,omitempty"`
	Error         string `json:"error,omitempty"`

	MediaPath         string                 `json:"media_path,omitempty"`
	Duration          float64                `json:"duration,omitempty"`
	DurationEstimated bool                   `json:"duration_estimated,omitempty"`
	Billing           *billing.Outcome       `json:"billing,omitempty"`
	Refunded          bool                   `json:"refunded,omitempty"`
	Windows           []media.Window         `json:"windows,omitempty"`
	Chunks            []ChunkRecord          `json:"chunks,omitempty"`
	Result            *transcript.Transcript `json:"result,omitempty"`

	// WorkDir holds this run's chunk files. It is the only path the run
	// tracks across restarts; chunks inside it go with it.
	WorkDir string   `json:"work_dir,omitempty"`
	Tracked []string `json:"tracked,omitempty"`

	Steps     map[string]time.Time `json:"steps"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// newRun creates an accepted run.
func newRun(id string, req settings.Request, now time.Time) *Run {
	return &Run{
		ID:        id,
		Request:   req,
		Status:    StatusAccepted,
		Steps:     make(map[string]time.Time),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Done reports whether step has recorded its output.
func (r *Run) Done(step string) bool {
	_, ok := r.Steps[step]
	return ok
}

func (r *Run) markDone(step string, at time.Time) {
	if r.Steps == nil {
		r.Steps = make(map[string]time.Time)
	}
	r.Steps[step] = at
}

// Chunked reports whether the media is split into several windows.
func (r *Run) Chunked() bool {
	return len(r.Windows) > 1
}

// Failed reports whether a failure has been recorded, even if the run is
// still cleaning up.
func (r *Run) Failed() bool {
	return r.FailureReason != ""
}

func (r *Run) fail(err error) {
	if r.Failed() {
		return
	}
	r.FailureReason = reasonFor(err)
	r.Error = err.Error()
}

// transcriptChunks returns the completed windows in index order.
func (r *Run) transcriptChunks() []transcript.Chunk {
	chunks := make([]transcript.Chunk, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		if c.Transcript == nil {
			continue
		}
		chunks = append(chunks, transcript.Chunk{Window: c.Window, Transcript: *c.Transcript})
	}
	return chunks
}
