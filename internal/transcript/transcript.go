// Package transcript defines the normalized transcription result and merges
// per-window results into one transcript of the original media.
package transcript

import (
	"github.com/alnah/go-scribe/internal/media"
)

// Segment is a timed span of text, in seconds.
// Offsets are relative to the audio the provider was given until Merge
// shifts them onto the original media.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the normalized result for one unit of audio.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	TaskID   string    `json:"task_id,omitempty"`
}

// End returns the end of the last segment, or 0 without segments.
func (t Transcript) End() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Chunk pairs a window with the transcript obtained for it.
type Chunk struct {
	Window     media.Window `json:"window"`
	Transcript Transcript   `json:"transcript"`
}
