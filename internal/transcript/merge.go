package transcript

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OffsetMode selects how much each chunk advances the timeline.
type OffsetMode int

const (
	// OffsetWindow advances by the chunk's nominal window duration. Segment
	// times land exactly where the window sits in the original media.
	OffsetWindow OffsetMode = iota

	// OffsetLastSegment advances by the end of the chunk's last segment, or
	// by the nominal duration when the chunk has no segments. Trailing
	// silence in a chunk is then not counted.
	OffsetLastSegment
)

type mergeConfig struct {
	mode   OffsetMode
	taskID string
}

// MergeOption configures Merge.
type MergeOption func(*mergeConfig)

// WithOffsetMode selects the offset strategy. Default is OffsetWindow.
func WithOffsetMode(m OffsetMode) MergeOption {
	return func(c *mergeConfig) { c.mode = m }
}

// WithTaskID fixes the task ID instead of generating one.
func WithTaskID(id string) MergeOption {
	return func(c *mergeConfig) { c.taskID = id }
}

// Merge joins per-window transcripts into one transcript of the whole media.
//
// Chunks must be in window order: indexes 0..n-1 with each window starting
// where the previous one ended. Segment times are shifted onto the original
// timeline, texts are joined with single spaces and a fresh task ID is
// assigned.
//
// The language is the first chunk's. When the first chunk reports none, as
// a silent opening window does, the first language reported by a later
// chunk is used instead; the result is empty only when no chunk reports one.
func Merge(chunks []Chunk, opts ...MergeOption) (Transcript, error) {
	cfg := mergeConfig{mode: OffsetWindow}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := checkOrder(chunks); err != nil {
		return Transcript{}, err
	}

	var (
		offset   float64
		texts    []string
		segments []Segment
		language string
	)
	for _, c := range chunks {
		for _, s := range c.Transcript.Segments {
			segments = append(segments, Segment{
				Start: s.Start + offset,
				End:   s.End + offset,
				Text:  s.Text,
			})
		}
		if text := strings.TrimSpace(c.Transcript.Text); text != "" {
			texts = append(texts, text)
		}
		if language == "" {
			language = c.Transcript.Language
		}
		offset += advance(c, cfg.mode)
	}

	taskID := cfg.taskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	if segments == nil {
		segments = []Segment{}
	}
	return Transcript{
		Text:     strings.Join(texts, " "),
		Segments: segments,
		Language: language,
		TaskID:   taskID,
	}, nil
}

func advance(c Chunk, mode OffsetMode) float64 {
	if mode == OffsetLastSegment && len(c.Transcript.Segments) > 0 {
		return c.Transcript.End()
	}
	return c.Window.Duration()
}

func checkOrder(chunks []Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks", ErrAggregationInvariant)
	}
	for i, c := range chunks {
		if c.Window.Index != i {
			return fmt.Errorf("%w: position %d holds window %d", ErrAggregationInvariant, i, c.Window.Index)
		}
		if i == 0 && c.Window.Start != 0 {
			return fmt.Errorf("%w: first window starts at %v", ErrAggregationInvariant, c.Window.Start)
		}
		if i > 0 && c.Window.Start != chunks[i-1].Window.End {
			return fmt.Errorf("%w: window %d starts at %v, previous ended at %v",
				ErrAggregationInvariant, i, c.Window.Start, chunks[i-1].Window.End)
		}
	}
	return nil
}
