package media

import (
	"fmt"
	"math"

	"github.com/alnah/go-scribe/internal/format"
)

// Window is a contiguous [Start, End) range of the original media, in seconds.
type Window struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the nominal length of the window.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// String returns a human-readable representation for logging.
func (w Window) String() string {
	return fmt.Sprintf("window %d: %s-%s", w.Index, format.Seconds(w.Start), format.Seconds(w.End))
}

// ChunkArtifact is a window materialized as its own media file.
type ChunkArtifact struct {
	Window Window `json:"window"`
	Path   string `json:"path"`
}

// Plan splits total seconds into windows of at most maxWindow seconds.
//
// Media no longer than maxWindow yields the single window [0, total).
// Otherwise there are ceil(total/maxWindow) windows of maxWindow seconds, the
// last one truncated to the remainder. Windows are contiguous, start at 0 and
// end exactly at total; none has zero length.
func Plan(total, maxWindow float64) ([]Window, error) {
	if !validSeconds(total) || !validSeconds(maxWindow) {
		return nil, fmt.Errorf("%w: total=%v max=%v", ErrInvalidPlan, total, maxWindow)
	}

	if total <= maxWindow {
		return []Window{{Index: 0, Start: 0, End: total}}, nil
	}

	n := int(math.Ceil(total / maxWindow))
	// Division rounding can be off by one near exact multiples.
	for float64(n)*maxWindow < total {
		n++
	}
	for n > 1 && float64(n-1)*maxWindow >= total {
		n--
	}

	windows := make([]Window, n)
	for i := range n {
		start := float64(i) * maxWindow
		end := float64(i+1) * maxWindow
		if i == n-1 {
			end = total
		}
		windows[i] = Window{Index: i, Start: start, End: end}
	}
	return windows, nil
}

func validSeconds(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
