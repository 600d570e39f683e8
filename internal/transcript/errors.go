package transcript

import "errors"

// ErrAggregationInvariant indicates chunks were handed to Merge out of window
// order, with gaps, or not at all.
var ErrAggregationInvariant = errors.New("aggregation invariant violated")
