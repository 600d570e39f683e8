package payload

import "errors"

// ErrUnrecognizedShape indicates a body matching none of the known shapes.
var ErrUnrecognizedShape = errors.New("unrecognized response shape")

// ErrMalformedSegment indicates a segment without numeric start/end and
// string text, or one that ends before it starts.
var ErrMalformedSegment = errors.New("malformed segment")

// ErrNoURL indicates no URL could be located in a response.
var ErrNoURL = errors.New("no url in response")
