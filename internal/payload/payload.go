// Package payload normalizes provider response bodies whose shape varies by
// provider and model version.
//
// Decode tries each known shape in a fixed order and fails when none
// matches; it never guesses. The recognized shapes, by priority:
//
//	"text"                          ShapeString
//	["text", "more"]                ShapeStringArray
//	{"output": <any shape>}         ShapeOutput
//	{"text": "...", "segments": []} ShapeText
//	{"segments": [...]}             ShapeSegments
//
// DecodeResponse also accepts an unquoted text/plain body as ShapeString.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/alnah/go-scribe/internal/transcript"
)

// maxDepth bounds {"output": ...} nesting.
const maxDepth = 4

// Shape identifies which variant a Value holds.
type Shape int

// Known shapes, in decoding priority order.
const (
	ShapeString Shape = iota + 1
	ShapeStringArray
	ShapeOutput
	ShapeText
	ShapeSegments
)

func (s Shape) String() string {
	switch s {
	case ShapeString:
		return "string"
	case ShapeStringArray:
		return "string-array"
	case ShapeOutput:
		return "output"
	case ShapeText:
		return "text"
	case ShapeSegments:
		return "segments"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// Value is a decoded response. Only the fields of its Shape are set.
type Value struct {
	Shape Shape

	String  string   // ShapeString
	Strings []string // ShapeStringArray
	Output  *Value   // ShapeOutput

	// ShapeText and ShapeSegments.
	Text     string
	Segments []transcript.Segment
	Language string
}

// wireSegment keeps pointers so that missing fields can be told apart from zeros.
type wireSegment struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  *string  `json:"text"`
}

// Decode parses raw into the first matching shape.
func Decode(raw []byte) (Value, error) {
	return decode(raw, 0)
}

// DecodeResponse decodes an HTTP response body. Some whisper-compatible
// servers answer with the bare transcript as text/plain whatever format was
// asked for; such a body is taken as ShapeString when it is not JSON.
func DecodeResponse(raw []byte, contentType string) (Value, error) {
	v, err := Decode(raw)
	if err == nil || !errors.Is(err, ErrUnrecognizedShape) || !isPlainText(contentType) {
		return v, err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" || json.Valid([]byte(text)) {
		return Value{}, err
	}
	return Value{Shape: ShapeString, String: text}, nil
}

func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/plain"
}

func decode(raw []byte, depth int) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, fmt.Errorf("%w: empty body", ErrUnrecognizedShape)
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
		}
		return Value{Shape: ShapeString, String: s}, nil

	case '[':
		var ss []string
		if err := json.Unmarshal(raw, &ss); err != nil {
			return Value{}, fmt.Errorf("%w: array of non-strings", ErrUnrecognizedShape)
		}
		return Value{Shape: ShapeStringArray, Strings: ss}, nil

	case '{':
		return decodeObject(raw, depth)
	}

	return Value{}, fmt.Errorf("%w: body starts with %q", ErrUnrecognizedShape, raw[0])
}

func decodeObject(raw []byte, depth int) (Value, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}

	if out, ok := obj["output"]; ok && !isNull(out) {
		if depth >= maxDepth {
			return Value{}, fmt.Errorf("%w: output nested deeper than %d", ErrUnrecognizedShape, maxDepth)
		}
		inner, err := decode(out, depth+1)
		if err != nil {
			return Value{}, fmt.Errorf("output: %w", err)
		}
		return Value{Shape: ShapeOutput, Output: &inner}, nil
	}

	language := firstString(obj, "language", "detected_language")

	if text, ok := obj["text"]; ok {
		var s string
		if err := json.Unmarshal(text, &s); err != nil {
			return Value{}, fmt.Errorf("%w: text is not a string", ErrUnrecognizedShape)
		}
		segments, err := decodeSegments(obj["segments"])
		if err != nil {
			return Value{}, err
		}
		return Value{Shape: ShapeText, Text: s, Segments: segments, Language: language}, nil
	}

	if segs, ok := obj["segments"]; ok {
		segments, err := decodeSegments(segs)
		if err != nil {
			return Value{}, err
		}
		return Value{Shape: ShapeSegments, Segments: segments, Language: language}, nil
	}

	return Value{}, fmt.Errorf("%w: object has none of output, text, segments", ErrUnrecognizedShape)
}

func decodeSegments(raw json.RawMessage) ([]transcript.Segment, error) {
	if raw == nil || isNull(raw) {
		return nil, nil
	}
	var wire []wireSegment
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSegment, err)
	}

	segments := make([]transcript.Segment, 0, len(wire))
	for i, w := range wire {
		if w.Start == nil || w.End == nil || w.Text == nil {
			return nil, fmt.Errorf("%w: segment %d lacks start, end or text", ErrMalformedSegment, i)
		}
		if *w.Start < 0 || *w.End < *w.Start {
			return nil, fmt.Errorf("%w: segment %d spans [%v, %v)", ErrMalformedSegment, i, *w.Start, *w.End)
		}
		segments = append(segments, transcript.Segment{Start: *w.Start, End: *w.End, Text: *w.Text})
	}
	return segments, nil
}

// Transcript converts the value into a chunk-level transcript.
func (v Value) Transcript() (transcript.Transcript, error) {
	switch v.Shape {
	case ShapeString:
		return transcript.Transcript{Text: strings.TrimSpace(v.String), Segments: []transcript.Segment{}}, nil
	case ShapeStringArray:
		return transcript.Transcript{Text: joinTrimmed(v.Strings), Segments: []transcript.Segment{}}, nil
	case ShapeOutput:
		if v.Output == nil {
			return transcript.Transcript{}, fmt.Errorf("%w: empty output", ErrUnrecognizedShape)
		}
		return v.Output.Transcript()
	case ShapeText, ShapeSegments:
		text := strings.TrimSpace(v.Text)
		if v.Shape == ShapeSegments {
			parts := make([]string, len(v.Segments))
			for i, s := range v.Segments {
				parts[i] = s.Text
			}
			text = joinTrimmed(parts)
		}
		segments := v.Segments
		if segments == nil {
			segments = []transcript.Segment{}
		}
		return transcript.Transcript{Text: text, Segments: segments, Language: v.Language}, nil
	}
	return transcript.Transcript{}, fmt.Errorf("%w: %s", ErrUnrecognizedShape, v.Shape)
}

func joinTrimmed(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func firstString(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		var s string
		if raw, ok := obj[k]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
