package payload_test

// Notes:
// - Shapes are exercised through raw JSON bodies, the way providers send them.
// - Priority matters: an object with both output and text decodes as output.

import (
	"errors"
	"testing"

	"github.com/alnah/go-scribe/internal/payload"
)

// ---------------------------------------------------------------------------
// TestDecode - shape detection
// ---------------------------------------------------------------------------

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		shape payload.Shape
	}{
		{"bare string", `"hello"`, payload.ShapeString},
		{"string array", `["a", "b"]`, payload.ShapeStringArray},
		{"empty array", `[]`, payload.ShapeStringArray},
		{"output wrapper", `{"output": "hello"}`, payload.ShapeOutput},
		{"output wins over text", `{"output": ["x"], "text": "y"}`, payload.ShapeOutput},
		{"text object", `{"text": "hi", "language": "en"}`, payload.ShapeText},
		{"segments object", `{"segments": [{"start": 0, "end": 1, "text": "hi"}]}`, payload.ShapeSegments},
		{"null output falls through", `{"output": null, "text": "hi"}`, payload.ShapeText},
		{"surrounding whitespace", "  \n\"hi\"\n", payload.ShapeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := payload.Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode(%s) unexpected error: %v", tt.body, err)
			}
			if v.Shape != tt.shape {
				t.Errorf("Decode(%s).Shape = %s, want %s", tt.body, v.Shape, tt.shape)
			}
		})
	}
}

func TestDecode_Unrecognized(t *testing.T) {
	t.Parallel()

	bodies := []string{
		``,
		`42`,
		`true`,
		`null`,
		`{}`,
		`{"foo": "bar"}`,
		`[1, 2]`,
		`{"text": 12}`,
		`{"output": 12}`,
		`{"output": {"output": {"output": {"output": {"output": "deep"}}}}}`,
		`{not json`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			t.Parallel()
			_, err := payload.Decode([]byte(body))
			if !errors.Is(err, payload.ErrUnrecognizedShape) {
				t.Errorf("Decode(%q) error = %v, want ErrUnrecognizedShape", body, err)
			}
		})
	}
}

func TestDecodeResponse_PlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		contentType string
		want        string
		wantErr     bool
	}{
		{"unquoted text", "hello there\n", "text/plain; charset=utf-8", "hello there", false},
		{"bracketed sound tag", "[Music] hello", "text/plain", "[Music] hello", false},
		{"quoted text still json", `"hello"`, "text/plain", "hello", false},
		{"unquoted text as json", "hello there", "application/json", "", true},
		{"no content type", "hello there", "", "", true},
		{"unknown json object", `{"status": "done"}`, "text/plain", "", true},
		{"empty body", "  ", "text/plain", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := payload.DecodeResponse([]byte(tt.body), tt.contentType)
			if tt.wantErr {
				if !errors.Is(err, payload.ErrUnrecognizedShape) {
					t.Errorf("DecodeResponse(%q) error = %v, want ErrUnrecognizedShape", tt.body, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeResponse(%q) unexpected error: %v", tt.body, err)
			}
			if v.Shape != payload.ShapeString || v.String != tt.want {
				t.Errorf("DecodeResponse(%q) = %+v, want string %q", tt.body, v, tt.want)
			}
		})
	}
}

func TestDecode_MalformedSegment(t *testing.T) {
	t.Parallel()

	bodies := []string{
		`{"segments": [{"start": 0, "text": "no end"}]}`,
		`{"segments": [{"start": 0, "end": 1}]}`,
		`{"segments": [{"start": 2, "end": 1, "text": "backwards"}]}`,
		`{"segments": [{"start": -1, "end": 1, "text": "negative"}]}`,
		`{"segments": [{"start": "0", "end": 1, "text": "string start"}]}`,
		`{"text": "x", "segments": "nope"}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			t.Parallel()
			_, err := payload.Decode([]byte(body))
			if !errors.Is(err, payload.ErrMalformedSegment) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformedSegment", body, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestValue_Transcript - conversion to chunk transcripts
// ---------------------------------------------------------------------------

func TestValue_Transcript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantText string
		wantLang string
		wantSegs int
	}{
		{"bare string", `" hello "`, "hello", "", 0},
		{"array joined", `["one", " ", "two"]`, "one two", "", 0},
		{"nested output", `{"output": {"text": "inner", "language": "fr"}}`, "inner", "fr", 0},
		{"detected language", `{"text": "hi", "detected_language": "de"}`, "hi", "de", 0},
		{
			"text with segments",
			`{"text": "a b", "segments": [{"start": 0, "end": 1, "text": "a"}, {"start": 1, "end": 1, "text": "b"}]}`,
			"a b", "", 2,
		},
		{
			"segments only",
			`{"segments": [{"start": 0, "end": 1.5, "text": " first "}, {"start": 1.5, "end": 3, "text": "second"}]}`,
			"first second", "", 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := payload.Decode([]byte(tt.body))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tr, err := v.Transcript()
			if err != nil {
				t.Fatalf("Transcript: %v", err)
			}
			if tr.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", tr.Text, tt.wantText)
			}
			if tr.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", tr.Language, tt.wantLang)
			}
			if len(tr.Segments) != tt.wantSegs {
				t.Errorf("len(Segments) = %d, want %d", len(tr.Segments), tt.wantSegs)
			}
			if tr.Segments == nil {
				t.Error("Segments is nil, want empty slice")
			}
		})
	}
}

func TestValue_Transcript_ZeroValue(t *testing.T) {
	t.Parallel()

	_, err := payload.Value{}.Transcript()
	if !errors.Is(err, payload.ErrUnrecognizedShape) {
		t.Errorf("Transcript() error = %v, want ErrUnrecognizedShape", err)
	}
}

// ---------------------------------------------------------------------------
// TestExtractURL - URL lookup across generation response shapes
// ---------------------------------------------------------------------------

func TestExtractURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bare string", `"https://a/x.png"`, "https://a/x.png"},
		{"array", `["https://a/1", "https://a/2"]`, "https://a/1"},
		{"output string", `{"output": "https://a/o"}`, "https://a/o"},
		{"output array", `{"output": ["https://a/o1"]}`, "https://a/o1"},
		{"url key", `{"url": "https://a/u"}`, "https://a/u"},
		{"image key", `{"image": "https://a/i"}`, "https://a/i"},
		{"result nested", `{"result": {"url": "https://a/r"}}`, "https://a/r"},
		{"prediction nested array", `{"prediction": {"output": ["https://a/p"]}}`, "https://a/p"},
		{"empty output skipped", `{"output": "", "url": "https://a/u"}`, "https://a/u"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := payload.ExtractURL([]byte(tt.body))
			if err != nil {
				t.Fatalf("ExtractURL(%s) unexpected error: %v", tt.body, err)
			}
			if got != tt.want {
				t.Errorf("ExtractURL(%s) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestExtractURL_NotFound(t *testing.T) {
	t.Parallel()

	bodies := []string{
		`{}`,
		`[]`,
		`""`,
		`{"status": "succeeded"}`,
		`{"output": [42]}`,
		`not json`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			t.Parallel()
			_, err := payload.ExtractURL([]byte(body))
			if !errors.Is(err, payload.ErrNoURL) {
				t.Errorf("ExtractURL(%q) error = %v, want ErrNoURL", body, err)
			}
		})
	}
}
