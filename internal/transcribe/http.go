package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alnah/go-scribe/internal/apierr"
	"github.com/alnah/go-scribe/internal/lang"
	"github.com/alnah/go-scribe/internal/payload"
	"github.com/alnah/go-scribe/internal/settings"
	"github.com/alnah/go-scribe/internal/transcript"
)

// maxResponseBytes caps how much of a provider body is read.
const maxResponseBytes = 16 << 20

// HTTPClient posts audio to a whisper-compatible HTTP endpoint, such as a
// self-hosted server. Response bodies go through payload.DecodeResponse, so
// any of the known shapes is accepted.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient httpDoer
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPClient) { c.apiKey = key }
}

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(d httpDoer) HTTPOption {
	return func(c *HTTPClient) { c.httpClient = d }
}

// NewHTTPClient creates an HTTPClient posting to endpoint.
func NewHTTPClient(endpoint string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe implements Client.
func (c *HTTPClient) Transcribe(ctx context.Context, audioPath string, s settings.Settings) (transcript.Transcript, error) {
	body, contentType, err := buildForm(audioPath, s)
	if err != nil {
		return transcript.Transcript{}, failed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return transcript.Transcript{}, failed(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transcript.Transcript{}, failed(apierr.FromTransport(err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transcript.Transcript{}, failed(fmt.Errorf("failed to read response: %w", apierr.FromTransport(err)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transcript.Transcript{}, failed(parseHTTPError(resp.StatusCode, respBody))
	}

	v, err := payload.DecodeResponse(respBody, resp.Header.Get("Content-Type"))
	if err != nil {
		return transcript.Transcript{}, failed(err)
	}
	t, err := v.Transcript()
	if err != nil {
		return transcript.Transcript{}, failed(err)
	}
	return t, nil
}

// buildForm writes the multipart request: file, model, temperature,
// response_format and, unless auto-detecting, language.
func buildForm(audioPath string, s settings.Settings) (io.Reader, string, error) {
	file, err := os.Open(audioPath) // #nosec G304 -- audioPath is resolved or extracted by this module
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to copy file to form: %w", err)
	}

	fields := [][2]string{
		{"model", string(s.Model)},
		{"temperature", strconv.FormatFloat(float64(s.Accuracy.Temperature()), 'f', -1, 32)},
		{"response_format", "verbose_json"},
	}
	if code := lang.BaseCode(s.Language); code != "" {
		fields = append(fields, [2]string{"language", code})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write %s field: %w", f[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

// errorResponse is the OpenAI-style error envelope most servers imitate.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// parseHTTPError turns a non-2xx response into a classified error.
func parseHTTPError(statusCode int, body []byte) error {
	msg := string(bytes.TrimSpace(body))
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Error.Message != "":
			msg = errResp.Error.Message
		case errResp.Detail != "":
			msg = errResp.Detail
		}
	}

	if sentinel := classifyStatus(statusCode, msg); sentinel != nil {
		return fmt.Errorf("%s: %w", msg, sentinel)
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, msg)
}
