package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-scribe/internal/apierr"
	"github.com/alnah/go-scribe/internal/lang"
	"github.com/alnah/go-scribe/internal/settings"
	"github.com/alnah/go-scribe/internal/transcript"
)

// audioTranscriber is an internal interface for OpenAI audio transcription.
// *openai.Client implements this implicitly.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

var _ audioTranscriber = (*openai.Client)(nil)

// OpenAIClient transcribes audio with OpenAI's transcription API, asking for
// verbose_json so that timed segments come back.
type OpenAIClient struct {
	client audioTranscriber
	models map[settings.Model]string
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithModelName maps a model tier to a provider model name.
// Tiers without a mapping use whisper-1.
func WithModelName(tier settings.Model, name string) OpenAIOption {
	return func(c *OpenAIClient) {
		if name != "" {
			c.models[tier] = name
		}
	}
}

// NewOpenAIClient creates an OpenAIClient. The client is injected to enable
// testing with mocks.
func NewOpenAIClient(client *openai.Client, opts ...OpenAIOption) *OpenAIClient {
	return newOpenAIClient(client, opts...)
}

func newOpenAIClient(client audioTranscriber, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		client: client,
		models: make(map[settings.Model]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe implements Client.
func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string, s settings.Settings) (transcript.Transcript, error) {
	req := openai.AudioRequest{
		Model:       c.modelName(s.Model),
		FilePath:    audioPath,
		Format:      openai.AudioResponseFormatVerboseJSON,
		Temperature: s.Accuracy.Temperature(),
		Language:    lang.BaseCode(s.Language), // OpenAI only accepts ISO 639-1 base codes
	}

	resp, err := c.client.CreateTranscription(ctx, req)
	if err != nil {
		return transcript.Transcript{}, failed(classifyError(err))
	}

	segments := make([]transcript.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: strings.TrimSpace(seg.Text)})
	}
	return transcript.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Segments: segments,
		Language: resp.Language,
	}, nil
}

func (c *OpenAIClient) modelName(tier settings.Model) string {
	if name, ok := c.models[tier]; ok {
		return name
	}
	return openai.Whisper1
}

// classifyError maps OpenAI API errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if sentinel := classifyStatus(apiErr.HTTPStatusCode, apiErr.Message); sentinel != nil {
			return fmt.Errorf("%s: %w", apiErr.Message, sentinel)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if sentinel := classifyStatus(reqErr.HTTPStatusCode, reqErr.Error()); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
	}

	// The request never got an answer.
	return apierr.FromTransport(err)
}

// classifyStatus is apierr.FromStatus with one refinement: a 429 that talks
// about quota or billing is a quota problem, which waiting will not fix.
func classifyStatus(code int, msg string) error {
	if code == http.StatusTooManyRequests &&
		(strings.Contains(msg, "quota") || strings.Contains(msg, "billing")) {
		return apierr.ErrQuotaExceeded
	}
	return apierr.FromStatus(code)
}
