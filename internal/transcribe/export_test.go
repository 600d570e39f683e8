package transcribe

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

// NewTestOpenAIClient creates an OpenAIClient with a mock audioTranscriber.
// This allows testing without a real OpenAI client.
func NewTestOpenAIClient(client audioTranscriber, opts ...OpenAIOption) *OpenAIClient {
	return newOpenAIClient(client, opts...)
}

// Function exports for unit testing internal logic.
var (
	ClassifyError  = classifyError
	ParseHTTPError = parseHTTPError
)
