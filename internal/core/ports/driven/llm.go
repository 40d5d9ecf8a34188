package driven

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// CompletionBackend is a chat completion API used by the direct-completion
// strategy. The caller supplies all grounding context in the messages.
//
// Implementations may include:
//   - OpenAI (and compatible APIs)
//   - Anthropic (Claude)
//   - Ollama (local models)
type CompletionBackend interface {
	// Complete runs a chat completion and returns the reply text.
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GroundingBackend is a provider that retrieves from an indexed document
// store itself and returns the chunks it grounded its answer on.
type GroundingBackend interface {
	// GenerateGrounded runs the prompt against the referenced document store.
	GenerateGrounded(ctx context.Context, req GroundedRequest) (*GroundedResponse, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// CompletionOptions configures a chat completion.
type CompletionOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// TopP is nucleus sampling mass; zero leaves the provider default.
	TopP float64

	// JSONMode asks the backend to return a single JSON object.
	JSONMode bool
}

// GroundedRequest is a managed-grounding call.
type GroundedRequest struct {
	// Prompt is the fully substituted user prompt.
	Prompt string

	// SystemInstruction is the system prompt.
	SystemInstruction string

	// StoreRef names the indexed document store to retrieve from.
	StoreRef string

	// ResponseSchema optionally constrains the JSON reply.
	ResponseSchema string

	// Generation holds sampling parameters.
	Generation domain.GenerationConfig
}

// GroundedResponse is a managed-grounding reply.
type GroundedResponse struct {
	Text            string
	GroundingChunks []GroundingChunk
}

// GroundingChunk is a backend-supplied citation.
type GroundingChunk struct {
	// Title is usually the source filename.
	Title string

	// URI identifies the source document in the provider's store.
	URI string

	// Text is the retrieved passage.
	Text string
}
