package driven

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// ModelClient is the single interface the orchestrator validates a
// requirement through. The grounding strategy is fixed at construction;
// callers never branch on provider.
type ModelClient interface {
	// Validate runs one requirement prompt and returns the raw reply.
	Validate(ctx context.Context, req ModelRequest) (*ModelResponse, error)

	// Strategy reports which grounding strategy the client uses.
	Strategy() domain.ModelStrategy

	// ModelName returns the backing model name.
	ModelName() string
}

// ModelRequest carries everything either strategy may need. Strategies
// ignore fields they do not use.
type ModelRequest struct {
	// Requirement is the requirement under validation.
	Requirement domain.Requirement

	// Prompt is the session header plus the substituted template prompt.
	Prompt string

	// SystemInstruction is the template system instruction.
	SystemInstruction string

	// OutputSchema is the template output schema, if any.
	OutputSchema string

	// Generation holds sampling parameters.
	Generation domain.GenerationConfig

	// StoreRef references the session's indexed document store.
	StoreRef string

	// SessionChunks is the combined extracted content of the session.
	SessionChunks []domain.DocumentContentChunk
}

// ModelResponse is the canonical reply from either strategy.
type ModelResponse struct {
	// Text is the raw model output.
	Text string

	// GroundingChunks is populated by the managed-grounding strategy.
	GroundingChunks []GroundingChunk

	// ContextChunks is the number of chunks injected by the direct strategy.
	ContextChunks int
}

// ModelConfigValidator checks that settings describe a reachable model
// backend, typically by building it and calling Ping.
type ModelConfigValidator interface {
	ValidateModel(settings domain.AppSettings) error
}
