// Package ollama provides a chat completion backend on a local Ollama server,
// spoken to through its OpenAI-compatible /v1 endpoints.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

var _ driven.CompletionBackend = (*Backend)(nil)

const (
	// DefaultBaseURL is the local Ollama server root.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "llama3.2"

	// Ollama ignores the bearer token but the client always sends one.
	placeholderKey = "ollama"
)

// Config configures the backend. BaseURL is the server root, with or
// without the /v1 suffix.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Backend runs chat completions against Ollama.
type Backend struct {
	client *goopenai.Client
	model  string
}

// New creates an Ollama backend. No request is made until Complete or Ping.
func New(cfg Config) *Backend {
	root := cfg.BaseURL
	if root == "" {
		root = DefaultBaseURL
	}
	root = strings.TrimSuffix(strings.TrimSuffix(root, "/"), "/v1")

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Backend{
		client: openai.NewClient(placeholderKey, root+"/v1", cfg.Timeout),
		model:  model,
	}
}

// Complete runs a non-streaming chat call. A blank reply counts as empty.
func (b *Backend) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.CompletionOptions) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatRequest(b.model, messages, opts))
	if err != nil {
		return "", openai.ClassifyError("ollama", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("ollama: %w", domain.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the configured model.
func (b *Backend) ModelName() string { return b.model }

// Ping fails when the server is down or the model has not been pulled.
// A bare model name matches any tag of it.
func (b *Backend) Ping(ctx context.Context) error {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	for _, m := range list.Models {
		if modelMatches(m.ID, b.model) {
			return nil
		}
	}
	return fmt.Errorf("ollama: %w: model %q is not pulled (run: ollama pull %s)", domain.ErrNotFound, b.model, b.model)
}

func modelMatches(id, want string) bool {
	if id == want {
		return true
	}
	if strings.Contains(want, ":") {
		return false
	}
	name, _, _ := strings.Cut(id, ":")
	return name == want
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }
