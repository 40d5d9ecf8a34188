// Package openai runs JSON-mode chat completions against the OpenAI API or
// any server speaking its chat completions protocol.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

var _ driven.CompletionBackend = (*Backend)(nil)

const (
	// DefaultBaseURL is the public OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 120 * time.Second
)

// Config configures the backend. BaseURL may point at Azure OpenAI or any
// compatible gateway.
type Config struct {
	// APIKey is the bearer token. Required.
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// Backend is a CompletionBackend over go-openai.
type Backend struct {
	client *goopenai.Client
	model  string
}

// New returns a backend. The API key is required; everything else defaults.
func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: API key is required", domain.ErrInvalidInput)
	}
	return &Backend{
		client: NewClient(cfg.APIKey, orDefault(cfg.BaseURL, DefaultBaseURL), cfg.Timeout),
		model:  orDefault(cfg.Model, DefaultModel),
	}, nil
}

// NewClient builds a go-openai client with a bounded HTTP timeout.
func NewClient(apiKey, baseURL string, timeout time.Duration) *goopenai.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientCfg := goopenai.DefaultConfig(apiKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	return goopenai.NewClientWithConfig(clientCfg)
}

// Complete sends the conversation and returns the first choice.
func (b *Backend) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.CompletionOptions) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, ChatRequest(b.model, messages, opts))
	if err != nil {
		return "", ClassifyError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", domain.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatRequest maps a conversation onto a chat completion request. Zero
// sampling options are left to the server default.
func ChatRequest(model string, messages []driven.ChatMessage, opts driven.CompletionOptions) goopenai.ChatCompletionRequest {
	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]goopenai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
		TopP:        float32(opts.TopP),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if opts.JSONMode {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

// ClassifyError maps a go-openai error onto the domain sentinels: 429 is
// ErrRateLimited, 5xx and transport failures are ErrLLMUnavailable.
func ClassifyError(provider string, err error) error {
	var (
		apiErr *goopenai.APIError
		reqErr *goopenai.RequestError
		status int
	)
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrLLMUnavailable, err)
	}

	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrRateLimited, err)
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrLLMUnavailable, err)
	}
	return fmt.Errorf("%s: chat completion failed: %w", provider, err)
}

// ModelName returns the configured model.
func (b *Backend) ModelName() string { return b.model }

// Ping lists models, which checks the key without running inference.
func (b *Backend) Ping(ctx context.Context) error {
	if _, err := b.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources.
func (b *Backend) Close() error { return nil }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
