// Package anthropic provides a chat completion backend on the Anthropic
// messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

var _ driven.CompletionBackend = (*Backend)(nil)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 4096

	// statusOverloaded is Anthropic's non-standard "overloaded" status.
	statusOverloaded = 529
)

// jsonInstruction is appended to the system prompt in JSON mode; the
// messages API has no response format switch.
const jsonInstruction = "Respond with a single JSON object and no other text."

// Config configures the backend. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Backend runs chat completions against the messages API.
type Backend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// apiError is the error object of a non-2xx response.
type apiError struct {
	Status  int
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Type, e.Status, e.Message)
}

// New creates an Anthropic completion backend.
func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Backend{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Complete runs a messages call. System messages become the top-level
// system prompt and consecutive turns of the same role are merged, since
// the API requires alternating roles.
func (s *Backend) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.CompletionOptions) (string, error) {
	system, turns := splitMessages(messages)
	if opts.JSONMode {
		system = append(system, jsonInstruction)
	}

	req := messagesRequest{
		Model:       s.model,
		Messages:    turns,
		MaxTokens:   opts.MaxTokens,
		System:      strings.Join(system, "\n\n"),
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	var resp messagesResponse
	if err := s.call(ctx, http.MethodPost, "/v1/messages", req, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("anthropic: %w", domain.ErrEmptyResponse)
	}
	if opts.JSONMode && resp.StopReason == "max_tokens" {
		return "", fmt.Errorf("anthropic: %w: reply truncated at %d tokens", domain.ErrParseFailed, req.MaxTokens)
	}
	return text.String(), nil
}

func splitMessages(messages []driven.ChatMessage) ([]string, []message) {
	var system []string
	turns := make([]message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].Role == msg.Role {
			turns[n-1].Content += "\n\n" + msg.Content
			continue
		}
		turns = append(turns, message{Role: msg.Role, Content: msg.Content})
	}
	return system, turns
}

// call sends body (when non-nil) and decodes a 200 reply into out.
func (s *Backend) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("anthropic: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: %w: %w", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return classify(parseError(resp.StatusCode, data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("anthropic: decode response: %w", err)
	}
	return nil
}

func parseError(status int, body []byte) *apiError {
	var envelope struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.Status = status
		return envelope.Error
	}
	return &apiError{Status: status, Message: strings.TrimSpace(string(body))}
}

// classify maps an API error onto the retry-relevant domain errors.
func classify(err *apiError) error {
	switch {
	case err.Status == http.StatusTooManyRequests || err.Type == "rate_limit_error":
		return fmt.Errorf("anthropic: %w: %w", domain.ErrRateLimited, err)
	case err.Status == statusOverloaded || err.Status >= http.StatusInternalServerError ||
		err.Type == "overloaded_error" || err.Type == "api_error":
		return fmt.Errorf("anthropic: %w: %w", domain.ErrLLMUnavailable, err)
	default:
		return fmt.Errorf("anthropic: %w", err)
	}
}

// ModelName returns the configured model.
func (s *Backend) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *Backend) Ping(ctx context.Context) error {
	var models struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := s.call(ctx, http.MethodGet, "/v1/models", nil, &models); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("ping failed: invalid API key: %w", err)
		}
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *Backend) Close() error {
	return nil
}
