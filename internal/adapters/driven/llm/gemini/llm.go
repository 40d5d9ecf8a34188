// Package gemini provides a managed-grounding backend using the Gemini API
// with the file search tool.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.GroundingBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 180 * time.Second
)

// Config holds configuration for the Gemini grounding backend.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL including the version segment.
	BaseURL string

	// Model is the model to use (default: gemini-2.5-flash).
	Model string

	// Timeout is the request timeout (default: 180s).
	Timeout time.Duration
}

// Backend runs generateContent calls grounded on a file search store.
type Backend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type fileSearch struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
}

type tool struct {
	FileSearch *fileSearch `json:"fileSearch,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
}

// generateRequest is the :generateContent request format.
type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Tools             []tool           `json:"tools"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type groundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// generateResponse is the :generateContent response format.
type generateResponse struct {
	Candidates []struct {
		Content           content `json:"content"`
		FinishReason      string  `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				RetrievedContext *groundingSource `json:"retrievedContext"`
				Web              *groundingSource `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// New creates a new Gemini grounding backend.
func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
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
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// GenerateGrounded runs the prompt with file search over req.StoreRef and
// returns the reply text with the chunks the model grounded on.
func (s *Backend) GenerateGrounded(ctx context.Context, req driven.GroundedRequest) (*driven.GroundedResponse, error) {
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		Tools: []tool{{FileSearch: &fileSearch{
			FileSearchStoreNames: []string{req.StoreRef},
		}}},
		GenerationConfig: generationConfig{
			Temperature:     req.Generation.Temperature,
			MaxOutputTokens: req.Generation.MaxOutputTokens,
			TopP:            req.Generation.TopP,
		},
	}

	// File search cannot be combined with a response schema, so the schema
	// travels as part of the system instruction.
	var system []part
	if req.SystemInstruction != "" {
		system = append(system, part{Text: req.SystemInstruction})
	}
	if req.ResponseSchema != "" {
		system = append(system, part{Text: "Respond with JSON matching this schema:\n" + req.ResponseSchema})
	}
	if len(system) > 0 {
		reqBody.SystemInstruction = &content{Parts: system}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("gemini: %w: %s", domain.ErrRateLimited, string(body))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("gemini: %w (status %d): %s", domain.ErrLLMUnavailable, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if genResp.Error != nil {
		return nil, fmt.Errorf("gemini error (%s): %s", genResp.Error.Status, genResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w", domain.ErrEmptyResponse)
	}

	candidate := genResp.Candidates[0]
	var text strings.Builder
	for _, p := range candidate.Content.Parts {
		text.WriteString(p.Text)
	}

	out := &driven.GroundedResponse{Text: text.String()}
	if candidate.GroundingMetadata != nil {
		for _, gc := range candidate.GroundingMetadata.GroundingChunks {
			src := gc.RetrievedContext
			if src == nil {
				src = gc.Web
			}
			if src == nil {
				continue
			}
			out.GroundingChunks = append(out.GroundingChunks, driven.GroundingChunk{
				Title: src.Title,
				URI:   src.URI,
				Text:  src.Text,
			})
		}
	}
	return out, nil
}

// ModelName returns the name of the model being used.
func (s *Backend) ModelName() string {
	return s.model
}

// Ping validates the API key by fetching the model metadata.
func (s *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models/"+s.model, http.NoBody)
	if err != nil {
		return fmt.Errorf("gemini: failed to create ping request: %w", err)
	}
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("gemini: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("gemini: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *Backend) Close() error {
	return nil
}
