// Package docintel extracts documents through a document-intelligence layout
// service. The document is submitted for analysis and the operation is polled
// until it finishes; paragraphs come back with page numbers and layout roles.
package docintel

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
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

const (
	defaultModel        = "prebuilt-layout"
	defaultAPIVersion   = "2024-11-30"
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 5 * time.Minute
)

// Config holds document-intelligence configuration.
type Config struct {
	Endpoint     string
	APIKey       string
	Model        string
	APIVersion   string
	PollInterval time.Duration
	Timeout      time.Duration
}

// Extractor implements driven.Extractor against a layout analysis service.
type Extractor struct {
	endpoint     string
	apiKey       string
	model        string
	apiVersion   string
	pollInterval time.Duration
	timeout      time.Duration
	client       *http.Client
}

// New creates an extractor. The endpoint is required.
func New(cfg Config) (*Extractor, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: extraction endpoint is required", domain.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Extractor{
		endpoint:     strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		apiVersion:   cfg.APIVersion,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		client:       &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type analyzeOperation struct {
	Status        string         `json:"status"`
	Error         *serviceError  `json:"error,omitempty"`
	AnalyzeResult *analyzeResult `json:"analyzeResult,omitempty"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type analyzeResult struct {
	Content    string      `json:"content"`
	Paragraphs []paragraph `json:"paragraphs"`
}

type paragraph struct {
	Content         string           `json:"content"`
	Role            string           `json:"role"`
	BoundingRegions []boundingRegion `json:"boundingRegions"`
}

type boundingRegion struct {
	PageNumber int `json:"pageNumber"`
}

type errorEnvelope struct {
	Error serviceError `json:"error"`
}

// Extract submits the document and waits for the layout analysis.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename, mimeType string) (*domain.ExtractionResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, filename)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	opURL, err := e.submit(ctx, data, mimeType)
	if err != nil {
		return nil, err
	}
	logger.Debug("docintel: submitted %s, polling %s", filename, opURL)

	result, err := e.poll(ctx, opURL)
	if err != nil {
		return nil, err
	}
	return toExtractionResult(result), nil
}

func (e *Extractor) submit(ctx context.Context, data []byte, mimeType string) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s", e.endpoint, e.model, e.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", mimeType)
	e.setAuth(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("%w: response has no Operation-Location", domain.ErrExtractionFailed)
	}
	return opURL, nil
}

func (e *Extractor) poll(ctx context.Context, opURL string) (*analyzeResult, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		op, err := e.fetchOperation(ctx, opURL)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(op.Status) {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, fmt.Errorf("%w: analysis returned no result", domain.ErrExtractionFailed)
			}
			return op.AnalyzeResult, nil
		case "failed", "canceled":
			msg := op.Status
			if op.Error != nil && op.Error.Message != "" {
				msg = op.Error.Message
			}
			return nil, fmt.Errorf("%w: analysis %s", domain.ErrExtractionFailed, msg)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Extractor) fetchOperation(ctx context.Context, opURL string) (*analyzeOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	e.setAuth(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var op analyzeOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("failed to decode operation: %w", err)
	}
	return &op, nil
}

func (e *Extractor) setAuth(req *http.Request) {
	if e.apiKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(body))
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		msg = env.Error.Message
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	}
	return fmt.Errorf("%w: status %d: %s", domain.ErrExtractionFailed, resp.StatusCode, msg)
}

// toExtractionResult keeps the layout role and first page of each paragraph.
// Table cells arrive as paragraphs of their own.
func toExtractionResult(r *analyzeResult) *domain.ExtractionResult {
	result := &domain.ExtractionResult{Content: r.Content}
	for _, p := range r.Paragraphs {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		result.Paragraphs = append(result.Paragraphs, domain.ExtractedParagraph{
			Content:    p.Content,
			PageNumber: firstPage(p.BoundingRegions),
			Role:       p.Role,
		})
	}
	return result
}

func firstPage(regions []boundingRegion) int {
	if len(regions) == 0 {
		return 0
	}
	return regions[0].PageNumber
}
