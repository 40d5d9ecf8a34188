package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/logger"
	"github.com/custodia-labs/compliance-engine/internal/observability"
)

// Ensure both strategies implement the interface.
var (
	_ driven.ModelClient = (*GroundingStrategy)(nil)
	_ driven.ModelClient = (*CompletionStrategy)(nil)
)

// GroundingStrategy validates through a provider that retrieves from the
// session's indexed document store itself.
type GroundingStrategy struct {
	backend driven.GroundingBackend
	metrics *observability.Metrics
}

// NewGroundingStrategy creates a managed-grounding model client.
func NewGroundingStrategy(backend driven.GroundingBackend, metrics *observability.Metrics) *GroundingStrategy {
	if metrics == nil {
		metrics = observability.Discard()
	}
	return &GroundingStrategy{backend: backend, metrics: metrics}
}

// Strategy returns domain.StrategyManagedGrounding.
func (s *GroundingStrategy) Strategy() domain.ModelStrategy {
	return domain.StrategyManagedGrounding
}

// ModelName returns the backend model name.
func (s *GroundingStrategy) ModelName() string {
	return s.backend.ModelName()
}

// Validate sends the prompt against req.StoreRef. A reply grounded on no
// chunks is rejected with domain.ErrNoGrounding.
func (s *GroundingStrategy) Validate(ctx context.Context, req driven.ModelRequest) (resp *driven.ModelResponse, err error) {
	start := time.Now()
	defer func() { observeModelCall(s.metrics, domain.StrategyManagedGrounding, start, err) }()

	if req.StoreRef == "" {
		return nil, fmt.Errorf("%w: session has no document store reference", domain.ErrInvalidInput)
	}

	reply, err := s.backend.GenerateGrounded(ctx, driven.GroundedRequest{
		Prompt:            req.Prompt,
		SystemInstruction: req.SystemInstruction,
		StoreRef:          req.StoreRef,
		ResponseSchema:    req.OutputSchema,
		Generation:        req.Generation,
	})
	if err != nil {
		return nil, err
	}
	if len(reply.GroundingChunks) == 0 {
		return nil, fmt.Errorf("%w for requirement %s", domain.ErrNoGrounding, req.Requirement.Number)
	}
	if strings.TrimSpace(reply.Text) == "" {
		return nil, domain.ErrEmptyResponse
	}

	logger.Debug("requirement %s grounded on %d chunks", req.Requirement.Number, len(reply.GroundingChunks))
	return &driven.ModelResponse{
		Text:            reply.Text,
		GroundingChunks: reply.GroundingChunks,
	}, nil
}

// CompletionStrategy validates through a plain chat completion, injecting
// the most relevant session content into the prompt.
type CompletionStrategy struct {
	backend driven.CompletionBackend
	matcher *RelevanceMatcher
	pacer   driven.Pacer
	metrics *observability.Metrics
}

// NewCompletionStrategy creates a direct-completion model client.
// A nil pacer disables pacing and retries.
func NewCompletionStrategy(
	backend driven.CompletionBackend,
	matcher *RelevanceMatcher,
	pacer driven.Pacer,
	metrics *observability.Metrics,
) *CompletionStrategy {
	if matcher == nil {
		matcher = NewRelevanceMatcher(0, 0)
	}
	if metrics == nil {
		metrics = observability.Discard()
	}
	return &CompletionStrategy{
		backend: backend,
		matcher: matcher,
		pacer:   pacer,
		metrics: metrics,
	}
}

// Strategy returns domain.StrategyDirectCompletion.
func (s *CompletionStrategy) Strategy() domain.ModelStrategy {
	return domain.StrategyDirectCompletion
}

// ModelName returns the backend model name.
func (s *CompletionStrategy) ModelName() string {
	return s.backend.ModelName()
}

// Validate selects relevant chunks, appends them to the prompt and requests
// a JSON reply. Rate-limited calls are retried as the pacer allows.
func (s *CompletionStrategy) Validate(ctx context.Context, req driven.ModelRequest) (resp *driven.ModelResponse, err error) {
	start := time.Now()
	defer func() { observeModelCall(s.metrics, domain.StrategyDirectCompletion, start, err) }()

	selected := s.matcher.Select(req.Requirement, req.SessionChunks)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no document content for requirement %s", domain.ErrNoDocuments, req.Requirement.Number)
	}

	system := req.SystemInstruction
	if req.OutputSchema != "" {
		system += "\n\nThe JSON object must conform to this schema:\n" + req.OutputSchema
	}
	messages := []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: req.Prompt + "\n\n## Document Content\n\n" + AssembleContext(selected)},
	}
	opts := driven.CompletionOptions{
		MaxTokens:   req.Generation.MaxOutputTokens,
		Temperature: req.Generation.Temperature,
		TopP:        req.Generation.TopP,
		JSONMode:    true,
	}

	for attempt := 0; ; attempt++ {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		text, err := s.backend.Complete(ctx, messages, opts)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return nil, domain.ErrEmptyResponse
			}
			return &driven.ModelResponse{Text: text, ContextChunks: len(selected)}, nil
		}

		if s.pacer == nil {
			return nil, err
		}
		delay, retry := s.pacer.Backoff(attempt, err)
		if !retry {
			return nil, err
		}
		s.metrics.RateLimitRetriesTotal.Inc()
		logger.Warn("model call for requirement %s failed (attempt %d), retrying in %s: %v",
			req.Requirement.Number, attempt+1, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// AssembleContext renders chunks as labelled passages for the prompt.
func AssembleContext(chunks []domain.DocumentContentChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		if c.PageNumber > 0 {
			fmt.Fprintf(&b, "[%s, page %d]\n", c.Filename, c.PageNumber)
		} else {
			fmt.Fprintf(&b, "[%s]\n", c.Filename)
		}
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func observeModelCall(m *observability.Metrics, strategy domain.ModelStrategy, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ModelRequestsTotal.WithLabelValues(strategy.String(), outcome).Inc()
	m.ModelLatencySeconds.WithLabelValues(strategy.String()).Observe(time.Since(start).Seconds())
}
