// Package ai provides factory functions for creating model clients from settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/compliance-engine/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/compliance-engine/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/compliance-engine/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/compliance-engine/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/core/services"
	"github.com/custodia-labs/compliance-engine/internal/observability"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// backend is what both model backend kinds have in common.
type backend interface {
	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// InitResult holds the model client and the backend that serves it.
type InitResult struct {
	Client  driven.ModelClient
	backend backend
}

// Ping checks the backend is reachable.
func (r *InitResult) Ping(ctx context.Context) error {
	if r.backend == nil {
		return domain.ErrLLMUnavailable
	}
	return r.backend.Ping(ctx)
}

// Close releases the backend.
func (r *InitResult) Close() {
	if r.backend != nil {
		_ = r.backend.Close()
	}
}

// CreateModelClient builds the strategy named by settings over the matching
// provider backend. Direct completion is paced and uses the configured matcher.
func CreateModelClient(settings domain.AppSettings, metrics *observability.Metrics) (*InitResult, error) {
	model := settings.Model
	if !model.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, model.Strategy)
	}
	if !model.Provider.IsValid() {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, model.Provider)
	}
	if !model.Provider.SupportsStrategy(model.Strategy) {
		return nil, fmt.Errorf("%w: provider %s does not support %s", domain.ErrInvalidInput, model.Provider, model.Strategy)
	}

	switch model.Strategy {
	case domain.StrategyManagedGrounding:
		b, err := CreateGroundingBackend(model)
		if err != nil {
			return nil, err
		}
		return &InitResult{
			Client:  services.NewGroundingStrategy(b, metrics),
			backend: b,
		}, nil

	default:
		b, err := CreateCompletionBackend(model)
		if err != nil {
			return nil, err
		}
		matcher := services.NewRelevanceMatcher(settings.Matcher.Cap, settings.Matcher.FallbackCount)
		pacer := ratelimit.New(ratelimit.FromSettings(settings.RateLimit))
		return &InitResult{
			Client:  services.NewCompletionStrategy(b, matcher, pacer, metrics),
			backend: b,
		}, nil
	}
}

// CreateGroundingBackend creates the managed-grounding backend for settings.
func CreateGroundingBackend(settings domain.ModelSettings) (driven.GroundingBackend, error) {
	switch settings.Provider {
	case domain.AIProviderGemini:
		return geminillm.New(geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
	default:
		return nil, fmt.Errorf("%w: %s has no managed grounding", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateCompletionBackend creates the chat completion backend for settings.
func CreateCompletionBackend(settings domain.ModelSettings) (driven.CompletionBackend, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.New(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.New(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.New(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("%w: %s has no chat completion backend", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateAndValidateModelClient creates a model client and validates connectivity.
func CreateAndValidateModelClient(settings domain.AppSettings, metrics *observability.Metrics) (*InitResult, error) {
	result, err := CreateModelClient(settings, metrics)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := result.Ping(ctx); err != nil {
		result.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return result, nil
}

// ValidateModelConfig creates the configured backend and pings it.
func ValidateModelConfig(settings domain.AppSettings) error {
	if !settings.Model.IsConfigured() {
		return errors.Join(domain.ErrLLMUnavailable, fmt.Errorf("model backend %s/%s is not configured",
			settings.Model.Provider, settings.Model.Strategy))
	}
	result, err := CreateAndValidateModelClient(settings, nil)
	if err != nil {
		return err
	}
	result.Close()
	return nil
}

// ValidatorFunc adapts a function to driven.ModelConfigValidator.
type ValidatorFunc func(settings domain.AppSettings) error

// ValidateModel calls f(settings).
func (f ValidatorFunc) ValidateModel(settings domain.AppSettings) error { return f(settings) }

// NewConfigValidator returns a validator that builds and pings the
// configured backend.
func NewConfigValidator() driven.ModelConfigValidator {
	return ValidatorFunc(ValidateModelConfig)
}
