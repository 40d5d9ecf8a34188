package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/services"
)

func settingsFor(strategy domain.ModelStrategy, provider domain.AIProvider, apiKey string) domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Model.Strategy = strategy
	s.Model.Provider = provider
	s.Model.Model = ""
	s.Model.APIKey = apiKey
	return s
}

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil backend", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})

	t.Run("ping with nil backend", func(t *testing.T) {
		result := &InitResult{}
		assert.ErrorIs(t, result.Ping(context.Background()), domain.ErrLLMUnavailable)
	})
}

func TestCreateModelClient(t *testing.T) {
	tests := []struct {
		name         string
		settings     domain.AppSettings
		wantStrategy domain.ModelStrategy
		wantErr      error
		wantGround   bool
	}{
		{
			name:         "gemini managed grounding",
			settings:     settingsFor(domain.StrategyManagedGrounding, domain.AIProviderGemini, "key"),
			wantStrategy: domain.StrategyManagedGrounding,
			wantGround:   true,
		},
		{
			name:         "openai direct completion",
			settings:     settingsFor(domain.StrategyDirectCompletion, domain.AIProviderOpenAI, "key"),
			wantStrategy: domain.StrategyDirectCompletion,
		},
		{
			name:         "anthropic direct completion",
			settings:     settingsFor(domain.StrategyDirectCompletion, domain.AIProviderAnthropic, "key"),
			wantStrategy: domain.StrategyDirectCompletion,
		},
		{
			name:         "ollama needs no key",
			settings:     settingsFor(domain.StrategyDirectCompletion, domain.AIProviderOllama, ""),
			wantStrategy: domain.StrategyDirectCompletion,
		},
		{
			name:     "openai cannot ground",
			settings: settingsFor(domain.StrategyManagedGrounding, domain.AIProviderOpenAI, "key"),
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "gemini has no completion backend",
			settings: settingsFor(domain.StrategyDirectCompletion, domain.AIProviderGemini, "key"),
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "unknown strategy",
			settings: settingsFor("magic", domain.AIProviderOpenAI, "key"),
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "unknown provider",
			settings: settingsFor(domain.StrategyDirectCompletion, "acme", "key"),
			wantErr:  domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CreateModelClient(tt.settings, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			defer result.Close()

			assert.Equal(t, tt.wantStrategy, result.Client.Strategy())
			assert.NotEmpty(t, result.Client.ModelName())
			if tt.wantGround {
				assert.IsType(t, &services.GroundingStrategy{}, result.Client)
			} else {
				assert.IsType(t, &services.CompletionStrategy{}, result.Client)
			}
		})
	}
}

func TestCreateModelClient_MissingAPIKey(t *testing.T) {
	_, err := CreateModelClient(settingsFor(domain.StrategyDirectCompletion, domain.AIProviderOpenAI, ""), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")

	_, err = CreateModelClient(settingsFor(domain.StrategyManagedGrounding, domain.AIProviderGemini, ""), nil)
	require.Error(t, err)
}

func TestCreateModelClient_UsesConfiguredModel(t *testing.T) {
	s := settingsFor(domain.StrategyDirectCompletion, domain.AIProviderOllama, "")
	s.Model.Model = "qwen2.5"

	result, err := CreateModelClient(s, nil)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", result.Client.ModelName())
}

func TestCreateBackends_UnsupportedProvider(t *testing.T) {
	_, err := CreateGroundingBackend(domain.ModelSettings{Provider: domain.AIProviderOllama})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = CreateCompletionBackend(domain.ModelSettings{Provider: domain.AIProviderGemini})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestCreateAndValidateModelClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := settingsFor(domain.StrategyDirectCompletion, domain.AIProviderOllama, "")
	s.Model.BaseURL = server.URL

	result, err := CreateAndValidateModelClient(s, nil)
	require.NoError(t, err)
	result.Close()

	require.NoError(t, ValidateModelConfig(s))
}

func TestCreateAndValidateModelClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := settingsFor(domain.StrategyDirectCompletion, domain.AIProviderOllama, "")
	s.Model.BaseURL = server.URL

	_, err := CreateAndValidateModelClient(s, nil)
	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestValidateModelConfig_NotConfigured(t *testing.T) {
	err := ValidateModelConfig(settingsFor(domain.StrategyDirectCompletion, domain.AIProviderOpenAI, ""))
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestConfigValidator(t *testing.T) {
	v := NewConfigValidator()

	assert.ErrorIs(t, v.ValidateModel(domain.DefaultAppSettings()), domain.ErrLLMUnavailable)

	mismatched := domain.DefaultAppSettings()
	mismatched.Model.Strategy = domain.StrategyManagedGrounding
	mismatched.Model.Provider = domain.AIProviderAnthropic
	mismatched.Model.APIKey = "key"
	assert.ErrorIs(t, v.ValidateModel(mismatched), domain.ErrLLMUnavailable)

	called := false
	fn := ValidatorFunc(func(domain.AppSettings) error { called = true; return nil })
	require.NoError(t, fn.ValidateModel(domain.AppSettings{}))
	assert.True(t, called)
}
