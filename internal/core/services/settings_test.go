package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// mockModelValidator records the settings it was asked to validate.
type mockModelValidator struct {
	err  error
	seen *domain.AppSettings
}

func (m *mockModelValidator) ValidateModel(settings domain.AppSettings) error {
	m.seen = &settings
	return m.err
}

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("model.strategy", "managed_grounding")
	_ = store.Set("model.provider", "gemini")
	_ = store.Set("model.api_key", "g-key")
	_ = store.Set("model.timeout", "3m")
	_ = store.Set("rate_limit.requests_per_second", 0.5)
	_ = store.Set("rate_limit.burst", int64(2))
	_ = store.Set("rate_limit.max_retries", 0)
	_ = store.Set("storage.backend", "gcs")
	_ = store.Set("storage.bucket", "uploads")
	_ = store.Set("extraction.endpoint", "https://di.example.com")
	_ = store.Set("matcher.cap", 20)
	_ = store.Set("server.addr", ":9090")
	_ = store.Set("data_dir", "/data")

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.StrategyManagedGrounding, settings.Model.Strategy)
	assert.Equal(t, domain.AIProviderGemini, settings.Model.Provider)
	assert.Equal(t, "gemini-2.5-flash", settings.Model.Model, "provider default model")
	assert.Equal(t, "g-key", settings.Model.APIKey)
	assert.Equal(t, 3*time.Minute, settings.Model.Timeout)
	assert.InDelta(t, 0.5, settings.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, 2, settings.RateLimit.Burst)
	assert.Equal(t, 0, settings.RateLimit.MaxRetries, "explicit zero is kept")
	assert.Equal(t, 2*time.Second, settings.RateLimit.InitialBackoff)
	assert.Equal(t, domain.StorageGCS, settings.Storage.Backend)
	assert.Equal(t, "uploads", settings.Storage.Bucket)
	assert.Equal(t, "https://di.example.com", settings.Extraction.Endpoint)
	assert.Equal(t, 20, settings.Matcher.Cap)
	assert.Equal(t, 50, settings.Matcher.FallbackCount)
	assert.Equal(t, ":9090", settings.Server.Addr)
	assert.Equal(t, "/data", settings.DataDir)
}

func TestSettingsService_Get_ProviderScopedAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("model.provider", "anthropic")
	_ = store.Set("anthropic.api_key", "a-key")

	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, "a-key", settings.Model.APIKey)

	_ = store.Set("model.api_key", "explicit")
	settings, err = NewSettingsService(store, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, "explicit", settings.Model.APIKey)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("model.strategy", "telepathy")
	_ = store.Set("model.provider", "invalid_provider")
	_ = store.Set("storage.backend", "s3")
	_ = store.Set("model.timeout", "soon")

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Model.Strategy, settings.Model.Strategy)
	assert.Equal(t, defaults.Model.Provider, settings.Model.Provider)
	assert.Equal(t, defaults.Storage.Backend, settings.Storage.Backend)
	assert.Equal(t, defaults.Model.Timeout, settings.Model.Timeout)
}

func TestSettingsService_Get_Pipeline(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("pipeline.processors", []any{"chunker"})
	_ = store.Set("pipeline.chunker.chunk_size", int64(500))
	_ = store.Set("pipeline.chunker.overlap", int64(0))
	_ = store.Set("pipeline.chunker.unknown", "ignored")

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, []string{"chunker"}, settings.Pipeline.Processors)
	assert.Equal(t, map[string]map[string]any{
		"chunker": {"chunk_size": int64(500), "overlap": int64(0)},
	}, settings.Pipeline.ProcessorConfigs)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	want := domain.DefaultAppSettings()
	want.Model.Strategy = domain.StrategyDirectCompletion
	want.Model.Provider = domain.AIProviderOllama
	want.Model.Model = "qwen2.5"
	want.Model.BaseURL = "http://gpu:11434"
	want.RateLimit.Burst = 5
	want.Storage.Root = "/srv/uploads"
	want.Extraction.APIKey = "di-key"
	want.Pipeline.Processors = []string{"chunker"}
	want.DataDir = "/data"

	require.NoError(t, service.Save(&want))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestSettingsService_Save_KeepsStoredAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("model.api_key", "existing")
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "existing", store.GetString("model.api_key"))
	assert.ErrorIs(t, service.Save(nil), domain.ErrInvalidInput)
}

func TestSettingsService_SetModel(t *testing.T) {
	tests := []struct {
		name     string
		strategy domain.ModelStrategy
		provider domain.AIProvider
		model    string
		apiKey   string
		wantErr  bool
		wantName string
	}{
		{"openai direct", domain.StrategyDirectCompletion, domain.AIProviderOpenAI, "", "sk", false, "gpt-4o-mini"},
		{"gemini grounding", domain.StrategyManagedGrounding, domain.AIProviderGemini, "gemini-2.5-pro", "g", false, "gemini-2.5-pro"},
		{"ollama without key", domain.StrategyDirectCompletion, domain.AIProviderOllama, "", "", false, "llama3.2"},
		{"missing key", domain.StrategyDirectCompletion, domain.AIProviderAnthropic, "", "", true, ""},
		{"unsupported pair", domain.StrategyManagedGrounding, domain.AIProviderOpenAI, "", "sk", true, ""},
		{"unknown strategy", "magic", domain.AIProviderOpenAI, "", "sk", true, ""},
		{"unknown provider", domain.StrategyDirectCompletion, "acme", "", "sk", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, nil)

			err := service.SetModel(tt.strategy, tt.provider, tt.model, tt.apiKey)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, settings.Model.Strategy)
			assert.Equal(t, tt.provider, settings.Model.Provider)
			assert.Equal(t, tt.wantName, settings.Model.Model)
			assert.Equal(t, tt.apiKey, settings.Model.APIKey)
		})
	}
}

func TestSettingsService_Validate(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	// Default provider needs a key
	err := service.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "requires an API key")

	_ = store.Set("openai.api_key", "sk")
	require.NoError(t, service.Validate())

	_ = store.Set("storage.backend", "gcs")
	err = service.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "storage.bucket")

	_ = store.Set("storage.bucket", "uploads")
	_ = store.Set("rate_limit.requests_per_second", 0.0)
	err = service.Validate()
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "requests_per_second")
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_ValidateModelConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("model.provider", "ollama")

	assert.NoError(t, NewSettingsService(store, nil).ValidateModelConfig())

	validator := &mockModelValidator{err: errors.New("unreachable")}
	err := NewSettingsService(store, validator).ValidateModelConfig()
	assert.EqualError(t, err, "unreachable")
	require.NotNil(t, validator.seen)
	assert.Equal(t, domain.AIProviderOllama, validator.seen.Model.Provider)
}
