package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelStrategy_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		strategy ModelStrategy
		expected bool
	}{
		{"managed grounding is valid", StrategyManagedGrounding, true},
		{"direct completion is valid", StrategyDirectCompletion, true},
		{"empty string is invalid", ModelStrategy(""), false},
		{"unknown is invalid", ModelStrategy("agentic"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.strategy.IsValid())
		})
	}
}

func TestModelStrategy_UsesMatcher(t *testing.T) {
	assert.True(t, StrategyDirectCompletion.UsesMatcher())
	assert.False(t, StrategyManagedGrounding.UsesMatcher())
}

func TestModelStrategy_Description(t *testing.T) {
	assert.Contains(t, StrategyManagedGrounding.Description(), "Managed")
	assert.Contains(t, StrategyDirectCompletion.Description(), "Direct")
	assert.Equal(t, "Unknown", ModelStrategy("x").Description())
}

func TestAIProvider_SupportsStrategy(t *testing.T) {
	tests := []struct {
		provider AIProvider
		strategy ModelStrategy
		expected bool
	}{
		{AIProviderGemini, StrategyManagedGrounding, true},
		{AIProviderGemini, StrategyDirectCompletion, false},
		{AIProviderOpenAI, StrategyDirectCompletion, true},
		{AIProviderOpenAI, StrategyManagedGrounding, false},
		{AIProviderAnthropic, StrategyDirectCompletion, true},
		{AIProviderOllama, StrategyDirectCompletion, true},
		{AIProvider("bogus"), StrategyDirectCompletion, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider)+"/"+string(tt.strategy), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.SupportsStrategy(tt.strategy))
		})
	}
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderGemini.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
}

func TestModelSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings ModelSettings
		expected bool
	}{
		{
			name:     "openai with key",
			settings: ModelSettings{Strategy: StrategyDirectCompletion, Provider: AIProviderOpenAI, APIKey: "sk"},
			expected: true,
		},
		{
			name:     "openai without key",
			settings: ModelSettings{Strategy: StrategyDirectCompletion, Provider: AIProviderOpenAI},
			expected: false,
		},
		{
			name:     "ollama without key",
			settings: ModelSettings{Strategy: StrategyDirectCompletion, Provider: AIProviderOllama},
			expected: true,
		},
		{
			name:     "gemini grounding",
			settings: ModelSettings{Strategy: StrategyManagedGrounding, Provider: AIProviderGemini, APIKey: "k"},
			expected: true,
		},
		{
			name:     "mismatched strategy",
			settings: ModelSettings{Strategy: StrategyManagedGrounding, Provider: AIProviderOpenAI, APIKey: "k"},
			expected: false,
		},
		{
			name:     "empty",
			settings: ModelSettings{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, StrategyDirectCompletion, s.Model.Strategy)
	assert.Equal(t, AIProviderOpenAI, s.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", s.Model.Model)
	assert.False(t, s.Model.IsConfigured(), "no API key by default")
	assert.Equal(t, 1.0, s.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1, s.RateLimit.Burst)
	assert.Equal(t, 40, s.Matcher.Cap)
	assert.Equal(t, 50, s.Matcher.FallbackCount)
	assert.Equal(t, StorageFilesystem, s.Storage.Backend)
}

func TestDefaultModels_CoverAllProviders(t *testing.T) {
	models := DefaultModels()
	for _, p := range []AIProvider{AIProviderGemini, AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama} {
		assert.NotEmpty(t, models[p], "missing default model for %s", p)
	}
}
