package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

func TestSettingsShow_Defaults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Strategy: Direct completion (local relevance matching)")
	assert.Contains(t, out, "Provider: openai")
	assert.Contains(t, out, "API Key: (not set)")
	assert.Contains(t, out, "Status: not configured")
	assert.Contains(t, out, "[Matcher]")
	assert.Contains(t, out, "Backend: filesystem")
	assert.Contains(t, out, "pipeline: furniture, chunker")
	assert.Contains(t, out, "Warning:")
}

func TestSettingsShow_MasksKey(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, ts.config.Set("model.api_key", "sk-1234567890abcdef"))

	out, err := execute("settings")

	require.NoError(t, err)
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "1234567890")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsModel_WithFlags(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("settings", "model", "--strategy", "direct_completion", "--provider", "ollama", "--model", "llama3.2")
	require.NoError(t, err)
	assert.Contains(t, out, "Validating configuration... OK")
	assert.Contains(t, out, "Model configured: direct_completion via ollama (llama3.2)")

	out, err = execute("settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Provider: ollama")
	assert.NotContains(t, out, "API Key:")
	assert.Contains(t, out, "Status: configured")
}

func TestSettingsModel_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown strategy", []string{"--strategy", "bogus", "--provider", "ollama"}, `unknown strategy "bogus"`},
		{"unsupported pairing", []string{"--strategy", "managed_grounding", "--provider", "openai"}, "does not support"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cleanup := setupTestServices()
			defer cleanup()

			_, err := execute(append([]string{"settings", "model"}, tt.args...)...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSettingsModel_ValidationFails(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.validator.err = errors.New("connection refused")

	out, err := execute("settings", "model", "--strategy", "direct_completion", "--provider", "ollama", "--model", "llama3.2")

	require.Error(t, err)
	assert.Contains(t, out, "FAILED: connection refused")
	assert.Contains(t, err.Error(), "model configuration validation failed")
}

func TestSettingsCheck(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("settings", "check")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, ts.config.Set("model.provider", "ollama"))
	out, err := execute("settings", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Pinging model backend... OK")

	ts.validator.err = errors.New("model not pulled")
	_, err = execute("settings", "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model backend check failed: model not pulled")
}

func TestSettingsReset(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, ts.config.Set("model.provider", "ollama"))
	require.NoError(t, ts.config.Set("model.api_key", "sk-keepme"))

	out, err := execute("settings", "reset", "--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Settings reset: direct_completion via openai (gpt-4o-mini)")
	assert.Equal(t, "openai", ts.config.GetString("model.provider"))
	assert.Equal(t, "sk-keepme", ts.config.GetString("model.api_key"))
}

func TestSettingsReset_Declined(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, ts.config.Set("model.provider", "ollama"))

	rootCmd.SetIn(strings.NewReader("n\n"))
	defer rootCmd.SetIn(nil)

	out, err := execute("settings", "reset")
	require.NoError(t, err)

	assert.Contains(t, out, "Aborted.")
	assert.Equal(t, "ollama", ts.config.GetString("model.provider"))
}

func TestSettingsModel_Interactive(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	// direct completion, second provider, default model, then the key.
	rootCmd.SetIn(strings.NewReader("1\n2\n\nsk-ant-123\n"))
	defer rootCmd.SetIn(nil)

	out, err := execute("settings", "model")
	require.NoError(t, err)

	assert.Contains(t, out, "Select Provider")
	assert.Contains(t, out, "2. anthropic")
	assert.Contains(t, out, "Model configured: direct_completion via anthropic (claude-3-5-sonnet-latest)")
	assert.Equal(t, "anthropic", ts.config.GetString("model.provider"))
	assert.Equal(t, "sk-ant-123", ts.config.GetString("model.api_key"))
}

func TestSettings_NoService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	services.Settings = nil

	_, err := execute("settings", "check")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestProvidersFor(t *testing.T) {
	assert.Equal(t, []domain.AIProvider{domain.AIProviderGemini}, providersFor(domain.StrategyManagedGrounding))
	assert.Equal(t, []domain.AIProvider{
		domain.AIProviderOpenAI,
		domain.AIProviderAnthropic,
		domain.AIProviderOllama,
	}, providersFor(domain.StrategyDirectCompletion))
	assert.Empty(t, providersFor("bogus"))
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "****"},
		{"abc123", "****"},
		{"12345678", "****"},
		{"sk-1234567890abcdef", "sk-1...cdef"},
		{"AIzaSyExampleGeminiKey", "AIza...iKey"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, maskAPIKey(tt.input), "input %q", tt.input)
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 1},
		{"2", 2},
		{"3", 3},
		{"0", 1},
		{"4", 1},
		{"two", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseChoice(tt.input, 3, 1), "input %q", tt.input)
	}
}
