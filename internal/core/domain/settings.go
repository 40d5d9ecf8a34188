package domain

import "time"

const unknownDescription = "Unknown"

// ModelStrategy selects how requirements are grounded in session documents.
type ModelStrategy string

// Available model strategies.
const (
	// StrategyManagedGrounding lets the provider retrieve from an indexed
	// document store and return citations itself.
	StrategyManagedGrounding ModelStrategy = "managed_grounding"

	// StrategyDirectCompletion injects locally matched chunks into the prompt
	// and requests a JSON chat completion.
	StrategyDirectCompletion ModelStrategy = "direct_completion"
)

// IsValid returns true if the strategy is recognised.
func (s ModelStrategy) IsValid() bool {
	return s == StrategyManagedGrounding || s == StrategyDirectCompletion
}

// UsesMatcher returns true when the engine must select context itself.
func (s ModelStrategy) UsesMatcher() bool {
	return s == StrategyDirectCompletion
}

// String returns the string representation.
func (s ModelStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s ModelStrategy) Description() string {
	switch s {
	case StrategyManagedGrounding:
		return "Managed grounding (provider-side retrieval)"
	case StrategyDirectCompletion:
		return "Direct completion (local relevance matching)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies a model backend.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is Google Gemini with file search grounding.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOpenAI is OpenAI or any compatible chat completions API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// SupportsStrategy reports whether the provider can serve a strategy.
// Only Gemini offers managed file-search grounding.
func (p AIProvider) SupportsStrategy(s ModelStrategy) bool {
	switch s {
	case StrategyManagedGrounding:
		return p == AIProviderGemini
	case StrategyDirectCompletion:
		return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderOllama
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// ModelSettings configures the model backend.
type ModelSettings struct {
	// Strategy selects managed grounding or direct completion.
	Strategy ModelStrategy

	// Provider is the backend serving the strategy.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey authenticates against the provider.
	APIKey string

	// Timeout bounds a single model call.
	Timeout time.Duration
}

// IsConfigured returns true if the backend is usable.
func (m ModelSettings) IsConfigured() bool {
	if !m.Strategy.IsValid() || !m.Provider.IsValid() {
		return false
	}
	if !m.Provider.SupportsStrategy(m.Strategy) {
		return false
	}
	if m.Provider.RequiresAPIKey() && m.APIKey == "" {
		return false
	}
	return true
}

// RateLimitSettings configures pacing of direct-completion calls.
type RateLimitSettings struct {
	// RequestsPerSecond is the sustained call rate.
	RequestsPerSecond float64

	// Burst is the token bucket size.
	Burst int

	// MaxRetries is how many times a rate-limited call is retried.
	MaxRetries int

	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration
}

// StorageBackend selects where session documents are downloaded from.
type StorageBackend string

// Available storage backends.
const (
	StorageGCS        StorageBackend = "gcs"
	StorageFilesystem StorageBackend = "filesystem"
)

// StorageSettings configures document downloads.
type StorageSettings struct {
	Backend StorageBackend

	// Bucket is the GCS bucket name.
	Bucket string

	// CredentialsFile is an optional service account key for GCS.
	CredentialsFile string

	// Root is the base directory for the filesystem backend.
	Root string
}

// ExtractionSettings configures the document extraction service.
// An empty Endpoint selects the built-in local extractors.
type ExtractionSettings struct {
	Endpoint string
	APIKey   string
	Model    string
}

// MatcherSettings configures relevance matching for direct completion.
type MatcherSettings struct {
	// Cap is the maximum number of matched chunks sent to the model.
	Cap int

	// FallbackCount is how many leading chunks are sent when nothing matches.
	FallbackCount int
}

// PipelineSettings configures post-processing of locally extracted paragraphs.
type PipelineSettings struct {
	// Processors names the post-processors in order.
	Processors []string

	// ProcessorConfigs holds per-processor options keyed by processor name.
	ProcessorConfigs map[string]map[string]any
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Model      ModelSettings
	RateLimit  RateLimitSettings
	Storage    StorageSettings
	Extraction ExtractionSettings
	Matcher    MatcherSettings
	Pipeline   PipelineSettings
	Server     ServerSettings

	// DataDir holds the SQLite database.
	DataDir string

	// TemplateDir holds on-disk prompt template overrides.
	TemplateDir string
}

// DefaultAppSettings returns settings with sensible defaults.
// The model backend is left unconfigured until an API key is supplied.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Model: ModelSettings{
			Strategy: StrategyDirectCompletion,
			Provider: AIProviderOpenAI,
			Model:    DefaultModels()[AIProviderOpenAI],
			Timeout:  120 * time.Second,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 1,
			Burst:             1,
			MaxRetries:        3,
			InitialBackoff:    2 * time.Second,
		},
		Storage: StorageSettings{
			Backend: StorageFilesystem,
		},
		Matcher: MatcherSettings{
			Cap:           40,
			FallbackCount: 50,
		},
		Pipeline: PipelineSettings{
			Processors: []string{"furniture", "chunker"},
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}

// DefaultModels returns default models for each provider.
func DefaultModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini:    "gemini-2.5-flash",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderOllama:    "llama3.2",
	}
}
