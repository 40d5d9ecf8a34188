package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyModelStrategy   = "model.strategy"
	keyModelProvider   = "model.provider"
	keyModelName       = "model.model"
	keyModelBaseURL    = "model.base_url"
	keyModelAPIKey     = "model.api_key"
	keyModelTimeout    = "model.timeout"
	keyRateRPS         = "rate_limit.requests_per_second"
	keyRateBurst       = "rate_limit.burst"
	keyRateMaxRetries  = "rate_limit.max_retries"
	keyRateBackoff     = "rate_limit.initial_backoff"
	keyStorageBackend  = "storage.backend"
	keyStorageBucket   = "storage.bucket"
	keyStorageCreds    = "storage.credentials_file"
	keyStorageRoot     = "storage.root"
	keyExtractEndpoint = "extraction.endpoint"
	keyExtractAPIKey   = "extraction.api_key"
	keyExtractModel    = "extraction.model"
	keyMatcherCap      = "matcher.cap"
	keyMatcherFallback = "matcher.fallback_count"
	keyPipeline        = "pipeline.processors"
	keyServerAddr      = "server.addr"
	keyDataDir         = "data_dir"
	keyTemplateDir     = "template_dir"
)

// processorConfigKeys are the per-processor options read from pipeline.<name>.<key>.
var processorConfigKeys = []string{"chunk_size", "overlap"}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.ModelConfigValidator
}

// NewSettingsService creates a new settings service. validator may be nil.
func NewSettingsService(configStore driven.ConfigStore, validator driven.ModelConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
	}
}

// Get retrieves current application settings. Unset or invalid values fall
// back to defaults. When model.api_key is unset the provider-scoped key
// (e.g. openai.api_key) is used.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(defaults.Model.Provider)
	modelName := s.getString(keyModelName, "")
	if modelName == "" {
		modelName = domain.DefaultModels()[provider]
	}
	apiKey := s.configStore.GetString(keyModelAPIKey)
	if apiKey == "" {
		apiKey = s.configStore.GetString(provider.String() + ".api_key")
	}

	settings := &domain.AppSettings{
		Model: domain.ModelSettings{
			Strategy: s.getStrategy(defaults.Model.Strategy),
			Provider: provider,
			Model:    modelName,
			BaseURL:  s.configStore.GetString(keyModelBaseURL), // No default - empty is valid for cloud providers
			APIKey:   apiKey,
			Timeout:  s.getDuration(keyModelTimeout, defaults.Model.Timeout),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(keyRateRPS, defaults.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(keyRateBurst, defaults.RateLimit.Burst),
			MaxRetries:        s.getInt(keyRateMaxRetries, defaults.RateLimit.MaxRetries),
			InitialBackoff:    s.getDuration(keyRateBackoff, defaults.RateLimit.InitialBackoff),
		},
		Storage: domain.StorageSettings{
			Backend:         s.getStorageBackend(defaults.Storage.Backend),
			Bucket:          s.configStore.GetString(keyStorageBucket),
			CredentialsFile: s.configStore.GetString(keyStorageCreds),
			Root:            s.configStore.GetString(keyStorageRoot),
		},
		Extraction: domain.ExtractionSettings{
			Endpoint: s.configStore.GetString(keyExtractEndpoint),
			APIKey:   s.configStore.GetString(keyExtractAPIKey),
			Model:    s.configStore.GetString(keyExtractModel),
		},
		Matcher: domain.MatcherSettings{
			Cap:           s.getInt(keyMatcherCap, defaults.Matcher.Cap),
			FallbackCount: s.getInt(keyMatcherFallback, defaults.Matcher.FallbackCount),
		},
		Pipeline: s.getPipeline(defaults.Pipeline),
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
		DataDir:     s.configStore.GetString(keyDataDir),
		TemplateDir: s.configStore.GetString(keyTemplateDir),
	}

	return settings, nil
}

// Save persists application settings. An empty API key leaves the stored key untouched.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are required", domain.ErrInvalidInput)
	}

	type setting struct {
		key   string
		value any
	}
	values := []setting{
		{keyModelStrategy, settings.Model.Strategy.String()},
		{keyModelProvider, settings.Model.Provider.String()},
		{keyModelName, settings.Model.Model},
		{keyModelBaseURL, settings.Model.BaseURL},
		{keyModelTimeout, settings.Model.Timeout.String()},
		{keyRateRPS, settings.RateLimit.RequestsPerSecond},
		{keyRateBurst, settings.RateLimit.Burst},
		{keyRateMaxRetries, settings.RateLimit.MaxRetries},
		{keyRateBackoff, settings.RateLimit.InitialBackoff.String()},
		{keyStorageBackend, string(settings.Storage.Backend)},
		{keyStorageBucket, settings.Storage.Bucket},
		{keyStorageCreds, settings.Storage.CredentialsFile},
		{keyStorageRoot, settings.Storage.Root},
		{keyExtractEndpoint, settings.Extraction.Endpoint},
		{keyExtractModel, settings.Extraction.Model},
		{keyMatcherCap, settings.Matcher.Cap},
		{keyMatcherFallback, settings.Matcher.FallbackCount},
		{keyServerAddr, settings.Server.Addr},
		{keyDataDir, settings.DataDir},
		{keyTemplateDir, settings.TemplateDir},
	}
	if settings.Model.APIKey != "" {
		values = append(values, setting{keyModelAPIKey, settings.Model.APIKey})
	}
	if settings.Extraction.APIKey != "" {
		values = append(values, setting{keyExtractAPIKey, settings.Extraction.APIKey})
	}
	if len(settings.Pipeline.Processors) > 0 {
		values = append(values, setting{keyPipeline, settings.Pipeline.Processors})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetModel configures the model strategy and provider.
// An empty model selects the provider default.
func (s *SettingsService) SetModel(strategy domain.ModelStrategy, provider domain.AIProvider, model, apiKey string) error {
	if !strategy.IsValid() {
		return fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, strategy)
	}
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsStrategy(strategy) {
		return fmt.Errorf("%w: %s does not support %s", domain.ErrInvalidInput, provider, strategy)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.configStore.GetString(provider.String()+".api_key") == "" {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = domain.DefaultModels()[provider]
	}

	if err := s.configStore.Set(keyModelStrategy, strategy.String()); err != nil {
		return fmt.Errorf("save model strategy: %w", err)
	}
	if err := s.configStore.Set(keyModelProvider, provider.String()); err != nil {
		return fmt.Errorf("save model provider: %w", err)
	}
	if err := s.configStore.Set(keyModelName, model); err != nil {
		return fmt.Errorf("save model name: %w", err)
	}
	if apiKey != "" {
		if err := s.configStore.Set(keyModelAPIKey, apiKey); err != nil {
			return fmt.Errorf("save model api_key: %w", err)
		}
	}
	return nil
}

// Validate checks the model backend and document storage are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	m := settings.Model
	if !m.Provider.SupportsStrategy(m.Strategy) {
		errs = append(errs, fmt.Errorf("%s does not support %s", m.Provider, m.Strategy))
	}
	if m.Provider.RequiresAPIKey() && m.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s requires an API key (set %s or %s.api_key)", m.Provider, keyModelAPIKey, m.Provider))
	}
	if settings.Storage.Backend == domain.StorageGCS && settings.Storage.Bucket == "" {
		errs = append(errs, fmt.Errorf("gcs storage requires %s", keyStorageBucket))
	}
	if settings.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", keyRateRPS))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateModelConfig validates the current model configuration by pinging the provider.
func (s *SettingsService) ValidateModelConfig() error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateModel(*settings)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetInt(key)
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetFloat(key)
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if d := s.configStore.GetDuration(key); d > 0 {
		return d
	}
	return defaultVal
}

func (s *SettingsService) getStrategy(defaultVal domain.ModelStrategy) domain.ModelStrategy {
	strategy := domain.ModelStrategy(s.configStore.GetString(keyModelStrategy))
	if !strategy.IsValid() {
		return defaultVal
	}
	return strategy
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyModelProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getStorageBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	switch backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend)); backend {
	case domain.StorageGCS, domain.StorageFilesystem:
		return backend
	default:
		return defaultVal
	}
}

// getPipeline returns the post-processor list and per-processor options.
func (s *SettingsService) getPipeline(defaults domain.PipelineSettings) domain.PipelineSettings {
	pipeline := domain.PipelineSettings{Processors: defaults.Processors}
	if processors := s.configStore.GetStringSlice(keyPipeline); len(processors) > 0 {
		pipeline.Processors = processors
	}

	for _, name := range pipeline.Processors {
		cfg := make(map[string]any)
		for _, key := range processorConfigKeys {
			if val, exists := s.configStore.Get("pipeline." + name + "." + key); exists {
				cfg[key] = val
			}
		}
		if len(cfg) == 0 {
			continue
		}
		if pipeline.ProcessorConfigs == nil {
			pipeline.ProcessorConfigs = make(map[string]map[string]any)
		}
		pipeline.ProcessorConfigs[name] = cfg
	}
	return pipeline
}
