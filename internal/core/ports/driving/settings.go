package driving

import "github.com/custodia-labs/compliance-engine/internal/core/domain"

// SettingsService reads and writes engine settings. Unset values read as
// their defaults.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	GetDefaults() domain.AppSettings

	// Save writes every field. Empty API keys leave stored keys alone.
	Save(settings *domain.AppSettings) error

	// SetModel selects strategy and provider. An empty model picks the
	// provider default.
	SetModel(strategy domain.ModelStrategy, provider domain.AIProvider, model, apiKey string) error

	// Validate reports every setting that would stop a validation run,
	// wrapped in domain.ErrInvalidInput.
	Validate() error

	// ValidateModelConfig builds the configured backend and pings it.
	ValidateModelConfig() error
}
