package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
)

var (
	modelStrategy string
	modelProvider string
	modelName     string
	modelAPIKey   string
	resetYes      bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the model backend, storage, extraction and other options.

Settings are stored in config.toml under the configuration directory. Any key
can be overridden with a COMPLIANCE_ environment variable, for example
COMPLIANCE_MODEL_API_KEY or COMPLIANCE_OPENAI_API_KEY.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsModelCmd = &cobra.Command{
	Use:   "model",
	Short: "Configure the model backend",
	Long: `Configure the model strategy and provider.

Strategies:
  managed_grounding  - provider-side retrieval over an indexed document store (gemini)
  direct_completion  - local relevance matching plus JSON completion (openai, anthropic, ollama)

Flags that are not given are prompted for.`,
	RunE: runSettingsModel,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and ping the model backend",
	RunE:  runSettingsCheck,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Write default settings to the config file",
	Long: `Overwrite every setting with its default. Stored API keys are kept, so a
configured provider key survives a reset.`,
	Args: cobra.NoArgs,
	RunE: runSettingsReset,
}

func init() {
	settingsResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")

	f := settingsModelCmd.Flags()
	f.StringVar(&modelStrategy, "strategy", "", "model strategy (managed_grounding or direct_completion)")
	f.StringVar(&modelProvider, "provider", "", "provider (gemini, openai, anthropic, ollama)")
	f.StringVar(&modelName, "model", "", "model name (default per provider)")
	f.StringVar(&modelAPIKey, "api-key", "", "provider API key (prompted when omitted)")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsModelCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsService() (driving.SettingsService, error) {
	if services == nil || services.Settings == nil {
		return nil, errors.New("settings service not configured")
	}
	return services.Settings, nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Model]")
	cmd.Printf("  Strategy: %s\n", settings.Model.Strategy.Description())
	cmd.Printf("  Provider: %s\n", settings.Model.Provider)
	cmd.Printf("  Model: %s\n", settings.Model.Model)
	if settings.Model.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Model.BaseURL)
	}
	if settings.Model.Provider.RequiresAPIKey() {
		if settings.Model.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Model.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.Model.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	if settings.Model.Strategy.UsesMatcher() {
		cmd.Println("[Rate Limit]")
		cmd.Printf("  Requests/s: %g (burst %d)\n", settings.RateLimit.RequestsPerSecond, settings.RateLimit.Burst)
		cmd.Printf("  Retries: %d (initial backoff %s)\n", settings.RateLimit.MaxRetries, settings.RateLimit.InitialBackoff)
		cmd.Println()

		cmd.Println("[Matcher]")
		cmd.Printf("  Cap: %d\n", settings.Matcher.Cap)
		cmd.Printf("  Fallback: %d\n", settings.Matcher.FallbackCount)
		cmd.Println()
	}

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	switch settings.Storage.Backend {
	case domain.StorageGCS:
		cmd.Printf("  Bucket: %s\n", settings.Storage.Bucket)
	case domain.StorageFilesystem:
		cmd.Printf("  Root: %s\n", settings.Storage.Root)
	}
	cmd.Println()

	cmd.Println("[Extraction]")
	if settings.Extraction.Endpoint != "" {
		cmd.Printf("  Endpoint: %s\n", settings.Extraction.Endpoint)
	} else {
		cmd.Printf("  Local extractors, pipeline: %s\n", strings.Join(settings.Pipeline.Processors, ", "))
	}
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'compliance settings model' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsModel(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	strategy := domain.ModelStrategy(modelStrategy)
	if modelStrategy == "" {
		strategies := []domain.ModelStrategy{domain.StrategyDirectCompletion, domain.StrategyManagedGrounding}
		strategy = choose(cmd, reader, "Select Model Strategy", strategies, domain.ModelStrategy.Description)
	}
	if !strategy.IsValid() {
		return fmt.Errorf("unknown strategy %q", strategy)
	}

	provider := domain.AIProvider(modelProvider)
	if modelProvider == "" {
		provider = choose(cmd, reader, "Select Provider", providersFor(strategy), domain.AIProvider.String)
	}
	if !provider.SupportsStrategy(strategy) {
		return fmt.Errorf("provider %q does not support %s", provider, strategy)
	}

	model := modelName
	if model == "" {
		fallback := domain.DefaultModels()[provider]
		cmd.Printf("Enter model name [%s]: ", fallback)
		if model = readLine(reader); model == "" {
			model = fallback
		}
	}

	apiKey := modelAPIKey
	if apiKey == "" && provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(in, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := svc.SetModel(strategy, provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure model: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := svc.ValidateModelConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("model configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Model configured: %s via %s (%s)\n", strategy, provider, model)
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	if err := svc.Validate(); err != nil {
		return fmt.Errorf("settings are invalid: %w", err)
	}
	cmd.Print("Pinging model backend... ")
	if err := svc.ValidateModelConfig(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("model backend check failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

func runSettingsReset(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	if !resetYes {
		cmd.Print("Overwrite all settings with defaults? [y/N] ")
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	defaults := svc.GetDefaults()
	if err := svc.Save(&defaults); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	cmd.Printf("Settings reset: %s via %s (%s)\n", defaults.Model.Strategy, defaults.Model.Provider, defaults.Model.Model)
	return nil
}

func providersFor(strategy domain.ModelStrategy) []domain.AIProvider {
	all := []domain.AIProvider{
		domain.AIProviderOpenAI,
		domain.AIProviderAnthropic,
		domain.AIProviderOllama,
		domain.AIProviderGemini,
	}
	out := make([]domain.AIProvider, 0, len(all))
	for _, p := range all {
		if p.SupportsStrategy(strategy) {
			out = append(out, p)
		}
	}
	return out
}

// choose prints a numbered menu and returns the picked option. Empty or
// out-of-range input picks the first.
func choose[T any](cmd *cobra.Command, reader *bufio.Reader, title string, options []T, label func(T) string) T {
	cmd.Println(title)
	for i, o := range options {
		cmd.Printf("  %d. %s\n", i+1, label(o))
	}
	cmd.Print("\nEnter choice [1]: ")
	return options[parseChoice(readLine(reader), len(options), 1)-1]
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo when in is a terminal.
func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if secret, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
