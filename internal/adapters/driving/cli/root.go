// Package cli implements the compliance command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipServices marks commands that run without the engine.
const skipServices = "skip-services"

var (
	verbose   bool
	configDir string
	logFormat string
)

// Services are the engine entry points commands call into.
type Services struct {
	// Orchestrator runs sessions. It is nil when the model backend is not
	// configured; OrchestratorErr then explains why.
	Orchestrator    driving.ValidationOrchestrator
	OrchestratorErr error

	Sessions     driving.SessionQuery
	Requirements driving.RequirementQuery
	Settings     driving.SettingsService

	// Gatherer serves /metrics.
	Gatherer prometheus.Gatherer

	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error

	// WatchTemplates reloads prompt template files on change until ctx ends.
	// Long-running commands start it.
	WatchTemplates func(ctx context.Context) error

	// Close releases stores and backends.
	Close func() error
}

// BootstrapFunc builds services from a configuration directory.
type BootstrapFunc func(ctx context.Context, configDir string) (*Services, error)

var (
	services  *Services
	bootstrap BootstrapFunc
)

var rootCmd = &cobra.Command{
	Use:   "compliance",
	Short: "Validate training material against unit requirements",
	Long: `compliance runs validation sessions that check uploaded training documents
against the requirements of a unit of competency, one model call per requirement.

Sessions are created upstream (or with 'compliance session create') and run with
'compliance validate <id>'. Progress and results can be polled with 'status',
'results' and 'watch', or over HTTP with 'compliance serve'.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.compliance)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logger.FormatText), "log line format (text or json)")
}

// SetServices installs services directly, bypassing bootstrap.
func SetServices(s *Services) {
	services = s
}

// SetBootstrap sets the function used to build services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if services != nil && services.Close != nil {
			if err := services.Close(); err != nil {
				logger.Warn("closing services: %v", err)
			}
		}
	}()
	return rootCmd.Execute()
}

func loadServices(cmd *cobra.Command, _ []string) error {
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	logger.SetFormat(format)
	logger.SetVerbose(verbose || os.Getenv("COMPLIANCE_VERBOSE") == "1")
	logger.SetOutput(cmd.ErrOrStderr())

	if cmd.Annotations[skipServices] != "" || services != nil {
		return nil
	}
	if bootstrap == nil {
		return nil
	}
	dir := configDir
	if dir == "" {
		dir = os.Getenv("COMPLIANCE_CONFIG_DIR")
	}
	s, err := bootstrap(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	services = s
	return nil
}

func sessionQuery() (driving.SessionQuery, error) {
	if services == nil || services.Sessions == nil {
		return nil, errors.New("session service not configured")
	}
	return services.Sessions, nil
}

func orchestrator() (driving.ValidationOrchestrator, error) {
	if services == nil {
		return nil, errors.New("validation service not configured")
	}
	if services.Orchestrator == nil {
		if services.OrchestratorErr != nil {
			return nil, services.OrchestratorErr
		}
		return nil, errors.New("validation service not configured")
	}
	return services.Orchestrator, nil
}

func parseSessionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid validation detail id %q", arg)
	}
	return id, nil
}

// watchTemplates starts template hot reload when available. Failures are
// logged since serving works without it.
func watchTemplates(ctx context.Context) {
	if services == nil || services.WatchTemplates == nil {
		return
	}
	if err := services.WatchTemplates(ctx); err != nil {
		logger.Warn("template reload disabled: %v", err)
	}
}
