// Package app wires adapters and core services into a runnable engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/ai"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/blob/filesystem"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/blob/gcs"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/config/file"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/extraction/docintel"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/extraction/local"
	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/core/services"
	"github.com/custodia-labs/compliance-engine/internal/logger"
	"github.com/custodia-labs/compliance-engine/internal/normalisers"
	"github.com/custodia-labs/compliance-engine/internal/observability"
	"github.com/custodia-labs/compliance-engine/internal/postprocessors"
)

// App holds every wired component of the engine.
type App struct {
	ConfigDir string

	// Configuration
	Settings    *services.SettingsService
	AppSettings *domain.AppSettings

	// Storage
	Store     *sqlite.Store
	Templates *file.TemplateStore
	Blobs     driven.ObjectStorage

	// Observability
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Core services
	Cache        *services.DocumentContentCache
	Sessions     *services.SessionService
	Requirements *services.RequirementsRepository

	// Orchestrator is nil when the model backend cannot be built;
	// OrchestratorErr then says why.
	Orchestrator    *services.ValidationService
	OrchestratorErr error

	model   *ai.InitResult
	closers []func() error
}

// New builds the engine from the settings under configDir. An empty
// configDir selects ~/.compliance. A missing or broken model configuration
// does not fail New; only commands that validate need the model.
func New(ctx context.Context, configDir string) (*App, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		configDir = dir
	}
	a := &App{ConfigDir: configDir}

	// --- Configuration ---
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a.Settings = services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := a.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	a.AppSettings = settings

	// --- Observability ---
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = observability.NewMetrics(a.Registry)

	// --- Storage ---
	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}
	a.Store, err = sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.closers = append(a.closers, a.Store.Close)

	templateDir := settings.TemplateDir
	if templateDir == "" {
		templateDir = filepath.Join(configDir, "templates")
	}
	a.Templates, err = file.NewTemplateStore(templateDir, a.Store.PromptTemplateStore())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("opening template store: %w", err)
	}

	a.Blobs, err = a.newObjectStorage(ctx, settings.Storage)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	extractor, err := newExtractor(settings)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	// --- Core services ---
	a.Cache = services.NewDocumentContentCache(
		a.Store.ChunkStore(), a.Blobs, extractor,
		services.WithCacheMetrics(a.Metrics),
	)
	a.Requirements = services.NewRequirementsRepository(a.Store.RequirementSource())
	a.Sessions = services.NewSessionService(a.Store.SessionStore(), a.Store.ResultStore())

	// --- Model backend ---
	if !settings.Model.IsConfigured() {
		a.OrchestratorErr = fmt.Errorf("%w: model backend %s is not configured, run 'compliance settings model'",
			domain.ErrLLMUnavailable, settings.Model.Provider)
		logger.Debug("orchestrator disabled: %v", a.OrchestratorErr)
		return a, nil
	}
	a.model, err = ai.CreateModelClient(*settings, a.Metrics)
	if err != nil {
		a.OrchestratorErr = fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		logger.Warn("model backend unavailable: %v", err)
		return a, nil
	}
	a.Orchestrator = services.NewValidationService(
		a.Store.SessionStore(),
		a.Store.ResultStore(),
		a.Requirements,
		services.NewPromptResolver(a.Templates),
		a.Cache,
		a.model.Client,
		a.Metrics,
	)
	logger.Debug("orchestrator ready: %s via %s (%s)",
		settings.Model.Strategy, settings.Model.Provider, settings.Model.Model)
	return a, nil
}

func (a *App) newObjectStorage(ctx context.Context, cfg domain.StorageSettings) (driven.ObjectStorage, error) {
	switch cfg.Backend {
	case domain.StorageGCS:
		s, err := gcs.New(ctx, gcs.Config{Bucket: cfg.Bucket, CredentialsFile: cfg.CredentialsFile})
		if err != nil {
			return nil, fmt.Errorf("%w: gcs: %w", domain.ErrStorageUnavailable, err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		root := cfg.Root
		if root == "" {
			root = "."
		}
		s, err := filesystem.New(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
		}
		return s, nil
	}
}

// newExtractor selects the remote extraction service when an endpoint is
// configured and the local extractors otherwise.
func newExtractor(settings *domain.AppSettings) (driven.Extractor, error) {
	if settings.Extraction.Endpoint != "" {
		e, err := docintel.New(docintel.Config{
			Endpoint: settings.Extraction.Endpoint,
			APIKey:   settings.Extraction.APIKey,
			Model:    settings.Extraction.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("creating extractor: %w", err)
		}
		return e, nil
	}

	pipeline, err := postprocessors.NewRegistry().Pipeline(settings.Pipeline.Processors, settings.Pipeline.ProcessorConfigs)
	if err != nil {
		return nil, fmt.Errorf("building extraction pipeline: %w", err)
	}
	return local.New(normalisers.NewDefaultRegistry(), pipeline), nil
}

// WatchTemplates reloads on-disk prompt templates as they change until ctx ends.
func (a *App) WatchTemplates(ctx context.Context) error {
	return a.Templates.Watch(ctx, file.DefaultReloadDebounce)
}

// Ready reports whether the database answers.
func (a *App) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Close waits for pending cache writes and releases every resource.
func (a *App) Close() error {
	if a.Cache != nil {
		a.Cache.Wait()
	}
	if a.model != nil {
		a.model.Close()
		a.model = nil
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
