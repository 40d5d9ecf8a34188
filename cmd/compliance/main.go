package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/cli"
	"github.com/custodia-labs/compliance-engine/internal/app"
)

// Set by ldflags at build time.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap maps the wired engine onto the services the commands use.
func bootstrap(ctx context.Context, configDir string) (*cli.Services, error) {
	a, err := app.New(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("starting engine: %w", err)
	}

	svc := &cli.Services{
		OrchestratorErr: a.OrchestratorErr,
		Sessions:        a.Sessions,
		Requirements:    a.Requirements,
		Settings:        a.Settings,
		Gatherer:        a.Registry,
		Ready:           a.Ready,
		WatchTemplates:  a.WatchTemplates,
		Close:           a.Close,
	}
	if a.Orchestrator != nil {
		svc.Orchestrator = a.Orchestrator
	}
	return svc, nil
}
