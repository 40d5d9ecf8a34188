package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/api"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API used by the upstream application to trigger sessions and
poll their progress.

  POST /v1/validations               {"validationDetailId": 42}  (?async=true for background runs)
  GET  /v1/validations/:id           status and validation_count/total/progress
  GET  /v1/validations/:id/results   recorded results (?status=NotMet to filter)
  GET  /health
  GET  /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if services == nil {
		return errors.New("services not configured")
	}

	addr := serveAddr
	if addr == "" && services.Settings != nil {
		if settings, err := services.Settings.Get(); err == nil {
			addr = settings.Server.Addr
		}
	}
	if addr == "" {
		addr = ":8080"
	}

	server, err := api.NewServer(api.Config{
		Orchestrator: services.Orchestrator,
		Sessions:     services.Sessions,
		Gatherer:     services.Gatherer,
		Ready:        services.Ready,
	})
	if err != nil {
		return err
	}

	logger.SetTimestamps(true)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	watchTemplates(ctx)

	cmd.Printf("HTTP API listening on %s\n", addr)
	return server.Run(ctx, addr)
}
