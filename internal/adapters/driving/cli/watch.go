package cli

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/tui"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [validation-detail-id]",
	Short: "Watch session progress in the terminal UI",
	Long: `Poll a validation session and show its progress until it finishes.

Once the session reaches a terminal state the recorded results are loaded.

Controls:
  tab      - Toggle progress / results
  ↑/k, ↓/j - Navigate results
  r        - Refresh now
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", tui.DefaultPollInterval, "poll interval")
	rootCmd.AddCommand(watchCmd)
}

// newWatchApp builds the watcher for the given argument.
func newWatchApp(cmd *cobra.Command, arg string) (*tui.App, error) {
	id, err := parseSessionID(arg)
	if err != nil {
		return nil, err
	}
	svc, err := sessionQuery()
	if err != nil {
		return nil, err
	}

	app, err := tui.NewApp(svc, id, watchInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	return app.WithContext(cmd.Context()), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := newWatchApp(cmd, args[0])
	if err != nil {
		return err
	}
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
