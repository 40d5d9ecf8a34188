package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driving/api"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [validation-detail-id]",
	Short: "Show session status and progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}
	svc, err := sessionQuery()
	if err != nil {
		return err
	}

	session, err := svc.Session(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	view := api.NewSessionView(session)

	if statusJSON {
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Session %d (%s, %s)\n", view.ID, view.UnitCode, view.RequirementType)
	cmd.Printf("  Status:   %s\n", view.Status)
	cmd.Printf("  Progress: %d/%d (%d%%)\n", view.ValidationCount, view.ValidationTotal, view.ValidationProgress)
	if view.ErrorMessage != "" {
		cmd.Printf("  Error:    %s\n", view.ErrorMessage)
	}
	return nil
}
