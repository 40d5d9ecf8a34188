package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [validation-detail-id]",
	Short: "Run a pending validation session",
	Long: `Runs every requirement of a pending session against its documents and prints
the run summary. Per-requirement failures are recorded as Error results and do not
stop the run. The session ends completed, partial or failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output summary as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}
	svc, err := orchestrator()
	if err != nil {
		return err
	}

	summary, runErr := svc.Validate(cmd.Context(), id)
	if summary != nil {
		if err := printSummary(cmd, summary); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("validation failed: %w", runErr)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *domain.Summary) error {
	if validateJSON {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Session %d: %s\n", s.SessionID, s.Status)
	cmd.Printf("  Requirements: %d\n", s.TotalRequirements)
	cmd.Printf("  Successful:   %d\n", s.SuccessfulValidations)
	cmd.Printf("  Failed:       %d\n", s.FailedValidations)
	for _, status := range domain.AllResultStatuses() {
		if n := s.StatusDistribution[status]; n > 0 {
			cmd.Printf("  %-13s %d\n", status.String()+":", n)
		}
	}
	cmd.Printf("  Elapsed:      %dms\n", s.ElapsedMs)
	return nil
}
