package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

var (
	resultsJSON   bool
	resultsStatus string
)

var resultsCmd = &cobra.Command{
	Use:   "results [validation-detail-id]",
	Short: "List the results recorded for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "output results as JSON")
	resultsCmd.Flags().StringVar(&resultsStatus, "status", "", "only show results with this status (e.g. NotMet)")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}
	svc, err := sessionQuery()
	if err != nil {
		return err
	}

	results, err := svc.Results(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	if resultsStatus != "" {
		results = filterResults(results, domain.ParseResultStatus(resultsStatus))
	}

	if resultsJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i := range results {
		r := &results[i]
		cmd.Printf("[%s %s] %s\n", r.RequirementType, r.RequirementNumber, r.Status)
		cmd.Printf("  %s\n", truncate(r.RequirementText, 100))
		if r.Reasoning != "" {
			cmd.Printf("  Reasoning: %s\n", truncate(r.Reasoning, 200))
		}
	}
	cmd.Printf("\n%d result(s)\n", len(results))
	return nil
}

func filterResults(results []domain.ValidationResult, status domain.ResultStatus) []domain.ValidationResult {
	out := make([]domain.ValidationResult, 0, len(results))
	for i := range results {
		if results[i].Status == status {
			out = append(out, results[i])
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
