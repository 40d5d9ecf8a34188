package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

var requirementsJSON bool

var requirementsCmd = &cobra.Command{
	Use:   "requirements [unit-code] [type]",
	Short: "List the requirements of a unit",
	Long: `Lists the canonical requirements for a unit of competency.

Types: knowledge_evidence (ke), performance_evidence (pe), foundation_skills (fs),
elements_criteria (epc), assessment_conditions (ac), and the aggregates full_unit
and learner_guide which list every concrete type.`,
	Args: cobra.ExactArgs(2),
	RunE: runRequirements,
}

func init() {
	requirementsCmd.Flags().BoolVar(&requirementsJSON, "json", false, "output requirements as JSON")
	rootCmd.AddCommand(requirementsCmd)
}

func runRequirements(cmd *cobra.Command, args []string) error {
	reqType, err := domain.ParseRequirementType(args[1])
	if err != nil {
		return fmt.Errorf("unknown requirement type %q: %w", args[1], err)
	}
	if services == nil || services.Requirements == nil {
		return errors.New("requirements service not configured")
	}

	reqs, err := services.Requirements.Fetch(cmd.Context(), args[0], reqType)
	if err != nil {
		return fmt.Errorf("failed to fetch requirements: %w", err)
	}

	if requirementsJSON {
		data, err := json.MarshalIndent(reqs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal requirements: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(reqs) == 0 {
		cmd.Println("No requirements found.")
		return nil
	}
	var current domain.RequirementType
	for i := range reqs {
		if reqs[i].Type != current {
			current = reqs[i].Type
			cmd.Printf("%s\n", current.Description())
		}
		cmd.Printf("  %-6s %s\n", reqs[i].Number, reqs[i].Text)
	}
	return nil
}
