package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// SessionInput identifies a validation session.
type SessionInput struct {
	ValidationDetailID int64 `json:"validation_detail_id" jsonschema:"the validation detail id of the session"`
}

// ResultsInput is the input schema for the list_results tool.
type ResultsInput struct {
	ValidationDetailID int64  `json:"validation_detail_id" jsonschema:"the validation detail id of the session"`
	Status             string `json:"status,omitempty" jsonschema:"only return results with this status (Met, PartiallyMet, NotMet, Error, Unknown)"`
}

// RequirementsInput is the input schema for the list_requirements tool.
type RequirementsInput struct {
	UnitCode        string `json:"unit_code" jsonschema:"the unit of competency code"`
	RequirementType string `json:"requirement_type" jsonschema:"requirement type or alias (ke, pe, fs, epc, ac, full_unit, learner_guide)"`
}

// SummaryOutput is the output schema for the validate_session tool.
type SummaryOutput struct {
	ValidationDetailID    int64          `json:"validation_detail_id"`
	Status                string         `json:"status"`
	TotalRequirements     int            `json:"total_requirements"`
	SuccessfulValidations int            `json:"successful_validations"`
	FailedValidations     int            `json:"failed_validations"`
	StatusDistribution    map[string]int `json:"status_distribution"`
	ElapsedMs             int64          `json:"elapsed_ms"`
	Error                 string         `json:"error,omitempty"`
}

// StatusOutput is the output schema for the session_status tool.
type StatusOutput struct {
	ValidationDetailID int64  `json:"validation_detail_id"`
	UnitCode           string `json:"unit_code"`
	RequirementType    string `json:"requirement_type"`
	Status             string `json:"status"`
	ValidationCount    int    `json:"validation_count"`
	ValidationTotal    int    `json:"validation_total"`
	ValidationProgress int    `json:"validation_progress"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

// ResultsOutput is the output schema for the list_results tool.
type ResultsOutput struct {
	Results []ResultOutput `json:"results"`
	Count   int            `json:"count"`
}

// ResultOutput represents a single validation result.
type ResultOutput struct {
	RequirementType   string `json:"requirement_type"`
	RequirementNumber string `json:"requirement_number"`
	RequirementText   string `json:"requirement_text"`
	Status            string `json:"status"`
	Reasoning         string `json:"reasoning,omitempty"`
	Citations         string `json:"citations,omitempty"`
	Recommendations   string `json:"recommendations,omitempty"`
}

// RequirementsOutput is the output schema for the list_requirements tool.
type RequirementsOutput struct {
	Requirements []RequirementOutput `json:"requirements"`
	Count        int                 `json:"count"`
}

// RequirementOutput represents a single requirement.
type RequirementOutput struct {
	Type   string `json:"type"`
	Number string `json:"number"`
	Text   string `json:"text"`
}

// registerTools registers the tool handlers. list_requirements needs the
// requirement port.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, s.track(&mcp.Tool{
		Name:        "validate_session",
		Description: "Run a pending validation session and return its summary",
	}), s.handleValidate)

	mcp.AddTool(s.server, s.track(&mcp.Tool{
		Name:        "session_status",
		Description: "Get the status and progress of a validation session",
	}), s.handleStatus)

	mcp.AddTool(s.server, s.track(&mcp.Tool{
		Name:        "list_results",
		Description: "List the validation results recorded for a session",
	}), s.handleResults)

	if s.ports.Requirements != nil {
		mcp.AddTool(s.server, s.track(&mcp.Tool{
			Name:        "list_requirements",
			Description: "List the requirements of a unit of competency",
		}), s.handleRequirements)
	}
}

func (s *Server) track(t *mcp.Tool) *mcp.Tool {
	s.tools = append(s.tools, t.Name)
	return t
}

// handleValidate handles the validate_session tool invocation.
// A run that ends failed still returns its summary with the error text.
func (s *Server) handleValidate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SummaryOutput, error) {
	if s.ports.Orchestrator == nil {
		return nil, SummaryOutput{}, ErrValidationUnavailable
	}

	summary, err := s.ports.Orchestrator.Validate(context.WithoutCancel(ctx), input.ValidationDetailID)
	if summary == nil {
		if err == nil {
			err = fmt.Errorf("session %d returned no summary", input.ValidationDetailID)
		}
		return nil, SummaryOutput{}, err
	}

	output := SummaryOutput{
		ValidationDetailID:    summary.SessionID,
		Status:                summary.Status.String(),
		TotalRequirements:     summary.TotalRequirements,
		SuccessfulValidations: summary.SuccessfulValidations,
		FailedValidations:     summary.FailedValidations,
		StatusDistribution:    make(map[string]int, len(summary.StatusDistribution)),
		ElapsedMs:             summary.ElapsedMs,
	}
	for status, n := range summary.StatusDistribution {
		output.StatusDistribution[status.String()] = n
	}
	if err != nil {
		output.Error = err.Error()
	}

	return nil, output, nil
}

// handleStatus handles the session_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	session, err := s.ports.Sessions.Session(ctx, input.ValidationDetailID)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	return nil, StatusOutput{
		ValidationDetailID: session.ID,
		UnitCode:           session.UnitCode,
		RequirementType:    session.RequirementType.String(),
		Status:             session.Status.String(),
		ValidationCount:    session.RequirementCount,
		ValidationTotal:    session.RequirementTotal,
		ValidationProgress: session.ProgressPercent,
		ErrorMessage:       session.ErrorMessage,
	}, nil
}

// handleResults handles the list_results tool invocation.
func (s *Server) handleResults(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResultsInput,
) (*mcp.CallToolResult, ResultsOutput, error) {
	results, err := s.ports.Sessions.Results(ctx, input.ValidationDetailID)
	if err != nil {
		return nil, ResultsOutput{}, err
	}

	var filter domain.ResultStatus
	if input.Status != "" {
		filter = domain.ParseResultStatus(input.Status)
	}

	output := ResultsOutput{Results: make([]ResultOutput, 0, len(results))}
	for i := range results {
		if filter != "" && results[i].Status != filter {
			continue
		}
		output.Results = append(output.Results, ResultOutput{
			RequirementType:   results[i].RequirementType.String(),
			RequirementNumber: results[i].RequirementNumber,
			RequirementText:   results[i].RequirementText,
			Status:            results[i].Status.String(),
			Reasoning:         results[i].Reasoning,
			Citations:         results[i].Citations,
			Recommendations:   results[i].Recommendations,
		})
	}
	output.Count = len(output.Results)

	return nil, output, nil
}

// handleRequirements handles the list_requirements tool invocation.
func (s *Server) handleRequirements(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RequirementsInput,
) (*mcp.CallToolResult, RequirementsOutput, error) {
	reqType, err := domain.ParseRequirementType(input.RequirementType)
	if err != nil {
		return nil, RequirementsOutput{}, fmt.Errorf("requirement type %q: %w", input.RequirementType, err)
	}

	reqs, err := s.ports.Requirements.Fetch(ctx, input.UnitCode, reqType)
	if err != nil {
		return nil, RequirementsOutput{}, err
	}

	output := RequirementsOutput{
		Requirements: make([]RequirementOutput, len(reqs)),
		Count:        len(reqs),
	}
	for i := range reqs {
		output.Requirements[i] = RequirementOutput{
			Type:   reqs[i].Type.String(),
			Number: reqs[i].Number,
			Text:   reqs[i].Text,
		}
	}

	return nil, output, nil
}
