package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for compliance resources.
	uriScheme = "compliance://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource describing requirement types.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "requirement-types",
		Name:        "requirement-types",
		Description: "Requirement types a session can be validated against",
		MIMEType:    "application/json",
	}, s.handleRequirementTypesResource)

	// Template for session state.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sessions/{validationDetailId}",
		Name:        "session",
		Description: "Status and progress of a validation session",
		MIMEType:    "application/json",
	}, s.handleSessionResource)

	// Template for session results.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sessions/{validationDetailId}/results",
		Name:        "session-results",
		Description: "Validation results recorded for a session",
		MIMEType:    "application/json",
	}, s.handleResultsResource)
}

// handleRequirementTypesResource lists concrete and aggregate requirement types.
func (s *Server) handleRequirementTypesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type typeInfo struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Expands     []string `json:"expands,omitempty"`
	}

	all := append(domain.ConcreteRequirementTypes(), domain.RequirementFullUnit, domain.RequirementLearnerGuide)
	infos := make([]typeInfo, len(all))
	for i, t := range all {
		infos[i] = typeInfo{Name: t.String(), Description: t.Description()}
		if t.IsAggregate() {
			for _, c := range t.Expand() {
				infos[i].Expands = append(infos[i].Expands, c.String())
			}
		}
	}

	return jsonResource(req.Params.URI, infos, "requirement types")
}

// handleSessionResource returns a session's state.
func (s *Server) handleSessionResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract id from URI: compliance://sessions/{validationDetailId}
	id := extractSessionID(req.Params.URI)
	if id == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	_, status, err := s.handleStatus(ctx, nil, SessionInput{ValidationDetailID: id})
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	return jsonResource(req.Params.URI, status, "session")
}

// handleResultsResource returns a session's results.
func (s *Server) handleResultsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract id from URI: compliance://sessions/{validationDetailId}/results
	id := extractResultsSessionID(req.Params.URI)
	if id == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	_, results, err := s.handleResults(ctx, nil, ResultsInput{ValidationDetailID: id})
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	return jsonResource(req.Params.URI, results.Results, "results")
}

func jsonResource(uri string, v any, what string) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", what, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSessionID extracts the id from a URI like compliance://sessions/{id}.
// Returns 0 when the URI does not name a session.
func extractSessionID(uri string) int64 {
	const prefix = uriScheme + "sessions/"

	if !strings.HasPrefix(uri, prefix) {
		return 0
	}

	return parseID(strings.TrimPrefix(uri, prefix))
}

// extractResultsSessionID extracts the id from a URI like
// compliance://sessions/{id}/results.
func extractResultsSessionID(uri string) int64 {
	const suffix = "/results"

	if !strings.HasSuffix(uri, suffix) {
		return 0
	}

	return extractSessionID(strings.TrimSuffix(uri, suffix))
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
