package mcp

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// mockOrchestrator is a mock implementation of driving.ValidationOrchestrator.
type mockOrchestrator struct {
	summary *domain.Summary
	err     error
	called  []int64
	ctxErr  error
}

func (m *mockOrchestrator) Validate(ctx context.Context, sessionID int64) (*domain.Summary, error) {
	m.called = append(m.called, sessionID)
	m.ctxErr = ctx.Err()
	return m.summary, m.err
}

// mockSessionQuery is a mock implementation of driving.SessionQuery.
type mockSessionQuery struct {
	session *domain.ValidationSession
	results []domain.ValidationResult
	err     error
}

func (m *mockSessionQuery) Session(_ context.Context, _ int64) (*domain.ValidationSession, error) {
	return m.session, m.err
}

func (m *mockSessionQuery) Results(_ context.Context, _ int64) ([]domain.ValidationResult, error) {
	return m.results, m.err
}

func (m *mockSessionQuery) Create(_ context.Context, _ *domain.ValidationSession) error {
	return m.err
}

// mockRequirementQuery is a mock implementation of driving.RequirementQuery.
type mockRequirementQuery struct {
	reqs    []domain.Requirement
	err     error
	gotType domain.RequirementType
}

func (m *mockRequirementQuery) Fetch(_ context.Context, _ string, reqType domain.RequirementType) ([]domain.Requirement, error) {
	m.gotType = reqType
	return m.reqs, m.err
}
