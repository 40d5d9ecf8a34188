package driving

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// ValidationOrchestrator runs a validation session end to end.
type ValidationOrchestrator interface {
	// Validate processes every requirement of a pending session and returns
	// the run summary. Per-requirement failures never abort the run.
	Validate(ctx context.Context, sessionID int64) (*domain.Summary, error)
}

// SessionQuery exposes session state and results to pollers.
type SessionQuery interface {
	// Session returns the current session state and progress counters.
	Session(ctx context.Context, sessionID int64) (*domain.ValidationSession, error)

	// Results returns the records written for a session.
	Results(ctx context.Context, sessionID int64) ([]domain.ValidationResult, error)

	// Create registers a new pending session.
	Create(ctx context.Context, session *domain.ValidationSession) error
}

// RequirementQuery exposes the canonical requirement set.
type RequirementQuery interface {
	// Fetch returns all requirements for a unit and (possibly aggregate) type.
	Fetch(ctx context.Context, unitCode string, reqType domain.RequirementType) ([]domain.Requirement, error)
}
