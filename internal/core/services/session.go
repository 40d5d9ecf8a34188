package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
)

// Ensure SessionService implements the interface.
var _ driving.SessionQuery = (*SessionService)(nil)

// SessionService exposes session state and results to callers.
type SessionService struct {
	sessions driven.SessionStore
	results  driven.ResultStore
}

// NewSessionService creates a new session service.
func NewSessionService(sessions driven.SessionStore, results driven.ResultStore) *SessionService {
	return &SessionService{sessions: sessions, results: results}
}

// Session returns a session's current state.
func (s *SessionService) Session(ctx context.Context, sessionID int64) (*domain.ValidationSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Results returns a session's result records.
func (s *SessionService) Results(ctx context.Context, sessionID int64) ([]domain.ValidationResult, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.results.ListBySession(ctx, sessionID)
}

// Create validates and stores a new pending session.
func (s *SessionService) Create(ctx context.Context, session *domain.ValidationSession) error {
	if session.UnitCode == "" {
		return fmt.Errorf("%w: unit code is required", domain.ErrInvalidInput)
	}
	if !session.RequirementType.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedType, session.RequirementType)
	}
	if session.DocumentType == "" {
		session.DocumentType = domain.DocumentTypeAssessment
		if session.RequirementType == domain.RequirementLearnerGuide {
			session.DocumentType = domain.DocumentTypeLearnerGuide
		}
	}
	if !session.DocumentType.IsValid() {
		return fmt.Errorf("%w: document type %q", domain.ErrInvalidInput, session.DocumentType)
	}
	for i, doc := range session.Documents {
		if doc.StoragePath == "" && doc.DocumentURL == "" {
			return fmt.Errorf("%w: document %d has no storage path", domain.ErrInvalidInput, i)
		}
		if doc.Filename == "" {
			return fmt.Errorf("%w: document %d has no filename", domain.ErrInvalidInput, i)
		}
	}
	session.Status = domain.SessionPending
	return s.sessions.Create(ctx, session)
}
