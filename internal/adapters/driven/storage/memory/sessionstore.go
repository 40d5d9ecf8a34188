package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]domain.ValidationSession
	nextID   int64
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]domain.ValidationSession),
		nextID:   1,
	}
}

// Create stores a new session, assigning an ID when the session has none.
func (s *SessionStore) Create(_ context.Context, session *domain.ValidationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == 0 {
		for {
			if _, taken := s.sessions[s.nextID]; !taken {
				break
			}
			s.nextID++
		}
		session.ID = s.nextID
		s.nextID++
	}
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %d: %w", session.ID, domain.ErrAlreadyExists)
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.Status == "" {
		session.Status = domain.SessionPending
	}
	session.UpdatedAt = now
	s.sessions[session.ID] = cloneSession(*session)
	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(_ context.Context, id int64) (*domain.ValidationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := cloneSession(session)
	return &clone, nil
}

// Start moves a pending session to processing.
func (s *SessionStore) Start(_ context.Context, id int64, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if session.Status != domain.SessionPending {
		return domain.ErrSessionNotPending
	}
	now := time.Now()
	session.Status = domain.SessionProcessing
	session.RequirementTotal = total
	session.RequirementCount = 0
	session.ProgressPercent = 0
	session.StartedAt = &now
	session.UpdatedAt = now
	s.sessions[id] = session
	return nil
}

// UpdateProgress records progress. Counts never move backwards.
func (s *SessionStore) UpdateProgress(_ context.Context, id int64, count, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if session.Status != domain.SessionProcessing {
		return fmt.Errorf("progress on %s session: %w", session.Status, domain.ErrInvalidTransition)
	}
	if count < session.RequirementCount {
		return nil
	}
	session.RequirementCount = count
	session.ProgressPercent = percent
	session.UpdatedAt = time.Now()
	s.sessions[id] = session
	return nil
}

// Finish moves the session to a terminal status.
func (s *SessionStore) Finish(_ context.Context, id int64, status domain.SessionStatus, progress int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !status.IsTerminal() || !session.Status.CanTransition(status) {
		return fmt.Errorf("%s to %s: %w", session.Status, status, domain.ErrInvalidTransition)
	}
	now := time.Now()
	session.Status = status
	session.ProgressPercent = progress
	session.ErrorMessage = message
	session.CompletedAt = &now
	session.UpdatedAt = now
	s.sessions[id] = session
	return nil
}

func cloneSession(session domain.ValidationSession) domain.ValidationSession {
	if session.Documents != nil {
		docs := make([]domain.SessionDocument, len(session.Documents))
		copy(docs, session.Documents)
		session.Documents = docs
	}
	return session
}
