package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure ResultStore implements the interface.
var _ driven.ResultStore = (*ResultStore)(nil)

// ResultStore is an in-memory, append-only implementation of driven.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results map[int64][]domain.ValidationResult
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[int64][]domain.ValidationResult),
	}
}

// Insert appends a result record.
func (s *ResultStore) Insert(_ context.Context, result *domain.ValidationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
	s.results[result.SessionID] = append(s.results[result.SessionID], *result)
	return nil
}

// ListBySession returns a session's records in insertion order.
func (s *ResultStore) ListBySession(_ context.Context, sessionID int64) ([]domain.ValidationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.results[sessionID]
	out := make([]domain.ValidationResult, len(records))
	copy(out, records)
	return out, nil
}
