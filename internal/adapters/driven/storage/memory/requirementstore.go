package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure RequirementStore implements the interface.
var _ driven.RequirementSource = (*RequirementStore)(nil)

type requirementKey struct {
	unitCode string
	reqType  domain.RequirementType
}

// RequirementStore is an in-memory implementation of driven.RequirementSource.
// Rows are held exactly as added, so tests can exercise every source schema.
type RequirementStore struct {
	mu   sync.RWMutex
	rows map[requirementKey][]driven.RequirementRow
}

// NewRequirementStore creates a new in-memory requirement store.
func NewRequirementStore() *RequirementStore {
	return &RequirementStore{
		rows: make(map[requirementKey][]driven.RequirementRow),
	}
}

// Add appends raw rows for a unit and concrete type.
func (s *RequirementStore) Add(unitCode string, reqType domain.RequirementType, rows ...driven.RequirementRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := requirementKey{unitCode: unitCode, reqType: reqType}
	s.rows[key] = append(s.rows[key], rows...)
}

// Rows returns the rows for a unit and concrete type.
func (s *RequirementStore) Rows(_ context.Context, unitCode string, reqType domain.RequirementType) ([]driven.RequirementRow, error) {
	if !reqType.IsConcrete() {
		return nil, domain.ErrUnsupportedType
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rows[requirementKey{unitCode: unitCode, reqType: reqType}]
	out := make([]driven.RequirementRow, len(rows))
	copy(out, rows)
	return out, nil
}
