package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptTemplateStore = (*PromptStore)(nil)

// PromptStore is an in-memory implementation of driven.PromptTemplateStore.
type PromptStore struct {
	mu        sync.RWMutex
	templates map[string]domain.PromptTemplate
	lookups   int
}

// NewPromptStore creates a new in-memory prompt store.
func NewPromptStore() *PromptStore {
	return &PromptStore{
		templates: make(map[string]domain.PromptTemplate),
	}
}

// Resolve returns the active default template for the pair, or nil.
func (s *PromptStore) Resolve(_ context.Context, reqType domain.RequirementType, docType domain.DocumentType) (*domain.PromptTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	for _, tmpl := range s.templates {
		if tmpl.RequirementType == reqType && tmpl.DocumentType == docType && tmpl.IsActive && tmpl.IsDefault {
			found := tmpl
			return &found, nil
		}
	}
	return nil, nil
}

// Save stores or updates a template by ID.
func (s *PromptStore) Save(_ context.Context, tmpl *domain.PromptTemplate) error {
	if tmpl.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tmpl.ID] = *tmpl
	return nil
}

// Lookups returns how many times Resolve has been called.
func (s *PromptStore) Lookups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookups
}
