package driven

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// PromptTemplateStore provides access to validation prompt templates.
type PromptTemplateStore interface {
	// Resolve returns the single active, default template for the pair.
	// It returns (nil, nil) when none exists; callers supply a fallback.
	Resolve(ctx context.Context, reqType domain.RequirementType, docType domain.DocumentType) (*domain.PromptTemplate, error)

	// Save stores or updates a template.
	Save(ctx context.Context, tmpl *domain.PromptTemplate) error
}
