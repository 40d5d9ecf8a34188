package driven

import (
	"context"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// RequirementRow is one raw record from a per-type requirement table.
// Column names differ per table; normalisation happens in the core.
type RequirementRow map[string]any

// RequirementSource reads raw requirement rows for one concrete type.
type RequirementSource interface {
	// Rows returns the rows for a unit from the table backing reqType.
	Rows(ctx context.Context, unitCode string, reqType domain.RequirementType) ([]RequirementRow, error)
}
