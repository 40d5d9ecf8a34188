package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
)

// Ensure RequirementsRepository implements the interface.
var _ driving.RequirementQuery = (*RequirementsRepository)(nil)

// requirementSchema describes where one source table keeps its fields.
// Columns are tried in order; the first non-empty value wins.
type requirementSchema struct {
	number []string
	text   []string
	// prefix is prepended to text with ": " when present (elements carry
	// the element title separately from the performance criterion).
	prefix []string
	// metadata columns copied into Requirement.Metadata when present.
	metadata []string
}

var requirementSchemas = map[domain.RequirementType]requirementSchema{
	domain.RequirementKnowledgeEvidence: {
		number:   []string{"ke_number", "number"},
		text:     []string{"knowledge_point", "text", "description"},
		metadata: []string{"category"},
	},
	domain.RequirementPerformanceEvidence: {
		number:   []string{"pe_number", "number"},
		text:     []string{"performance_task", "text", "description"},
		metadata: []string{"frequency"},
	},
	domain.RequirementFoundationSkills: {
		number:   []string{"fs_number", "number"},
		text:     []string{"skill_description", "text", "description"},
		metadata: []string{"skill_name", "skill_type"},
	},
	domain.RequirementElementsCriteria: {
		number:   []string{"epc_number", "criterion_number", "number"},
		text:     []string{"performance_criteria", "criterion", "text"},
		prefix:   []string{"element", "element_title"},
		metadata: []string{"element_number", "element"},
	},
	domain.RequirementAssessmentConditions: {
		number:   []string{"ac_number", "number"},
		text:     []string{"condition_text", "condition", "text"},
		metadata: []string{"category"},
	},
}

var (
	idColumns   = []string{"id", "requirement_id"}
	unitColumns = []string{"unit_code", "unitCode", "unit"}
)

// RequirementsRepository normalises per-type source rows into canonical
// requirements.
type RequirementsRepository struct {
	source driven.RequirementSource
}

// NewRequirementsRepository creates a repository over a raw row source.
func NewRequirementsRepository(source driven.RequirementSource) *RequirementsRepository {
	return &RequirementsRepository{source: source}
}

// Fetch returns every requirement for a unit. Aggregate types read all five
// concrete tables and tag each requirement with its concrete type.
func (r *RequirementsRepository) Fetch(ctx context.Context, unitCode string, reqType domain.RequirementType) ([]domain.Requirement, error) {
	if unitCode == "" {
		return nil, fmt.Errorf("%w: unit code is required", domain.ErrInvalidInput)
	}
	if !reqType.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, reqType)
	}

	var requirements []domain.Requirement
	for _, concrete := range reqType.Expand() {
		rows, err := r.source.Rows(ctx, unitCode, concrete)
		if err != nil {
			return nil, fmt.Errorf("read %s requirements: %w", concrete, err)
		}
		requirements = append(requirements, NormalizeRequirements(unitCode, concrete, rows)...)
	}

	if len(requirements) == 0 {
		return nil, fmt.Errorf("%w: %w for unit %s (%s)", domain.ErrNotFound, domain.ErrNoRequirements, unitCode, reqType)
	}
	return requirements, nil
}

// NormalizeRequirements converts raw rows of one concrete type. Rows without
// text are skipped; rows without a number are numbered by position.
// The output depends only on the input.
func NormalizeRequirements(unitCode string, reqType domain.RequirementType, rows []driven.RequirementRow) []domain.Requirement {
	schema, ok := requirementSchemas[reqType]
	if !ok {
		return nil
	}

	out := make([]domain.Requirement, 0, len(rows))
	for _, row := range rows {
		text := firstValue(row, schema.text)
		prefix := firstValue(row, schema.prefix)
		switch {
		case text == "" && prefix == "":
			continue
		case text == "":
			text = prefix
		case prefix != "" && prefix != text:
			text = prefix + ": " + text
		}

		number := firstValue(row, schema.number)
		if number == "" {
			number = strconv.Itoa(len(out) + 1)
		}

		unit := firstValue(row, unitColumns)
		if unit == "" {
			unit = unitCode
		}

		req := domain.Requirement{
			ID:       firstValue(row, idColumns),
			UnitCode: unit,
			Type:     reqType,
			Number:   number,
			Text:     text,
		}
		for _, col := range schema.metadata {
			if v := stringValue(row[col]); v != "" {
				if req.Metadata == nil {
					req.Metadata = make(map[string]string)
				}
				req.Metadata[col] = v
			}
		}
		if req.ID == "" {
			req.ID = fmt.Sprintf("%s:%s:%s", unit, reqType, number)
		}
		out = append(out, req)
	}
	return out
}

func firstValue(row driven.RequirementRow, columns []string) string {
	for _, col := range columns {
		if v := stringValue(row[col]); v != "" {
			return v
		}
	}
	return ""
}

// stringValue renders a driver value as trimmed text.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []byte:
		return strings.TrimSpace(string(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
