package domain

// RequirementType identifies one of the curriculum requirement taxonomies
// a unit of competency is assessed against.
type RequirementType string

// Concrete requirement types. Each is sourced from its own physical table.
const (
	// RequirementKnowledgeEvidence covers what the learner must know.
	RequirementKnowledgeEvidence RequirementType = "knowledge_evidence"

	// RequirementPerformanceEvidence covers what the learner must demonstrate.
	RequirementPerformanceEvidence RequirementType = "performance_evidence"

	// RequirementFoundationSkills covers language, literacy and numeracy skills.
	RequirementFoundationSkills RequirementType = "foundation_skills"

	// RequirementElementsCriteria covers elements and their performance criteria.
	RequirementElementsCriteria RequirementType = "elements_criteria"

	// RequirementAssessmentConditions covers the conditions assessment must occur under.
	RequirementAssessmentConditions RequirementType = "assessment_conditions"
)

// Aggregate requirement types fan out across every concrete type.
const (
	// RequirementFullUnit validates an assessment tool against the whole unit.
	RequirementFullUnit RequirementType = "full_unit"

	// RequirementLearnerGuide validates a learner guide against the whole unit.
	RequirementLearnerGuide RequirementType = "learner_guide"
)

// ConcreteRequirementTypes returns the five concrete types in processing order.
func ConcreteRequirementTypes() []RequirementType {
	return []RequirementType{
		RequirementKnowledgeEvidence,
		RequirementPerformanceEvidence,
		RequirementFoundationSkills,
		RequirementElementsCriteria,
		RequirementAssessmentConditions,
	}
}

// IsConcrete returns true for the five physically stored types.
func (t RequirementType) IsConcrete() bool {
	switch t {
	case RequirementKnowledgeEvidence, RequirementPerformanceEvidence,
		RequirementFoundationSkills, RequirementElementsCriteria,
		RequirementAssessmentConditions:
		return true
	default:
		return false
	}
}

// IsAggregate returns true for types that expand to every concrete type.
func (t RequirementType) IsAggregate() bool {
	return t == RequirementFullUnit || t == RequirementLearnerGuide
}

// IsValid returns true if the type is concrete or aggregate.
func (t RequirementType) IsValid() bool {
	return t.IsConcrete() || t.IsAggregate()
}

// Expand returns the concrete types a requested type covers.
func (t RequirementType) Expand() []RequirementType {
	if t.IsAggregate() {
		return ConcreteRequirementTypes()
	}
	if t.IsConcrete() {
		return []RequirementType{t}
	}
	return nil
}

// String returns the string representation.
func (t RequirementType) String() string {
	return string(t)
}

// Description returns a human-readable label.
func (t RequirementType) Description() string {
	switch t {
	case RequirementKnowledgeEvidence:
		return "Knowledge Evidence"
	case RequirementPerformanceEvidence:
		return "Performance Evidence"
	case RequirementFoundationSkills:
		return "Foundation Skills"
	case RequirementElementsCriteria:
		return "Elements & Performance Criteria"
	case RequirementAssessmentConditions:
		return "Assessment Conditions"
	case RequirementFullUnit:
		return "Full Unit Validation"
	case RequirementLearnerGuide:
		return "Learner Guide Validation"
	default:
		return unknownDescription
	}
}

// ParseRequirementType accepts the canonical names plus the short aliases
// used by upstream callers (ke, pe, fs, epc, ac, full_unit, learner_guide).
func ParseRequirementType(s string) (RequirementType, error) {
	switch s {
	case "ke", "knowledge", string(RequirementKnowledgeEvidence):
		return RequirementKnowledgeEvidence, nil
	case "pe", "performance", string(RequirementPerformanceEvidence):
		return RequirementPerformanceEvidence, nil
	case "fs", "foundation", string(RequirementFoundationSkills):
		return RequirementFoundationSkills, nil
	case "epc", "elements", string(RequirementElementsCriteria):
		return RequirementElementsCriteria, nil
	case "ac", "conditions", string(RequirementAssessmentConditions):
		return RequirementAssessmentConditions, nil
	case "full", "full_unit_validation", string(RequirementFullUnit):
		return RequirementFullUnit, nil
	case "learner_guide_validation", string(RequirementLearnerGuide):
		return RequirementLearnerGuide, nil
	default:
		return "", ErrUnsupportedType
	}
}

// Requirement is one curriculum obligation to check, in canonical form.
// Requirements are read-only to the engine.
type Requirement struct {
	// ID is the source row identifier.
	ID string `json:"id"`

	// UnitCode is the unit of competency the requirement belongs to.
	UnitCode string `json:"unitCode"`

	// Type is the concrete requirement type.
	Type RequirementType `json:"type"`

	// Number is the human-facing label (e.g. "1", "2.3").
	Number string `json:"number"`

	// Text is the requirement wording.
	Text string `json:"text"`

	// Metadata holds source-specific extras such as the parent element.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GroupByType partitions requirements by type, preserving input order within
// each group and returning the types in first-seen order.
func GroupByType(reqs []Requirement) ([]RequirementType, map[RequirementType][]Requirement) {
	var order []RequirementType
	groups := make(map[RequirementType][]Requirement)
	for _, r := range reqs {
		if _, ok := groups[r.Type]; !ok {
			order = append(order, r.Type)
		}
		groups[r.Type] = append(groups[r.Type], r)
	}
	return order, groups
}
