package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

const builtinSystemInstruction = `You are an experienced compliance auditor for vocational education and training.
You assess training and assessment materials against the requirements of a unit of competency.
Base every finding only on the documents provided for this validation session.
Respond with a single JSON object and nothing else.`

const replyFormat = `
Respond with a JSON object containing:
- "status": one of "Met", "Partially Met" or "Not Met"
- "reasoning": why the status was given
- "mapped_content": the specific content that addresses the requirement, with page references
- "citations": the document names and pages relied on
- "smart_question": %s
- "benchmark_answer": %s
- "recommendations": what is missing or should be improved`

const builtinOutputSchema = `{
  "type": "object",
  "properties": {
    "status": {"type": "string", "enum": ["Met", "Partially Met", "Not Met"]},
    "reasoning": {"type": "string"},
    "mapped_content": {"type": "string"},
    "citations": {"type": "array", "items": {"type": "string"}},
    "smart_question": {"type": "string"},
    "benchmark_answer": {"type": "string"},
    "recommendations": {"type": "string"}
  },
  "required": ["status", "reasoning"]
}`

// PromptResolver returns the template for a requirement type, falling back
// to a compiled-in template when the store has none or cannot be read.
type PromptResolver struct {
	store driven.PromptTemplateStore
}

// NewPromptResolver creates a resolver. A nil store always yields built-ins.
func NewPromptResolver(store driven.PromptTemplateStore) *PromptResolver {
	return &PromptResolver{store: store}
}

// Resolve never returns nil.
func (r *PromptResolver) Resolve(ctx context.Context, reqType domain.RequirementType, docType domain.DocumentType) *domain.PromptTemplate {
	if r.store != nil {
		tmpl, err := r.store.Resolve(ctx, reqType, docType)
		switch {
		case err != nil:
			logger.Warn("prompt template lookup for %s/%s failed, using built-in: %v", reqType, docType, err)
		case tmpl != nil && tmpl.Prompt != "":
			if tmpl.Generation.MaxOutputTokens <= 0 {
				tmpl.Generation = domain.DefaultGenerationConfig()
			}
			if tmpl.SystemInstruction == "" {
				tmpl.SystemInstruction = builtinSystemInstruction
			}
			logger.Debug("using prompt template %s for %s/%s", tmpl.ID, reqType, docType)
			return tmpl
		}
	}
	logger.Debug("no prompt template for %s/%s, using built-in", reqType, docType)
	return BuiltinTemplate(reqType, docType)
}

// BuiltinTemplate returns the compiled-in template for a pair.
func BuiltinTemplate(reqType domain.RequirementType, docType domain.DocumentType) *domain.PromptTemplate {
	return &domain.PromptTemplate{
		ID:                "builtin:" + reqType.String() + ":" + docType.String(),
		RequirementType:   reqType,
		DocumentType:      docType,
		Prompt:            builtinPrompt(reqType, docType),
		SystemInstruction: builtinSystemInstruction,
		OutputSchema:      builtinOutputSchema,
		Generation:        domain.DefaultGenerationConfig(),
		IsActive:          true,
		IsDefault:         true,
		Builtin:           true,
	}
}

func builtinPrompt(reqType domain.RequirementType, docType domain.DocumentType) string {
	task := "Determine whether the assessment tool gives learners the opportunity to demonstrate this requirement."
	question := "a question or practical task that would assess the requirement if it is not fully met"
	answer := "the answer or observable behaviour expected from a competent learner"
	if docType == domain.DocumentTypeLearnerGuide {
		task = "Determine whether the learner guide teaches the content learners need to satisfy this requirement."
		question = "a knowledge check question a learner could answer from the guide"
		answer = "the answer a learner should give using the guide content"
	}

	var focus string
	switch reqType {
	case domain.RequirementKnowledgeEvidence:
		focus = "Knowledge evidence describes what the learner must know. Look for questions, explanations or content that cover the knowledge point."
	case domain.RequirementPerformanceEvidence:
		focus = "Performance evidence describes what the learner must do, and how often. Look for practical tasks, observations or projects."
	case domain.RequirementFoundationSkills:
		focus = "Foundation skills are the language, literacy, numeracy and employability skills embedded in the unit. Look for tasks that require the learner to apply the skill."
	case domain.RequirementElementsCriteria:
		focus = "Elements and performance criteria describe the outcomes of the unit. Look for activities that demonstrate the criterion under its element."
	case domain.RequirementAssessmentConditions:
		focus = "Assessment conditions describe the environment, resources and assessor requirements. Look for instructions, resource lists or assessor guidance that satisfy the condition."
	default:
		focus = "Look for content that addresses the requirement."
	}

	return fmt.Sprintf(`Unit: {unit_code}
Requirement type: {requirement_type}
Requirement {requirement_number}: {requirement_text}

%s
%s
`, task, focus) + fmt.Sprintf(replyFormat, question, answer)
}
