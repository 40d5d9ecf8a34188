package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

type promptsErrStore struct{}

func (promptsErrStore) Resolve(context.Context, domain.RequirementType, domain.DocumentType) (*domain.PromptTemplate, error) {
	return nil, errors.New("table missing")
}

func (promptsErrStore) Save(context.Context, *domain.PromptTemplate) error { return nil }

func TestPromptResolver_StoredTemplate(t *testing.T) {
	store := memory.NewPromptStore()
	require.NoError(t, store.Save(context.Background(), &domain.PromptTemplate{
		ID:              "ke-assessment-v2",
		RequirementType: domain.RequirementKnowledgeEvidence,
		DocumentType:    domain.DocumentTypeAssessment,
		Prompt:          "Check {requirement_text}",
		IsActive:        true,
		IsDefault:       true,
	}))

	tmpl := NewPromptResolver(store).Resolve(context.Background(), domain.RequirementKnowledgeEvidence, domain.DocumentTypeAssessment)

	require.NotNil(t, tmpl)
	assert.Equal(t, "ke-assessment-v2", tmpl.ID)
	assert.False(t, tmpl.Builtin)
	assert.Equal(t, domain.DefaultGenerationConfig(), tmpl.Generation)
	assert.NotEmpty(t, tmpl.SystemInstruction)
}

func TestPromptResolver_FallbackWhenAbsent(t *testing.T) {
	tmpl := NewPromptResolver(memory.NewPromptStore()).Resolve(context.Background(), domain.RequirementFoundationSkills, domain.DocumentTypeLearnerGuide)

	require.NotNil(t, tmpl)
	assert.True(t, tmpl.Builtin)
	assert.Equal(t, domain.RequirementFoundationSkills, tmpl.RequirementType)
	assert.Contains(t, tmpl.Prompt, "learner guide")
}

func TestPromptResolver_FallbackOnStoreError(t *testing.T) {
	tmpl := NewPromptResolver(promptsErrStore{}).Resolve(context.Background(), domain.RequirementKnowledgeEvidence, domain.DocumentTypeAssessment)

	require.NotNil(t, tmpl)
	assert.True(t, tmpl.Builtin)
}

func TestPromptResolver_NilStore(t *testing.T) {
	tmpl := NewPromptResolver(nil).Resolve(context.Background(), domain.RequirementAssessmentConditions, domain.DocumentTypeAssessment)
	require.NotNil(t, tmpl)
	assert.True(t, tmpl.Builtin)
}

func TestBuiltinTemplate_AllTypes(t *testing.T) {
	for _, reqType := range domain.ConcreteRequirementTypes() {
		for _, docType := range []domain.DocumentType{domain.DocumentTypeAssessment, domain.DocumentTypeLearnerGuide} {
			tmpl := BuiltinTemplate(reqType, docType)
			assert.Contains(t, tmpl.Prompt, "{requirement_number}")
			assert.Contains(t, tmpl.Prompt, "{requirement_text}")
			assert.Contains(t, tmpl.Prompt, `"status"`)
			assert.NotEmpty(t, tmpl.OutputSchema)
			assert.True(t, tmpl.IsActive)
			assert.Greater(t, tmpl.Generation.MaxOutputTokens, 0)
		}
	}
}
