package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/custodia-labs/compliance-engine/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

const reqTestUnit = "BSBWHS211"

func seededRequirementStore() *memory.RequirementStore {
	store := memory.NewRequirementStore()
	store.Add(reqTestUnit, domain.RequirementKnowledgeEvidence,
		driven.RequirementRow{"id": int64(11), "ke_number": "1", "knowledge_point": "Hazard identification procedures"},
		driven.RequirementRow{"id": int64(12), "ke_number": "2", "knowledge_point": "Workplace consultation processes"},
	)
	store.Add(reqTestUnit, domain.RequirementPerformanceEvidence,
		driven.RequirementRow{"id": int64(21), "pe_number": "1", "performance_task": "Identify at least two hazards"},
	)
	store.Add(reqTestUnit, domain.RequirementFoundationSkills,
		driven.RequirementRow{"id": int64(31), "fs_number": "1", "skill_description": "Reading workplace procedures", "skill_name": "Reading"},
	)
	store.Add(reqTestUnit, domain.RequirementElementsCriteria,
		driven.RequirementRow{"id": int64(41), "epc_number": "1.1", "element": "Identify hazards", "performance_criteria": "Inspect the work area", "element_number": "1"},
	)
	store.Add(reqTestUnit, domain.RequirementAssessmentConditions,
		driven.RequirementRow{"id": int64(51), "ac_number": float64(1), "condition_text": "Access to a workplace or simulated environment"},
	)
	return store
}

func TestRequirementsRepository_Fetch_Concrete(t *testing.T) {
	repo := NewRequirementsRepository(seededRequirementStore())

	reqs, err := repo.Fetch(context.Background(), reqTestUnit, domain.RequirementKnowledgeEvidence)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "11", reqs[0].ID)
	assert.Equal(t, reqTestUnit, reqs[0].UnitCode)
	assert.Equal(t, domain.RequirementKnowledgeEvidence, reqs[0].Type)
	assert.Equal(t, "1", reqs[0].Number)
	assert.Equal(t, "Hazard identification procedures", reqs[0].Text)
}

func TestRequirementsRepository_Fetch_AllSchemas(t *testing.T) {
	repo := NewRequirementsRepository(seededRequirementStore())
	ctx := context.Background()

	tests := []struct {
		reqType domain.RequirementType
		number  string
		text    string
	}{
		{domain.RequirementPerformanceEvidence, "1", "Identify at least two hazards"},
		{domain.RequirementFoundationSkills, "1", "Reading workplace procedures"},
		{domain.RequirementElementsCriteria, "1.1", "Identify hazards: Inspect the work area"},
		{domain.RequirementAssessmentConditions, "1", "Access to a workplace or simulated environment"},
	}

	for _, tt := range tests {
		t.Run(tt.reqType.String(), func(t *testing.T) {
			reqs, err := repo.Fetch(ctx, reqTestUnit, tt.reqType)
			require.NoError(t, err)
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.reqType, reqs[0].Type)
			assert.Equal(t, tt.number, reqs[0].Number)
			assert.Equal(t, tt.text, reqs[0].Text)
		})
	}
}

func TestRequirementsRepository_Fetch_Metadata(t *testing.T) {
	repo := NewRequirementsRepository(seededRequirementStore())

	reqs, err := repo.Fetch(context.Background(), reqTestUnit, domain.RequirementElementsCriteria)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "1", reqs[0].Metadata["element_number"])
	assert.Equal(t, "Identify hazards", reqs[0].Metadata["element"])
}

func TestRequirementsRepository_Fetch_AggregateFansOut(t *testing.T) {
	repo := NewRequirementsRepository(seededRequirementStore())

	for _, aggregate := range []domain.RequirementType{domain.RequirementFullUnit, domain.RequirementLearnerGuide} {
		reqs, err := repo.Fetch(context.Background(), reqTestUnit, aggregate)
		require.NoError(t, err)
		require.Len(t, reqs, 6)

		order, groups := domain.GroupByType(reqs)
		assert.Equal(t, domain.ConcreteRequirementTypes(), order)
		assert.Len(t, groups[domain.RequirementKnowledgeEvidence], 2)
		for _, r := range reqs {
			assert.True(t, r.Type.IsConcrete(), "aggregate fetch must tag concrete types")
		}
	}
}

func TestRequirementsRepository_Fetch_Empty(t *testing.T) {
	repo := NewRequirementsRepository(memory.NewRequirementStore())

	_, err := repo.Fetch(context.Background(), "NOPE001", domain.RequirementFullUnit)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrNoRequirements)
}

func TestRequirementsRepository_Fetch_InvalidInput(t *testing.T) {
	repo := NewRequirementsRepository(seededRequirementStore())

	_, err := repo.Fetch(context.Background(), "", domain.RequirementKnowledgeEvidence)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = repo.Fetch(context.Background(), reqTestUnit, domain.RequirementType("bogus"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

type failingRequirementSource struct{}

func (failingRequirementSource) Rows(context.Context, string, domain.RequirementType) ([]driven.RequirementRow, error) {
	return nil, errors.New("connection refused")
}

func TestRequirementsRepository_Fetch_SourceError(t *testing.T) {
	repo := NewRequirementsRepository(failingRequirementSource{})

	_, err := repo.Fetch(context.Background(), reqTestUnit, domain.RequirementKnowledgeEvidence)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNormalizeRequirements_SkipsEmptyAndNumbersByPosition(t *testing.T) {
	rows := []driven.RequirementRow{
		{"knowledge_point": "   "},
		{"knowledge_point": "First point"},
		{"knowledge_point": []byte("Second point")},
		{"text": "Third point", "number": nil},
	}

	reqs := NormalizeRequirements(reqTestUnit, domain.RequirementKnowledgeEvidence, rows)
	require.Len(t, reqs, 3)
	assert.Equal(t, "1", reqs[0].Number)
	assert.Equal(t, "2", reqs[1].Number)
	assert.Equal(t, "Second point", reqs[1].Text)
	assert.Equal(t, "3", reqs[2].Number)
	assert.Equal(t, "BSBWHS211:knowledge_evidence:1", reqs[0].ID)
}

func TestNormalizeRequirements_ElementOnly(t *testing.T) {
	rows := []driven.RequirementRow{{"element": "Plan work"}}

	reqs := NormalizeRequirements(reqTestUnit, domain.RequirementElementsCriteria, rows)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Plan work", reqs[0].Text)
}

func TestNormalizeRequirements_UnknownType(t *testing.T) {
	assert.Nil(t, NormalizeRequirements(reqTestUnit, domain.RequirementFullUnit, []driven.RequirementRow{{"text": "x"}}))
}

func TestProperty_NormalizeRequirementsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reqType := rapid.SampledFrom(domain.ConcreteRequirementTypes()).Draw(t, "type")
		n := rapid.IntRange(0, 8).Draw(t, "rows")
		rows := make([]driven.RequirementRow, n)
		for i := range rows {
			rows[i] = driven.RequirementRow{
				"id":                   rapid.Int64().Draw(t, "id"),
				"text":                 rapid.String().Draw(t, "text"),
				"number":               rapid.StringMatching(`[0-9]{0,2}(\.[0-9])?`).Draw(t, "number"),
				"element":              rapid.String().Draw(t, "element"),
				"performance_criteria": rapid.String().Draw(t, "criteria"),
			}
		}

		first := NormalizeRequirements(reqTestUnit, reqType, rows)
		second := NormalizeRequirements(reqTestUnit, reqType, rows)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("normalisation not deterministic:\n%v\n%v", first, second)
		}
		for _, r := range first {
			if r.Text == "" || r.Number == "" {
				t.Fatalf("requirement with empty field: %+v", r)
			}
			if r.Type != reqType {
				t.Fatalf("type %s, want %s", r.Type, reqType)
			}
		}
	})
}
