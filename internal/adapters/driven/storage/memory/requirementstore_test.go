package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

func TestRequirementStore_Rows(t *testing.T) {
	store := NewRequirementStore()
	store.Add("BSBWHS211", domain.RequirementKnowledgeEvidence,
		driven.RequirementRow{"id": 1, "ke_number": "1", "knowledge_point": "hazard identification"},
		driven.RequirementRow{"id": 2, "ke_number": "2", "knowledge_point": "risk controls"},
	)
	store.Add("OTHER", domain.RequirementKnowledgeEvidence,
		driven.RequirementRow{"id": 3, "knowledge_point": "unrelated"},
	)

	rows, err := store.Rows(context.Background(), "BSBWHS211", domain.RequirementKnowledgeEvidence)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "hazard identification", rows[0]["knowledge_point"])
}

func TestRequirementStore_Rows_Aggregate(t *testing.T) {
	store := NewRequirementStore()
	_, err := store.Rows(context.Background(), "BSBWHS211", domain.RequirementFullUnit)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
