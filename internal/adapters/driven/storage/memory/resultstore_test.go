package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

func TestResultStore_InsertAndList(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	first := &domain.ValidationResult{SessionID: 1, RequirementNumber: "1", Status: domain.ResultMet}
	second := &domain.ValidationResult{SessionID: 1, RequirementNumber: "2", Status: domain.ResultError}
	other := &domain.ValidationResult{SessionID: 2, RequirementNumber: "1", Status: domain.ResultNotMet}

	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))
	require.NoError(t, store.Insert(ctx, other))

	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	results, err := store.ListBySession(ctx, 1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].RequirementNumber)
	assert.Equal(t, "2", results[1].RequirementNumber)
}

func TestResultStore_ListBySession_Empty(t *testing.T) {
	store := NewResultStore()
	results, err := store.ListBySession(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, results)
}
