package storage

import (
	"context"
	"testing"

	"github.com/Ready2k/CatalAIst-sub004/internal/common"
	"github.com/Ready2k/CatalAIst-sub004/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedMatrix(version string, active bool) *model.DecisionMatrix {
	return &model.DecisionMatrix{
		Version:     version,
		CreatedBy:   "test",
		Description: "test matrix " + version,
		Attributes: []model.Attribute{
			{Name: "data_structure", Type: model.AttributeCategorical,
				PossibleValues: []string{"structured", "unstructured"}, Weight: 0.5},
		},
		Rules: []model.Rule{
			{
				RuleID: "r1",
				Name:   "structured data suits automation",
				Conditions: []model.Condition{
					{Attribute: "data_structure", Operator: model.OpEqual, Value: model.StringValue("structured")},
				},
				Action:   model.RuleAction{Type: model.ActionFlagReview, Rationale: "check it"},
				Priority: 10,
				Active:   true,
			},
		},
		Active: active,
	}
}

func TestSaveAndGetMatrix(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.0", true)))

	got, err := store.GetMatrix(ctx, "1.0")
	require.NoError(t, err)

	assert.Equal(t, "1.0", got.Version)
	assert.True(t, got.Active)
	require.Len(t, got.Attributes, 1)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, "r1", got.Rules[0].RuleID)
}

func TestGetMatrixNotFound(t *testing.T) {
	store := testStorage(t)

	_, err := store.GetMatrix(context.Background(), "9.9")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveMatrixDuplicateVersion(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.0", false)))

	err := store.SaveMatrix(ctx, storedMatrix("1.0", false))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestSaveMatrixRejectsVersionRegression(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("2.0", false)))

	err := store.SaveMatrix(ctx, storedMatrix("1.5", false))
	assert.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestSaveMatrixSwapsActive(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.0", true)))
	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.1", true)))

	active, err := store.GetActiveMatrix(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.1", active.Version)

	// The previous version still exists, just deactivated.
	old, err := store.GetMatrix(ctx, "1.0")
	require.NoError(t, err)
	assert.False(t, old.Active)
}

func TestGetActiveMatrixNoneActive(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	_, err := store.GetActiveMatrix(ctx)
	assert.ErrorIs(t, err, common.ErrNoActiveMatrix)

	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.0", false)))
	_, err = store.GetActiveMatrix(ctx)
	assert.ErrorIs(t, err, common.ErrNoActiveMatrix)
}

func TestGetLatestMatrixVersion(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	_, err := store.GetLatestMatrixVersion(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.0", false)))
	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.9", false)))
	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.10", false)))

	latest, err := store.GetLatestMatrixVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.10", latest)
}

func TestListMatrices(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.0", false)))
	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.1", true)))

	matrices, err := store.ListMatrices(ctx)
	require.NoError(t, err)
	require.Len(t, matrices, 2)

	byVersion := map[string]bool{}
	for _, m := range matrices {
		byVersion[m.Version] = m.Active
	}
	assert.False(t, byVersion["1.0"])
	assert.True(t, byVersion["1.1"])
}

func TestActivateMatrix(t *testing.T) {
	store := testStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.0", true)))
	require.NoError(t, store.SaveMatrix(ctx, storedMatrix("1.1", false)))

	require.NoError(t, store.ActivateMatrix(ctx, "1.1"))

	active, err := store.GetActiveMatrix(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.1", active.Version)

	old, err := store.GetMatrix(ctx, "1.0")
	require.NoError(t, err)
	assert.False(t, old.Active)
}

func TestActivateMatrixNotFound(t *testing.T) {
	store := testStorage(t)

	err := store.ActivateMatrix(context.Background(), "9.9")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
