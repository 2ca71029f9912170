package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diagram2code/internal/domain/entity"
)

func TestConversionRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewConversionRepository()

	c := entity.NewConversion("diagram.png")
	require.NoError(t, repo.Create(ctx, c))
	assert.Error(t, repo.Create(ctx, c))

	// records are copies
	c.Description.Succeed("changed outside the store")
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Description.Text)

	got.EditTemplate("Resources: {}")
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Resources: {}", got.TemplateText())
	assert.True(t, got.Edited)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), entity.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, c), entity.ErrNotFound)
}

func TestConversionRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewConversionRepository()

	older := entity.NewConversion("a.png")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := entity.NewConversion("b.png")
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestDeploymentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDeploymentRepository()

	d1 := entity.NewDeployment("conv-1")
	d2 := entity.NewDeployment("conv-1")
	other := entity.NewDeployment("conv-2")
	for _, d := range []*entity.Deployment{d1, d2, other} {
		require.NoError(t, repo.Create(ctx, d))
	}

	d1.SetState(entity.DeploymentSucceeded)
	require.NoError(t, repo.Update(ctx, d1))

	list, err := repo.ListByConversion(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entity.DeploymentSucceeded, list[0].State)
	assert.Equal(t, d2.ID, list[1].ID)

	require.NoError(t, repo.DeleteByConversion(ctx, "conv-1"))
	list, err = repo.ListByConversion(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.ListByConversion(ctx, "conv-2")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, repo.Update(ctx, entity.NewDeployment("x")), entity.ErrNotFound)
}
