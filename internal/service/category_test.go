package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/dto"
)

func TestCategoryService_CRUD(t *testing.T) {
	repo := newMockCategoryRepo()
	svc := NewCategoryService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.CategoryRequest{Name: "Toys", Icon: "toy"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, dto.CategoryRequest{Name: "Games"})
	require.NoError(t, err)
	assert.Equal(t, "Games", updated.Name)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryService_UnknownID(t *testing.T) {
	svc := NewCategoryService(newMockCategoryRepo())

	_, err := svc.Update(context.Background(), uuid.New(), dto.CategoryRequest{Name: "X"})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New()), ErrNotFound)
}
