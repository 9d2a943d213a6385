package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*CatalogService, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "catalog.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCatalogService(db, &logger), db
}

func TestCatalogService_CRUD(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	bike := &models.Bike{Name: " Pulsar ", Model: "NS200", Price: 1500}
	require.NoError(t, svc.CreateBike(ctx, bike))
	assert.Equal(t, "Pulsar", bike.Name)

	list, err := svc.ListBikes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := svc.GetBike(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, "NS200", got.Model)

	bike.Price = 1800
	require.NoError(t, svc.UpdateBike(ctx, bike))
	got, err = svc.GetBike(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, 1800.0, got.Price)

	require.NoError(t, svc.DeleteBike(ctx, bike.ID))
	_, err = svc.GetBike(ctx, bike.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = svc.DeleteBike(ctx, bike.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCatalogService_DuplicateID(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	existing := &models.Bike{Name: "Pulsar", Model: "NS200", Price: 1500}
	require.NoError(t, svc.CreateBike(ctx, existing))

	err := svc.CreateBike(ctx, &models.Bike{ID: existing.ID, Name: "Apache", Model: "RTR", Price: 1200})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, "Bike already exists", domain.Message(err))
}

func TestCatalogService_Validation(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	err := svc.CreateBike(ctx, &models.Bike{Name: "", Model: "X", Price: 10})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	err = svc.CreateBike(ctx, &models.Bike{Name: "Pulsar", Model: "X", Price: 0})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	err = svc.UpdateBike(ctx, &models.Bike{ID: "missing", Name: "Pulsar", Model: "X", Price: 10})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCatalogService_FindFallsBackToRepository(t *testing.T) {
	svc, db := newCatalog(t)
	ctx := context.Background()

	// written behind the cache's back
	bike := &models.Bike{Name: "Apache", Model: "RTR", Price: 1200}
	require.NoError(t, db.CreateBike(ctx, bike))

	got, err := svc.FindBikeByID(ctx, bike.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Apache", got.Name)

	got, err = svc.FindBikeByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCatalogService_GroupedByName(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	for _, b := range []*models.Bike{
		{Name: "Pulsar", Model: "NS200", Price: 1500},
		{Name: "Pulsar", Model: "220F", Price: 1400},
		{Name: "Apache", Model: "RTR", Price: 1200},
		{Name: "Splendor", Model: "Plus", Price: 900},
	} {
		require.NoError(t, svc.CreateBike(ctx, b))
	}

	groups, total, err := svc.GroupedByName(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, groups, 2)

	counts := map[string]int{}
	all := append([]models.BikeGroup{}, groups...)
	rest, _, err := svc.GroupedByName(ctx, 2, 2)
	require.NoError(t, err)
	all = append(all, rest...)
	for _, g := range all {
		counts[g.Name] = len(g.Bikes)
	}
	assert.Equal(t, map[string]int{"Pulsar": 2, "Apache": 1, "Splendor": 1}, counts)

	empty, _, err := svc.GroupedByName(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)

	modelNames, err := svc.GetBikeModels(ctx)
	require.NoError(t, err)
	assert.Len(t, modelNames, 4)

	n, err := svc.CountBikes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	byName, err := svc.GetBikesByName(ctx, "Pulsar")
	require.NoError(t, err)
	assert.Len(t, byName, 2)
}
