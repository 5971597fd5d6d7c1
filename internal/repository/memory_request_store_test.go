package repository

import (
	"context"
	"testing"
	"time"

	"StockCast/internal/domain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRequestStoreKeepsNewest(t *testing.T) {
	s := NewMemoryRequestStore()
	ctx := context.Background()
	id := uuid.New()
	t0 := time.Now()

	require.NoError(t, s.Save(ctx, &models.Data{ID: id, Status: models.StatusRunning, UpdatedAt: t0}))
	require.NoError(t, s.Save(ctx, &models.Data{ID: id, Status: models.StatusDone, UpdatedAt: t0.Add(time.Second)}))
	require.NoError(t, s.Save(ctx, &models.Data{ID: id, Status: models.StatusPending, UpdatedAt: t0.Add(-time.Second)}))

	d, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, d.Status)
}

func TestMemoryRequestStoreNotFound(t *testing.T) {
	_, err := NewMemoryRequestStore().Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
