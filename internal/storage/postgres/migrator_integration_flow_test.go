package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	embedded, err := loadMigrationsFromFS(migrationsFS)
	require.NoError(t, err)
	total := len(embedded)
	latest := embedded[total-1].Version

	// Сначала сбрасываем состояние.
	require.NoError(t, store.MigrateDown(ctx, 100))

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.Version)
	assert.Equal(t, 0, status.Applied)
	assert.Len(t, status.Pending, total)

	require.NoError(t, store.MigrateUp(ctx, 1))
	status, err = store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Version)
	assert.Len(t, status.Pending, total-1)

	require.NoError(t, store.MigrateUp(ctx, 0))
	status, err = store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest, status.Version)
	assert.Equal(t, total, status.Applied)
	assert.Empty(t, status.Pending)

	// Повторный up ничего не меняет.
	require.NoError(t, store.MigrateUp(ctx, 0))
	status, err = store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, status.Applied)

	require.NoError(t, store.MigrateDown(ctx, 0))
	status, err = store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, total-1, status.Applied)
	assert.Equal(t, []string{"0003_discount_usage"}, status.Pending)

	require.NoError(t, store.MigrateUp(ctx, 0))
}

func TestMigrator_GuardsAndUnsupportedDirection(t *testing.T) {
	var nilStore *Store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, nilStore.MigrateUp(ctx, 0))
	assert.Error(t, nilStore.MigrateDown(ctx, 1))
	_, err := nilStore.Status(ctx)
	assert.Error(t, err)

	store := openRawPostgresStoreForIntegrationTest(t)
	assert.Error(t, store.migrate(ctx, migrationDirection("invalid"), 0))
}
