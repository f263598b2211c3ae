package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	stored1, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "order-1",
		EventType:     domain.EventOrderCreated,
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored1.ID, "expected generated id for outbox message")

	stored2, err := repo.Enqueue(domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "order-2",
		EventType:     domain.EventOrderUpdated,
		Payload:       []byte(`{"order_id":"order-2"}`),
		CreatedAt:     stored1.CreatedAt.Add(time.Millisecond),
	})
	require.NoError(t, err)
	assert.Equal(t, "outbox-fixed-id", stored2.ID)

	pending, err := repo.PullPending(0) // лимит по умолчанию
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, stored1.ID, pending[0].ID)
	assert.JSONEq(t, `{"order_id":"order-1"}`, string(pending[0].Payload))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(stored1.ID))
	require.NoError(t, repo.MarkFailed(stored2.ID))

	after, err := repo.PullPending(10)
	require.NoError(t, err)
	assert.Empty(t, after)

	stats, err = repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.IsZero())
}

func TestOutboxRepository_PostgresMissingRows(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	assert.ErrorIs(t, repo.MarkSent("missing-outbox"), domain.ErrOutboxPublish)
	assert.ErrorIs(t, repo.MarkFailed("missing-outbox"), domain.ErrOutboxPublish)
}
