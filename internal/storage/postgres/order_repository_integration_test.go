package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

func TestOrderRepository_PostgresCreateGetListAndSave(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	order1 := sampleOrder("order-1", "customer-1", now.Add(-2*time.Minute))
	order2 := sampleOrder("order-2", "customer-1", now.Add(-time.Minute))

	require.NoError(t, repo.Create(order1))
	require.NoError(t, repo.Create(order2))

	got, err := repo.Get(order1.ID)
	require.NoError(t, err)
	assert.Equal(t, order1.ID, got.ID)
	assert.Equal(t, order1.Number, got.Number)
	assert.Equal(t, order1.Status, got.Status)
	assert.True(t, got.Total.Equal(order1.Total), "total %s", got.Total)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].LineTotal.Equal(decimal.RequireFromString("3.00")))
	require.NotNil(t, got.ShippingAddress)
	assert.Equal(t, "Austin", got.ShippingAddress.City)
	assert.Equal(t, []string{"WELCOME"}, got.AppliedDiscountCodes)
	assert.True(t, got.CreatedAt.Equal(order1.CreatedAt))

	listed, err := repo.ListByCustomer("customer-1", 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, order2.ID, listed[0].ID)

	all, err := repo.ListByCustomer("customer-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got.Status = domain.OrderStatusConfirmed
	got.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.Save(got))

	updated, err := repo.Get(order1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
	assert.Equal(t, got.Version+1, updated.Version)
}

func TestOrderRepository_PostgresErrors(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	base := sampleOrder("order-errors", "customer-2", now)

	_, err := repo.Get("missing-order")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	assert.ErrorIs(t, repo.Save(base), domain.ErrOrderNotFound)

	require.NoError(t, repo.Create(base))
	assert.ErrorIs(t, repo.Create(base), domain.ErrOrderVersionConflict)

	stale := base
	stale.Status = domain.OrderStatusConfirmed
	stale.Version = 42
	assert.ErrorIs(t, repo.Save(stale), domain.ErrOrderVersionConflict)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "22001"}))
	assert.False(t, isUniqueViolation(errors.New("plain error")))
}

func sampleOrder(id, customerID string, createdAt time.Time) domain.Order {
	item := domain.NewOrderItem("SKU-1", "Widget", decimal.RequireFromString("1.50"), 2)
	item.ID = id + "-item-1"
	item.CreatedAt = createdAt
	item.UpdatedAt = createdAt

	order := domain.Order{
		ID:             id,
		Number:         "ON-" + id,
		CustomerID:     customerID,
		CustomerEmail:  customerID + "@example.com",
		OrderDate:      createdAt,
		Status:         domain.OrderStatusPending,
		Priority:       domain.PriorityNormal,
		Currency:       domain.DefaultCurrency,
		PaymentStatus:  domain.PaymentStatusPending,
		PaymentMethod:  domain.PaymentMethodCreditCard,
		ShippingMethod: domain.ShippingMethodStandard,
		SalesChannel:   domain.DefaultSalesChannel,
		ShippingAddress: &domain.Address{
			ID:         id + "-addr",
			Street:     "1 Main St",
			City:       "Austin",
			State:      "TX",
			PostalCode: "73301",
			Country:    "US",
		},
		AppliedDiscountCodes: []string{"WELCOME"},
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
		CreatedBy:            "tester",
	}
	order.SetItems([]domain.OrderItem{item})
	return order
}
