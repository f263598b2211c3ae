package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
	"github.com/vladislavdragonenkov/orderengine/internal/service/orders"
)

// createHundredOrder создаёт заказ с subtotal = 100 и доставкой 12.
func (env *testEnv) createHundredOrder(t *testing.T) domain.Order {
	t.Helper()
	req := validCreateRequest()
	req.Items = []domain.OrderItem{domain.NewOrderItem("prod-1", "Widget", decimal.NewFromInt(100), 1)}
	order, err := env.engine.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	order, err = env.engine.UpdateOrder(context.Background(), order.ID, orders.UpdateDirectives{
		Shipping: domain.Some(decimal.NewFromInt(12)),
	}, "clerk")
	require.NoError(t, err)
	return order
}

func discountRequest(orderID string) orders.DiscountRequest {
	return orders.DiscountRequest{
		OrderID:       orderID,
		Code:          "SAVE20",
		Type:          orders.DiscountPercentage,
		Value:         decimal.NewFromInt(20),
		CustomerEmail: "jane@example.com",
		AppliedBy:     "promo-service",
	}
}

func TestApplyDiscount_PercentageCappedByMax(t *testing.T) {
	env := newTestEnv(t)
	order := env.createHundredOrder(t)

	req := discountRequest(order.ID)
	req.MaxDiscount = domain.Some(decimal.NewFromInt(15))

	amount, err := env.engine.ApplyDiscount(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(15)), "got %s", amount)

	stored, err := env.engine.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Discount.Equal(decimal.NewFromInt(15)))
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(97)), "total %s", stored.Total)
	assert.Equal(t, []string{"SAVE20"}, stored.AppliedDiscountCodes)
}

func TestApplyDiscount_FirstOrderCodeRequiresFirstTimeCustomer(t *testing.T) {
	env := newTestEnv(t)
	order := env.createHundredOrder(t)

	req := discountRequest(order.ID)
	req.Code = "FIRSTORDER"
	req.IsFirstTimeCustomer = false

	_, err := env.engine.ApplyDiscount(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrIneligibleDiscount)
	gate, ok := domain.DiscountGateOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.DiscountGateFirstTimeCustomer, gate)

	stored, _ := env.engine.GetOrder(context.Background(), order.ID)
	assert.True(t, stored.Discount.IsZero(), "rejected discount must not mutate the order")
	assert.Empty(t, stored.AppliedDiscountCodes)
}

func TestApplyDiscount_Gates(t *testing.T) {
	tests := []struct {
		name string
		mut  func(env *testEnv, r *orders.DiscountRequest)
		gate domain.DiscountGate
	}{
		{
			name: "expired",
			mut: func(env *testEnv, r *orders.DiscountRequest) {
				past := env.now.Add(-time.Hour)
				r.Expiration = &past
			},
			gate: domain.DiscountGateExpired,
		},
		{
			name: "below minimum",
			mut: func(_ *testEnv, r *orders.DiscountRequest) {
				r.MinOrderAmount = domain.Some(decimal.NewFromInt(150))
			},
			gate: domain.DiscountGateMinOrderAmount,
		},
		{
			name: "vip code",
			mut: func(_ *testEnv, r *orders.DiscountRequest) {
				r.Code = "VIP50"
			},
			gate: domain.DiscountGateVIPCustomer,
		},
		{
			name: "no eligible product",
			mut: func(_ *testEnv, r *orders.DiscountRequest) {
				r.EligibleProducts = []string{"prod-9"}
			},
			gate: domain.DiscountGateEligibleProducts,
		},
		{
			name: "excluded product",
			mut: func(_ *testEnv, r *orders.DiscountRequest) {
				r.ExcludedProducts = []string{"prod-1"}
			},
			gate: domain.DiscountGateExcludedProducts,
		},
		{
			name: "expiry checked before minimum",
			mut: func(env *testEnv, r *orders.DiscountRequest) {
				past := env.now.Add(-time.Minute)
				r.Expiration = &past
				r.MinOrderAmount = domain.Some(decimal.NewFromInt(1000))
				r.Code = "FIRST10"
			},
			gate: domain.DiscountGateExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			order := env.createHundredOrder(t)
			req := discountRequest(order.ID)
			tt.mut(env, &req)

			_, err := env.engine.ApplyDiscount(context.Background(), req)
			gate, ok := domain.DiscountGateOf(err)
			require.True(t, ok, "unexpected error: %v", err)
			assert.Equal(t, tt.gate, gate)
		})
	}
}

func TestApplyDiscount_PassingGates(t *testing.T) {
	env := newTestEnv(t)
	order := env.createHundredOrder(t)

	future := env.now.Add(24 * time.Hour)
	req := discountRequest(order.ID)
	req.Code = "VIPFIRST"
	req.IsVIPCustomer = true
	req.Expiration = &future
	req.MinOrderAmount = domain.Some(decimal.NewFromInt(100))
	req.EligibleProducts = []string{"prod-1", "prod-7"}
	req.ExcludedProducts = []string{"prod-8"}

	amount, err := env.engine.ApplyDiscount(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(20)))
}

func TestApplyDiscount_TypesAreCumulative(t *testing.T) {
	env := newTestEnv(t)
	order := env.createHundredOrder(t)
	ctx := context.Background()

	fixed := discountRequest(order.ID)
	fixed.Code = "TAKE150"
	fixed.Type = orders.DiscountFixedAmount
	fixed.Value = decimal.NewFromInt(150)
	amount, err := env.engine.ApplyDiscount(ctx, fixed)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(100)), "fixed amount is capped by subtotal, got %s", amount)

	ship := discountRequest(order.ID)
	ship.Code = "SHIPFREE"
	ship.Type = orders.DiscountFreeShipping
	ship.Value = decimal.NewFromInt(1)
	amount, err = env.engine.ApplyDiscount(ctx, ship)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(12)))

	// Повторное применение кода увеличивает скидку, но не дублирует код.
	_, err = env.engine.ApplyDiscount(ctx, ship)
	require.NoError(t, err)

	stored, err := env.engine.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Discount.Equal(decimal.NewFromInt(124)), "discount %s", stored.Discount)
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(-12)), "total is not floored, got %s", stored.Total)
	assert.Equal(t, []string{"TAKE150", "SHIPFREE"}, stored.AppliedDiscountCodes)
	assert.Empty(t, stored.ValidateInvariants())
}

func TestApplyDiscount_UsageLimit(t *testing.T) {
	env := newTestEnv(t)
	order := env.createHundredOrder(t)
	ctx := context.Background()

	req := discountRequest(order.ID)
	req.Value = decimal.NewFromInt(1)
	req.UsageLimit = 2

	for i := 0; i < 2; i++ {
		_, err := env.engine.ApplyDiscount(ctx, req)
		require.NoError(t, err)
	}

	_, err := env.engine.ApplyDiscount(ctx, req)
	gate, ok := domain.DiscountGateOf(err)
	require.True(t, ok, "unexpected error: %v", err)
	assert.Equal(t, domain.DiscountGateUsageLimit, gate)

	used, err := env.usage.Usage("SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 2, used)
}

func TestApplyDiscount_UsageLimitIgnoredWithoutCounter(t *testing.T) {
	env := newTestEnv(t, orders.WithUsageCounter(nil))
	order := env.createHundredOrder(t)

	req := discountRequest(order.ID)
	req.Value = decimal.NewFromInt(1)
	req.UsageLimit = 1

	for i := 0; i < 3; i++ {
		_, err := env.engine.ApplyDiscount(context.Background(), req)
		require.NoError(t, err)
	}
}

func TestApplyDiscount_InvalidArguments(t *testing.T) {
	env := newTestEnv(t)
	order := env.createHundredOrder(t)

	cases := map[string]func(r *orders.DiscountRequest){
		"order id":       func(r *orders.DiscountRequest) { r.OrderID = "" },
		"code":           func(r *orders.DiscountRequest) { r.Code = "" },
		"type":           func(r *orders.DiscountRequest) { r.Type = "" },
		"unknown type":   func(r *orders.DiscountRequest) { r.Type = "BOGO" },
		"zero value":     func(r *orders.DiscountRequest) { r.Value = decimal.Zero },
		"negative value": func(r *orders.DiscountRequest) { r.Value = decimal.NewFromInt(-5) },
		"email":          func(r *orders.DiscountRequest) { r.CustomerEmail = "" },
		"applied by":     func(r *orders.DiscountRequest) { r.AppliedBy = "" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			req := discountRequest(order.ID)
			mut(&req)
			_, err := env.engine.ApplyDiscount(context.Background(), req)
			assert.True(t, domain.IsInvalidArgument(err), "unexpected error: %v", err)
		})
	}

	_, err := env.engine.ApplyDiscount(context.Background(), discountRequest("missing"))
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
