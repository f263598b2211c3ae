package orders_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
	"github.com/vladislavdragonenkov/orderengine/internal/service/orders"
)

func shippingRequest() orders.ShippingRequest {
	return orders.ShippingRequest{
		OrderID:         "order-1",
		Method:          domain.ShippingMethodStandard,
		ShippingAddress: testAddress("US"),
		OriginAddress:   testAddress("US"),
		TotalWeight:     decimal.NewFromInt(2),
		CalculatedBy:    "pricing",
	}
}

func TestCalculateShipping_OvernightUPSExpedited(t *testing.T) {
	req := shippingRequest()
	req.Method = domain.ShippingMethodOvernight
	req.TotalWeight = decimal.NewFromInt(10)
	req.RequiresSignature = true
	req.IsExpedited = true
	req.Carrier = domain.CarrierUPS

	quote, err := orders.CalculateShipping(req)
	require.NoError(t, err)

	// 9.99 + 12.50 + 3.50 = 25.99; x2.5 x3.5 x1.15
	assert.True(t, quote.Amount.Equal(decimal.RequireFromString("261.524375")), "got %s", quote.Amount)
	assert.Equal(t, domain.CarrierUPS, quote.Carrier)
}

func TestCalculateShipping_Table(t *testing.T) {
	tests := []struct {
		name        string
		mut         func(r *orders.ShippingRequest)
		wantAmount  string
		wantCarrier domain.Carrier
	}{
		{
			name:        "base rate",
			mut:         func(r *orders.ShippingRequest) {},
			wantAmount:  "9.99",
			wantCarrier: domain.CarrierUSPS,
		},
		{
			name:        "exactly five units has no surcharge",
			mut:         func(r *orders.ShippingRequest) { r.TotalWeight = decimal.NewFromInt(5) },
			wantAmount:  "9.99",
			wantCarrier: domain.CarrierUSPS,
		},
		{
			name: "international express defaults to fedex",
			mut: func(r *orders.ShippingRequest) {
				r.Method = domain.ShippingMethodExpress
				r.IsInternational = true
			},
			// (9.99 + 15) * 1.8 * 1.1
			wantAmount:  "49.4802",
			wantCarrier: domain.CarrierFedEx,
		},
		{
			name: "same day with dhl",
			mut: func(r *orders.ShippingRequest) {
				r.Method = domain.ShippingMethodSameDay
				r.Carrier = domain.CarrierDHL
			},
			wantAmount:  "62.4375",
			wantCarrier: domain.CarrierDHL,
		},
		{
			name: "restrictions apply in order",
			mut: func(r *orders.ShippingRequest) {
				r.Restrictions = []domain.ShippingRestriction{
					domain.RestrictionHazardous,
					domain.RestrictionOversized,
					domain.RestrictionFragile,
					"PERISHABLE",
				}
			},
			// (9.99 + 25) * 1.5 + 10
			wantAmount:  "62.485",
			wantCarrier: domain.CarrierUSPS,
		},
		{
			name: "pickup uses default multipliers",
			mut: func(r *orders.ShippingRequest) {
				r.Method = domain.ShippingMethodPickup
				r.TotalWeight = decimal.RequireFromString("7.5")
			},
			wantAmount:  "16.24",
			wantCarrier: domain.CarrierUSPS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := shippingRequest()
			tt.mut(&req)

			quote, err := orders.CalculateShipping(req)
			require.NoError(t, err)
			assert.True(t, quote.Amount.Equal(decimal.RequireFromString(tt.wantAmount)), "got %s", quote.Amount)
			assert.Equal(t, tt.wantCarrier, quote.Carrier)
		})
	}
}

func TestCalculateShipping_InvalidArguments(t *testing.T) {
	cases := map[string]func(r *orders.ShippingRequest){
		"method":          func(r *orders.ShippingRequest) { r.Method = "" },
		"shipping":        func(r *orders.ShippingRequest) { r.ShippingAddress = nil },
		"origin":          func(r *orders.ShippingRequest) { r.OriginAddress = nil },
		"calculated by":   func(r *orders.ShippingRequest) { r.CalculatedBy = "" },
		"zero weight":     func(r *orders.ShippingRequest) { r.TotalWeight = decimal.Zero },
		"negative weight": func(r *orders.ShippingRequest) { r.TotalWeight = decimal.NewFromInt(-1) },
	}

	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			req := shippingRequest()
			mut(&req)
			_, err := orders.CalculateShipping(req)
			assert.True(t, domain.IsInvalidArgument(err), "unexpected error: %v", err)
		})
	}
}

func TestEngineCalculateShipping_DoesNotTouchOrders(t *testing.T) {
	env := newTestEnv(t)
	created := env.createOrder(t)

	req := shippingRequest()
	req.OrderID = created.ID
	quote, err := env.engine.CalculateShipping(req)
	require.NoError(t, err)
	assert.True(t, quote.Amount.Equal(decimal.RequireFromString("9.99")))

	stored, err := env.engine.GetOrder(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Version, stored.Version)
	assert.True(t, stored.Shipping.IsZero())
}
