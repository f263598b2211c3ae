package orders

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

var (
	shippingBaseRate          = decimal.RequireFromString("9.99")
	shippingFreeWeight        = decimal.NewFromInt(5)
	shippingPerUnitOverweight = decimal.RequireFromString("2.50")
	internationalSurcharge    = decimal.RequireFromString("15.00")
	signatureSurcharge        = decimal.RequireFromString("3.50")
	expediteMultiplier        = decimal.RequireFromString("2.5")
	hazardousSurcharge        = decimal.RequireFromString("25.00")
	fragileSurcharge          = decimal.RequireFromString("10.00")
	oversizedMultiplier       = decimal.RequireFromString("1.5")

	methodMultipliers = map[domain.ShippingMethod]decimal.Decimal{
		domain.ShippingMethodExpress:   decimal.RequireFromString("1.8"),
		domain.ShippingMethodOvernight: decimal.RequireFromString("3.5"),
		domain.ShippingMethodSameDay:   decimal.RequireFromString("5.0"),
	}
	carrierMultipliers = map[domain.Carrier]decimal.Decimal{
		domain.CarrierFedEx: decimal.RequireFromString("1.1"),
		domain.CarrierUPS:   decimal.RequireFromString("1.15"),
		domain.CarrierDHL:   decimal.RequireFromString("1.25"),
	}
)

// ShippingRequest — входные данные расчёта доставки.
type ShippingRequest struct {
	OrderID           string                       `json:"order_id,omitempty"`
	Method            domain.ShippingMethod        `json:"shipping_method"`
	ShippingAddress   *domain.Address              `json:"shipping_address"`
	OriginAddress     *domain.Address              `json:"origin_address"`
	TotalWeight       decimal.Decimal              `json:"total_weight"`
	Dimensions        string                       `json:"dimensions,omitempty"`
	IsInternational   bool                         `json:"is_international"`
	RequiresSignature bool                         `json:"requires_signature"`
	IsExpedited       bool                         `json:"is_expedited"`
	Carrier           domain.Carrier               `json:"carrier,omitempty"`
	Restrictions      []domain.ShippingRestriction `json:"restrictions,omitempty"`
	CalculatedBy      string                       `json:"calculated_by"`
}

// CalculateShipping рассчитывает стоимость доставки. Заказ не изменяется:
// результат записывается вызывающей стороной через UpdateOrder.
func CalculateShipping(req ShippingRequest) (domain.ShippingQuote, error) {
	switch {
	case req.Method == "":
		return domain.ShippingQuote{}, domain.InvalidArgument("shipping_method", "is required")
	case req.ShippingAddress == nil:
		return domain.ShippingQuote{}, domain.InvalidArgument("shipping_address", "is required")
	case req.OriginAddress == nil:
		return domain.ShippingQuote{}, domain.InvalidArgument("origin_address", "is required")
	case isBlank(req.CalculatedBy):
		return domain.ShippingQuote{}, domain.InvalidArgument("calculated_by", "is required")
	case !req.TotalWeight.IsPositive():
		return domain.ShippingQuote{}, domain.InvalidArgument("total_weight", "must be positive")
	}

	carrier := req.Carrier
	if carrier == "" {
		carrier = domain.DefaultCarrier(req.Method)
	}

	// Порядок шагов важен: надбавки складываются до множителей.
	rate := shippingBaseRate
	if req.TotalWeight.GreaterThan(shippingFreeWeight) {
		rate = rate.Add(req.TotalWeight.Sub(shippingFreeWeight).Mul(shippingPerUnitOverweight))
	}
	if req.IsInternational {
		rate = rate.Add(internationalSurcharge)
	}
	if req.RequiresSignature {
		rate = rate.Add(signatureSurcharge)
	}
	if req.IsExpedited {
		rate = rate.Mul(expediteMultiplier)
	}
	if m, ok := methodMultipliers[req.Method]; ok {
		rate = rate.Mul(m)
	}
	if m, ok := carrierMultipliers[carrier]; ok {
		rate = rate.Mul(m)
	}
	for _, restriction := range req.Restrictions {
		switch restriction {
		case domain.RestrictionHazardous:
			rate = rate.Add(hazardousSurcharge)
		case domain.RestrictionFragile:
			rate = rate.Add(fragileSurcharge)
		case domain.RestrictionOversized:
			rate = rate.Mul(oversizedMultiplier)
		}
	}

	return domain.ShippingQuote{Amount: rate, Carrier: carrier, Method: req.Method}, nil
}

// CalculateShipping рассчитывает доставку с логированием и метриками.
func (e *Engine) CalculateShipping(req ShippingRequest) (quote domain.ShippingQuote, err error) {
	start := time.Now()
	defer func() { e.observe(opCalculateShipping, start, err) }()

	quote, err = CalculateShipping(req)
	if err != nil {
		return domain.ShippingQuote{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordShippingQuote(quote.Amount.InexactFloat64())
	}
	e.logger.WithFields(log.Fields{
		"order_id":      req.OrderID,
		"operation":     opCalculateShipping,
		"method":        req.Method,
		"carrier":       quote.Carrier,
		"amount":        quote.Amount.String(),
		"calculated_by": req.CalculatedBy,
	}).Debug("shipping calculated")

	return quote, nil
}
