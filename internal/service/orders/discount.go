package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// DiscountType — способ расчёта суммы скидки.
type DiscountType string

const (
	DiscountPercentage   DiscountType = "PERCENTAGE"
	DiscountFixedAmount  DiscountType = "FIXED_AMOUNT"
	DiscountFreeShipping DiscountType = "FREE_SHIPPING"
)

// Valid проверяет, что тип скидки поддерживается.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountPercentage, DiscountFixedAmount, DiscountFreeShipping:
		return true
	default:
		return false
	}
}

// Префиксы кодов, доступных только отдельным группам клиентов.
const (
	firstTimeCodePrefix = "FIRST"
	vipCodePrefix       = "VIP"
)

var hundred = decimal.NewFromInt(100)

// DiscountRequest описывает применение кода скидки к заказу.
type DiscountRequest struct {
	OrderID             string                           `json:"order_id"`
	Code                string                           `json:"discount_code"`
	Type                DiscountType                     `json:"discount_type"`
	Value               decimal.Decimal                  `json:"discount_value"`
	MinOrderAmount      domain.Optional[decimal.Decimal] `json:"min_order_amount"`
	MaxDiscount         domain.Optional[decimal.Decimal] `json:"max_discount"`
	EligibleProducts    []string                         `json:"eligible_products,omitempty"`
	ExcludedProducts    []string                         `json:"excluded_products,omitempty"`
	IsFirstTimeCustomer bool                             `json:"is_first_time_customer"`
	IsVIPCustomer       bool                             `json:"is_vip_customer"`
	CustomerEmail       string                           `json:"customer_email"`
	Expiration          *time.Time                       `json:"expiration,omitempty"`
	// UsageLimit проверяется только при подключённом счётчике; 0 снимает ограничение.
	UsageLimit int    `json:"usage_limit"`
	AppliedBy  string `json:"applied_by"`
}

func (r DiscountRequest) validate() error {
	switch {
	case isBlank(r.OrderID):
		return domain.InvalidArgument("order_id", "is required")
	case isBlank(r.Code):
		return domain.InvalidArgument("discount_code", "is required")
	case r.Type == "":
		return domain.InvalidArgument("discount_type", "is required")
	case !r.Type.Valid():
		return domain.InvalidArgument("discount_type", fmt.Sprintf("unknown value %q", r.Type))
	case !r.Value.IsPositive():
		return domain.InvalidArgument("discount_value", "must be positive")
	case isBlank(r.CustomerEmail):
		return domain.InvalidArgument("customer_email", "is required")
	case isBlank(r.AppliedBy):
		return domain.InvalidArgument("applied_by", "is required")
	}
	return nil
}

// ApplyDiscount проверяет применимость скидки, добавляет её сумму к скидке заказа
// и возвращает рассчитанную сумму.
func (e *Engine) ApplyDiscount(_ context.Context, req DiscountRequest) (amount decimal.Decimal, err error) {
	start := time.Now()
	defer func() { e.observe(opApplyDiscount, start, err) }()

	if err := req.validate(); err != nil {
		return decimal.Zero, err
	}

	order, err := e.load(req.OrderID)
	if err != nil {
		return decimal.Zero, err
	}

	logger := e.logger.WithFields(log.Fields{
		"order_id":      order.ID,
		"operation":     opApplyDiscount,
		"discount_code": req.Code,
	})

	if err := e.checkEligibility(order, req); err != nil {
		if gate, ok := domain.DiscountGateOf(err); ok {
			logger.WithField("gate", gate).Info("discount rejected")
			if e.metrics != nil {
				e.metrics.RecordDiscountRejected(string(gate))
			}
		}
		return decimal.Zero, err
	}

	amount = discountAmount(order, req)

	now := e.now()
	order.Discount = order.Discount.Add(amount)
	order.ApplyDiscountCode(req.Code)
	order.Recalculate()
	order.Touch(now, req.AppliedBy)

	order, err = e.save(order)
	if err != nil {
		return decimal.Zero, err
	}

	if e.usage != nil {
		if _, err := e.usage.Increment(req.Code); err != nil {
			logger.WithError(err).Warn("failed to increment discount usage")
		}
	}
	if e.metrics != nil {
		e.metrics.RecordDiscountApplied()
	}

	logger.WithFields(log.Fields{
		"amount": amount.String(),
		"total":  order.Total.String(),
	}).Info("discount applied")
	e.record(order, domain.TimelineDiscountApplied, fmt.Sprintf("%s: %s", req.Code, amount.String()),
		req.AppliedBy, domain.EventOrderDiscountApplied)

	return amount, nil
}

// checkEligibility проверяет условия применимости строго по порядку.
func (e *Engine) checkEligibility(order domain.Order, req DiscountRequest) error {
	if req.Expiration != nil && req.Expiration.Before(e.now()) {
		return ineligible(domain.DiscountGateExpired, "discount code has expired")
	}
	if minAmount, ok := req.MinOrderAmount.Get(); ok && order.Subtotal.LessThan(minAmount) {
		return ineligible(domain.DiscountGateMinOrderAmount,
			fmt.Sprintf("order subtotal %s is below minimum %s", order.Subtotal, minAmount))
	}
	if strings.HasPrefix(req.Code, firstTimeCodePrefix) && !req.IsFirstTimeCustomer {
		return ineligible(domain.DiscountGateFirstTimeCustomer, "code is valid for first-time customers only")
	}
	if strings.HasPrefix(req.Code, vipCodePrefix) && !req.IsVIPCustomer {
		return ineligible(domain.DiscountGateVIPCustomer, "code is valid for VIP customers only")
	}
	if len(req.EligibleProducts) > 0 && !containsAnyProduct(order, req.EligibleProducts) {
		return ineligible(domain.DiscountGateEligibleProducts, "order has no eligible products")
	}
	if len(req.ExcludedProducts) > 0 && containsAnyProduct(order, req.ExcludedProducts) {
		return ineligible(domain.DiscountGateExcludedProducts, "order contains excluded products")
	}
	if e.usage != nil && req.UsageLimit > 0 {
		used, err := e.usage.Usage(req.Code)
		if err != nil {
			return errors.Wrap(err, "read discount usage")
		}
		if used >= req.UsageLimit {
			return ineligible(domain.DiscountGateUsageLimit,
				fmt.Sprintf("code used %d of %d times", used, req.UsageLimit))
		}
	}
	return nil
}

// discountAmount вычисляет сумму скидки по её типу.
func discountAmount(order domain.Order, req DiscountRequest) decimal.Decimal {
	switch req.Type {
	case DiscountPercentage:
		amount := order.Subtotal.Mul(req.Value).Div(hundred)
		if maxAmount, ok := req.MaxDiscount.Get(); ok {
			amount = decimal.Min(amount, maxAmount)
		}
		return amount
	case DiscountFixedAmount:
		return decimal.Min(req.Value, order.Subtotal)
	case DiscountFreeShipping:
		return order.Shipping
	default:
		return decimal.Zero
	}
}

func containsAnyProduct(order domain.Order, productIDs []string) bool {
	set := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		set[id] = struct{}{}
	}
	for _, item := range order.Items {
		if _, ok := set[item.ProductID]; ok {
			return true
		}
	}
	return false
}

func ineligible(gate domain.DiscountGate, reason string) error {
	return &domain.IneligibleDiscountError{Gate: gate, Reason: reason}
}
