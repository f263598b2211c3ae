package orders

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// ValidationCheck — группа проверок заказа, которую можно пропустить.
type ValidationCheck string

const (
	CheckBasic     ValidationCheck = "BASIC"
	CheckPayment   ValidationCheck = "PAYMENT"
	CheckShipping  ValidationCheck = "SHIPPING"
	CheckInventory ValidationCheck = "INVENTORY"
	CheckPromotion ValidationCheck = "PROMOTION"
)

// Сообщения о нарушениях.
const (
	msgCustomerRequired      = "Customer ID is required"
	msgItemsRequired         = "Order must have at least one item"
	msgPaymentMethodRequired = "Payment method is required"
	msgTransactionRequired   = "Payment transaction ID is required for paid orders"
	msgShippingRequired      = "Shipping address is required"
	msgShippingIncomplete    = "Shipping address is incomplete"
	msgInsufficientInventory = "Insufficient inventory for product: "
	msgPromotionExpired      = "Promotion code has expired"
	msgHighValueNeedsVIP     = "High-value orders require VIP priority"
)

// strictPriority не входит в объявленные приоритеты, поэтому строгая проверка
// отклоняет любой заказ дороже strictTotalThreshold.
const strictPriority = "VIP"

const expiredPromotionPrefix = "EXPIRED"

var strictTotalThreshold = decimal.NewFromInt(10000)

// ValidationRequest задаёт заказ и набор проверок.
type ValidationRequest struct {
	Order             *domain.Order     `json:"-"`
	ValidatePayment   bool              `json:"validate_payment"`
	ValidateShipping  bool              `json:"validate_shipping"`
	ValidateInventory bool              `json:"validate_inventory"`
	ValidatePromotion bool              `json:"validate_promotion"`
	Strict            bool              `json:"strict"`
	Skip              []ValidationCheck `json:"skip,omitempty"`
	Context           string            `json:"context,omitempty"`
	Options           map[string]string `json:"options,omitempty"`
	ValidatedBy       string            `json:"validated_by"`
}

func (r ValidationRequest) enabled(check ValidationCheck, requested bool) bool {
	if !requested {
		return false
	}
	for _, skipped := range r.Skip {
		if ValidationCheck(strings.ToUpper(string(skipped))) == check {
			return false
		}
	}
	return true
}

// ValidateOrder проверяет заказ и возвращает признак успеха и список нарушений.
// Заказ не изменяется.
func (e *Engine) ValidateOrder(ctx context.Context, req ValidationRequest) (valid bool, violations []string, err error) {
	start := time.Now()
	defer func() { e.observe(opValidateOrder, start, err) }()

	if req.Order == nil {
		return false, nil, domain.InvalidArgument("order", "is required")
	}
	if isBlank(req.ValidatedBy) {
		return false, nil, domain.InvalidArgument("validated_by", "is required")
	}

	order := req.Order
	violations = []string{}

	if req.enabled(CheckBasic, true) {
		if isBlank(order.CustomerID) {
			violations = append(violations, msgCustomerRequired)
		}
		if !order.HasItems() {
			violations = append(violations, msgItemsRequired)
		}
	}

	if req.enabled(CheckPayment, req.ValidatePayment) {
		if isBlank(order.PaymentMethod) {
			violations = append(violations, msgPaymentMethodRequired)
		}
		if order.IsPaid() && isBlank(order.PaymentTransactionID) {
			violations = append(violations, msgTransactionRequired)
		}
	}

	if req.enabled(CheckShipping, req.ValidateShipping) {
		switch {
		case order.ShippingAddress == nil:
			violations = append(violations, msgShippingRequired)
		case !order.ShippingAddress.IsComplete():
			violations = append(violations, msgShippingIncomplete)
		}
	}

	if req.enabled(CheckInventory, req.ValidateInventory) {
		for _, item := range order.Items {
			ok, err := e.inventory.Available(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return false, nil, errors.Wrapf(err, "check inventory for %s", item.ProductID)
			}
			if !ok {
				violations = append(violations, msgInsufficientInventory+item.ProductName)
			}
		}
	}

	if req.enabled(CheckPromotion, req.ValidatePromotion) {
		if order.PromotionCode != "" && strings.HasPrefix(order.PromotionCode, expiredPromotionPrefix) {
			violations = append(violations, msgPromotionExpired)
		}
	}

	if req.Strict && order.Total.GreaterThan(strictTotalThreshold) && string(order.Priority) != strictPriority {
		violations = append(violations, msgHighValueNeedsVIP)
	}

	valid = len(violations) == 0
	if e.metrics != nil {
		e.metrics.RecordValidation(valid)
	}

	logger := e.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"operation":    opValidateOrder,
		"validated_by": req.ValidatedBy,
		"context":      req.Context,
	})
	if valid {
		logger.Info("order validation passed")
	} else {
		logger.WithField("violations", violations).Warn("order validation failed")
	}

	return valid, violations, nil
}
