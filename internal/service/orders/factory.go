package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// CreateOrderRequest описывает новый заказ. Пустая строка означает "не передано".
type CreateOrderRequest struct {
	CustomerID           string                `json:"customer_id"`
	CustomerEmail        string                `json:"customer_email"`
	CustomerPhone        string                `json:"customer_phone,omitempty"`
	PaymentMethod        string                `json:"payment_method"`
	PaymentTransactionID string                `json:"payment_transaction_id,omitempty"`
	ShippingAddress      *domain.Address       `json:"shipping_address"`
	BillingAddress       *domain.Address       `json:"billing_address,omitempty"`
	ShippingMethod       domain.ShippingMethod `json:"shipping_method,omitempty"`
	Priority             domain.Priority       `json:"priority,omitempty"`
	IsGift               bool                  `json:"is_gift"`
	GiftMessage          string                `json:"gift_message,omitempty"`
	GiftWrapType         string                `json:"gift_wrap_type,omitempty"`
	PromotionCode        string                `json:"promotion_code,omitempty"`
	ReferralCode         string                `json:"referral_code,omitempty"`
	SalesChannel         string                `json:"sales_channel,omitempty"`
	Items                []domain.OrderItem    `json:"items,omitempty"`
	DeliveryInstructions string                `json:"delivery_instructions,omitempty"`
	CreatedBy            string                `json:"created_by"`
}

func (r CreateOrderRequest) validate() error {
	switch {
	case isBlank(r.CustomerID):
		return domain.InvalidArgument("customer_id", "is required")
	case isBlank(r.CustomerEmail):
		return domain.InvalidArgument("customer_email", "is required")
	case isBlank(r.PaymentMethod):
		return domain.InvalidArgument("payment_method", "is required")
	case r.ShippingAddress == nil:
		return domain.InvalidArgument("shipping_address", "is required")
	case isBlank(r.CreatedBy):
		return domain.InvalidArgument("created_by", "is required")
	case r.Priority != "" && !r.Priority.Valid():
		return domain.InvalidArgument("priority", fmt.Sprintf("unknown value %q", r.Priority))
	}
	for _, item := range r.Items {
		if isBlank(item.ProductID) {
			return domain.InvalidArgument("items.product_id", "is required")
		}
		if item.UnitPrice.IsNegative() {
			return domain.InvalidArgument("items.unit_price", "must be non-negative")
		}
	}
	return nil
}

// CreateOrder строит новый заказ в статусе PENDING и сохраняет его.
func (e *Engine) CreateOrder(_ context.Context, req CreateOrderRequest) (order domain.Order, err error) {
	start := time.Now()
	defer func() { e.observe(opCreateOrder, start, err) }()

	if err := req.validate(); err != nil {
		return domain.Order{}, err
	}

	order = e.buildOrder(req)
	if err := e.orders.Create(order); err != nil {
		return domain.Order{}, errors.Wrap(err, "create order")
	}

	e.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"operation":   opCreateOrder,
		"items":       order.ItemCount(),
		"total":       order.Total.String(),
	}).Info("order created")
	e.record(order, domain.TimelineOrderCreated, "", req.CreatedBy, domain.EventOrderCreated)

	return order, nil
}

// buildOrder применяет правила значений по умолчанию.
func (e *Engine) buildOrder(req CreateOrderRequest) domain.Order {
	now := e.now()

	order := domain.Order{
		ID:                   e.newID(),
		Number:               fmt.Sprintf("ON%d", now.UnixMilli()),
		CustomerID:           req.CustomerID,
		CustomerEmail:        req.CustomerEmail,
		CustomerPhone:        req.CustomerPhone,
		OrderDate:            now,
		Status:               domain.OrderStatusPending,
		Priority:             req.Priority,
		Tax:                  decimal.Zero,
		Shipping:             decimal.Zero,
		Discount:             decimal.Zero,
		Currency:             e.currency,
		PaymentStatus:        domain.PaymentStatusPending,
		PaymentMethod:        req.PaymentMethod,
		PaymentTransactionID: req.PaymentTransactionID,
		ShippingMethod:       req.ShippingMethod,
		ShippingWeight:       decimal.Zero,
		SalesChannel:         req.SalesChannel,
		PromotionCode:        req.PromotionCode,
		ReferralCode:         req.ReferralCode,
		AppliedDiscountCodes: []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
		CreatedBy:            req.CreatedBy,
		UpdatedBy:            req.CreatedBy,
	}

	if order.ShippingMethod == "" {
		order.ShippingMethod = domain.ShippingMethodStandard
	}
	if order.Priority == "" {
		order.Priority = domain.PriorityNormal
	}
	if isBlank(order.SalesChannel) {
		order.SalesChannel = domain.DefaultSalesChannel
	}
	order.ShippingCarrier = domain.DefaultCarrier(order.ShippingMethod)

	order.SetGift(req.IsGift)
	if req.IsGift {
		order.GiftMessage = req.GiftMessage
		order.GiftWrapType = req.GiftWrapType
		if isBlank(order.GiftWrapType) {
			order.GiftWrapType = domain.DefaultGiftWrapType
		}
	}

	shipping := req.ShippingAddress.Clone()
	if shipping.ID == "" {
		shipping.ID = e.newID()
	}
	shipping.CreatedAt = now
	shipping.UpdatedAt = now
	if !isBlank(req.DeliveryInstructions) {
		shipping.SetDeliveryInstructions(req.DeliveryInstructions, now)
	}
	order.SetShippingAddress(shipping)

	billing := req.BillingAddress
	if billing == nil {
		billing = shipping
	}
	order.SetBillingAddress(billing)

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		item = item.Clone()
		if item.ID == "" {
			item.ID = e.newID()
		}
		if isBlank(item.Currency) {
			item.Currency = e.currency
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		items = append(items, item)
	}
	order.SetItems(items)

	order.Touch(now, req.CreatedBy)
	return order
}
