package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// UpdateDirectives — набор частичных изменений заказа.
// Незаданное поле не меняет заказ; заданное нулевое значение очищает поле.
type UpdateDirectives struct {
	CustomerEmail domain.Optional[string] `json:"customer_email"`
	CustomerPhone domain.Optional[string] `json:"customer_phone"`

	Status        domain.Optional[domain.OrderStatus]   `json:"status"`
	Priority      domain.Optional[domain.Priority]      `json:"priority"`
	PaymentStatus domain.Optional[domain.PaymentStatus] `json:"payment_status"`

	PaymentMethod        domain.Optional[string] `json:"payment_method"`
	PaymentTransactionID domain.Optional[string] `json:"payment_transaction_id"`

	ShippingMethod     domain.Optional[domain.ShippingMethod] `json:"shipping_method"`
	ShippingCarrier    domain.Optional[domain.Carrier]        `json:"shipping_carrier"`
	TrackingNumber     domain.Optional[string]                `json:"tracking_number"`
	ShippingWeight     domain.Optional[decimal.Decimal]       `json:"shipping_weight"`
	ShippingDimensions domain.Optional[string]                `json:"shipping_dimensions"`
	RequiresSignature  domain.Optional[bool]                  `json:"requires_signature"`

	EstimatedDeliveryDate domain.Optional[*time.Time] `json:"estimated_delivery_date"`
	ActualDeliveryDate    domain.Optional[*time.Time] `json:"actual_delivery_date"`

	// Денежные поля; любое из них приводит к пересчёту total.
	Tax      domain.Optional[decimal.Decimal] `json:"tax"`
	Shipping domain.Optional[decimal.Decimal] `json:"shipping"`
	Discount domain.Optional[decimal.Decimal] `json:"discount"`
	Currency domain.Optional[string]          `json:"currency"`

	IsGift       domain.Optional[bool]   `json:"is_gift"`
	GiftMessage  domain.Optional[string] `json:"gift_message"`
	GiftWrapType domain.Optional[string] `json:"gift_wrap_type"`

	SalesChannel  domain.Optional[string] `json:"sales_channel"`
	PromotionCode domain.Optional[string] `json:"promotion_code"`
	ReferralCode  domain.Optional[string] `json:"referral_code"`

	CustomsDeclarationNumber domain.Optional[string] `json:"customs_declaration_number"`

	ShippingAddress      domain.Optional[*domain.Address] `json:"shipping_address"`
	BillingAddress       domain.Optional[*domain.Address] `json:"billing_address"`
	DeliveryInstructions domain.Optional[string]          `json:"delivery_instructions"`

	Notes      domain.Optional[map[string]string] `json:"notes"`
	Attributes domain.Optional[map[string]string] `json:"attributes"`
	Tags       domain.Optional[[]string]          `json:"tags"`
}

func (d UpdateDirectives) validate() error {
	if v, ok := d.Status.Get(); ok && !v.Valid() {
		return domain.InvalidArgument("status", fmt.Sprintf("unknown value %q", v))
	}
	if v, ok := d.Priority.Get(); ok && !v.Valid() {
		return domain.InvalidArgument("priority", fmt.Sprintf("unknown value %q", v))
	}
	if v, ok := d.PaymentStatus.Get(); ok && !v.Valid() {
		return domain.InvalidArgument("payment_status", fmt.Sprintf("unknown value %q", v))
	}
	return nil
}

// UpdateOrder применяет директивы к заказу и сохраняет его.
func (e *Engine) UpdateOrder(_ context.Context, orderID string, directives UpdateDirectives, updatedBy string) (order domain.Order, err error) {
	start := time.Now()
	defer func() { e.observe(opUpdateOrder, start, err) }()

	if isBlank(orderID) {
		return domain.Order{}, domain.InvalidArgument("order_id", "is required")
	}
	if isBlank(updatedBy) {
		return domain.Order{}, domain.InvalidArgument("updated_by", "is required")
	}
	if err := directives.validate(); err != nil {
		return domain.Order{}, err
	}

	order, err = e.load(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	previousStatus := order.Status
	now := e.now()
	applyDirectives(&order, directives, now)
	order.Recalculate()
	order.Touch(now, updatedBy)

	order, err = e.save(order)
	if err != nil {
		return domain.Order{}, err
	}

	e.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"operation":  opUpdateOrder,
		"updated_by": updatedBy,
		"version":    order.Version,
	}).Info("order updated")

	e.record(order, domain.TimelineOrderUpdated, "", updatedBy, domain.EventOrderUpdated)
	if order.Status != previousStatus {
		reason := fmt.Sprintf("%s -> %s", previousStatus, order.Status)
		e.record(order, domain.TimelineOrderStatusChanged, reason, updatedBy, "")
	}

	return order, nil
}

// applyDirectives переносит заданные поля на заказ. Производные поля
// восстанавливаются вызывающей стороной через Recalculate.
func applyDirectives(order *domain.Order, d UpdateDirectives, now time.Time) {
	set(&order.CustomerEmail, d.CustomerEmail)
	set(&order.CustomerPhone, d.CustomerPhone)

	set(&order.Status, d.Status)
	set(&order.Priority, d.Priority)
	set(&order.PaymentStatus, d.PaymentStatus)
	set(&order.PaymentMethod, d.PaymentMethod)
	set(&order.PaymentTransactionID, d.PaymentTransactionID)

	set(&order.ShippingMethod, d.ShippingMethod)
	set(&order.ShippingCarrier, d.ShippingCarrier)
	set(&order.TrackingNumber, d.TrackingNumber)
	set(&order.ShippingWeight, d.ShippingWeight)
	set(&order.ShippingDimensions, d.ShippingDimensions)
	set(&order.RequiresSignature, d.RequiresSignature)

	if v, ok := d.EstimatedDeliveryDate.Get(); ok {
		order.EstimatedDeliveryDate = cloneTime(v)
	}
	if v, ok := d.ActualDeliveryDate.Get(); ok {
		order.ActualDeliveryDate = cloneTime(v)
	}

	set(&order.Tax, d.Tax)
	set(&order.Shipping, d.Shipping)
	set(&order.Discount, d.Discount)
	set(&order.Currency, d.Currency)

	// Снятие признака подарка очищает сообщение и упаковку в том же вызове.
	if v, ok := d.IsGift.Get(); ok {
		order.SetGift(v)
	}
	if order.IsGift {
		set(&order.GiftMessage, d.GiftMessage)
		set(&order.GiftWrapType, d.GiftWrapType)
	}

	set(&order.SalesChannel, d.SalesChannel)
	set(&order.PromotionCode, d.PromotionCode)
	set(&order.ReferralCode, d.ReferralCode)
	set(&order.CustomsDeclarationNumber, d.CustomsDeclarationNumber)

	if v, ok := d.ShippingAddress.Get(); ok {
		order.SetShippingAddress(v)
	}
	if v, ok := d.BillingAddress.Get(); ok {
		order.SetBillingAddress(v)
	}
	// Без адреса доставки инструкции молча пропускаются.
	if v, ok := d.DeliveryInstructions.Get(); ok && order.ShippingAddress != nil {
		order.ShippingAddress.SetDeliveryInstructions(v, now)
	}

	if v, ok := d.Notes.Get(); ok {
		order.Notes = copyMap(v)
	}
	if v, ok := d.Attributes.Get(); ok {
		order.Attributes = copyMap(v)
	}
	if v, ok := d.Tags.Get(); ok {
		order.Tags = append([]string(nil), v...)
	}
}

func set[T any](dst *T, src domain.Optional[T]) {
	if v, ok := src.Get(); ok {
		*dst = v
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := *t
	return &ts
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
