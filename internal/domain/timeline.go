package domain

import "time"

// Типы событий таймлайна.
const (
	TimelineOrderCreated       = "OrderCreated"
	TimelineOrderUpdated       = "OrderUpdated"
	TimelineOrderStatusChanged = "OrderStatusChanged"
	TimelineDiscountApplied    = "DiscountApplied"
	TimelinePaymentCaptured    = "PaymentCaptured"
	TimelinePaymentFailed      = "PaymentFailed"
	TimelineItemsChanged       = "ItemsChanged"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string    `json:"order_id"`
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Occurred time.Time `json:"occurred"`
}
