package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// orderEvent — полезная нагрузка сообщений outbox о заказе.
type orderEvent struct {
	EventType     string               `json:"event_type"`
	OrderID       string               `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	CustomerID    string               `json:"customer_id"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	Discount      decimal.Decimal      `json:"discount"`
	Total         decimal.Decimal      `json:"total"`
	Currency      string               `json:"currency"`
	ItemCount     int                  `json:"item_count"`
	Version       int64                `json:"version"`
	Reason        string               `json:"reason,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func newOrderEvent(order domain.Order, eventType, reason string, at time.Time) orderEvent {
	return orderEvent{
		EventType:     eventType,
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		CustomerID:    order.CustomerID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		Total:         order.Total,
		Currency:      order.Currency,
		ItemCount:     order.ItemCount(),
		Version:       order.Version,
		Reason:        reason,
		OccurredAt:    at,
	}
}
