package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentGateway описывает внешний платёжный шлюз.
type PaymentGateway interface {
	// Charge пытается списать средства. Отказ шлюза — это Success=false, а не ошибка.
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// InventoryChecker проверяет доступность товара на складе.
type InventoryChecker interface {
	// Available сообщает, можно ли отгрузить quantity единиц товара.
	Available(ctx context.Context, productID string, quantity int) (bool, error)
}

// DiscountUsageCounter считает применения кода скидки.
type DiscountUsageCounter interface {
	// Usage возвращает текущее число применений кода.
	Usage(code string) (int, error)
	// Increment увеличивает счётчик и возвращает новое значение.
	Increment(code string) (int, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// Типы событий outbox.
const (
	EventOrderCreated          = "order.created"
	EventOrderUpdated          = "order.updated"
	EventOrderDiscountApplied  = "order.discount_applied"
	EventOrderPaymentSucceeded = "order.payment_succeeded"
	EventOrderPaymentFailed    = "order.payment_failed"
	EventOrderItemsChanged     = "order.items_changed"
)

// DeadLetter — сообщение, которое outbox не смог опубликовать после всех попыток.
// Payload содержит исходное событие без изменений.
type DeadLetter struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

// AggregateTypeOrder — тип агрегата для сообщений outbox.
const AggregateTypeOrder = "order"

// ShippingQuote — расчёт стоимости доставки вместе с выбранным перевозчиком.
type ShippingQuote struct {
	Amount  decimal.Decimal `json:"amount"`
	Carrier Carrier         `json:"carrier"`
	Method  ShippingMethod  `json:"method"`
}
