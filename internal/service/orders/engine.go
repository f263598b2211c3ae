// Package orders реализует движок заказов: создание, частичное обновление,
// расчёт доставки, скидки, проверку и применение результата оплаты.
package orders

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
	"github.com/vladislavdragonenkov/orderengine/internal/metrics"
	"github.com/vladislavdragonenkov/orderengine/internal/service/inventory"
)

// Имена операций для логов и метрик.
const (
	opCreateOrder        = "create_order"
	opUpdateOrder        = "update_order"
	opAddItem            = "add_item"
	opRemoveItem         = "remove_item"
	opUpdateItemQuantity = "update_item_quantity"
	opCalculateShipping  = "calculate_shipping"
	opApplyDiscount      = "apply_discount"
	opValidateOrder      = "validate_order"
	opProcessPayment     = "process_payment"
)

// Engine — движок заказов. Все операции синхронны: прочитать заказ, изменить, сохранить.
type Engine struct {
	orders    domain.OrderRepository
	timeline  domain.TimelineRepository
	outbox    domain.OutboxRepository
	payments  domain.PaymentGateway
	inventory domain.InventoryChecker
	usage     domain.DiscountUsageCounter
	metrics   *metrics.EngineMetrics
	logger    *log.Entry
	currency  string

	now   func() time.Time
	newID func() string
}

// Option настраивает Engine.
type Option func(*Engine)

// WithTimeline включает запись событий таймлайна.
func WithTimeline(repo domain.TimelineRepository) Option {
	return func(e *Engine) { e.timeline = repo }
}

// WithOutbox включает постановку событий в outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(e *Engine) { e.outbox = repo }
}

// WithPaymentGateway задаёт платёжный шлюз для ProcessPayment.
func WithPaymentGateway(gw domain.PaymentGateway) Option {
	return func(e *Engine) { e.payments = gw }
}

// WithInventory заменяет пороговую проверку склада.
func WithInventory(checker domain.InventoryChecker) Option {
	return func(e *Engine) {
		if checker != nil {
			e.inventory = checker
		}
	}
}

// WithUsageCounter включает проверку лимита применений кода скидки.
func WithUsageCounter(counter domain.DiscountUsageCounter) Option {
	return func(e *Engine) { e.usage = counter }
}

// WithMetrics включает запись метрик.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDefaultCurrency задаёт валюту новых заказов и платежей без явной валюты.
func WithDefaultCurrency(currency string) Option {
	return func(e *Engine) {
		if !isBlank(currency) {
			e.currency = strings.ToUpper(strings.TrimSpace(currency))
		}
	}
}

// WithClock задаёт источник времени. Используется в тестах.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator задаёт генератор идентификаторов заказов и позиций.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// NewEngine создаёт движок поверх репозитория заказов.
func NewEngine(orders domain.OrderRepository, opts ...Option) *Engine {
	e := &Engine{
		orders:    orders,
		inventory: inventory.NewThresholdChecker(inventory.DefaultMaxQuantity),
		logger:    log.New().WithField("component", "order-engine"),
		currency:  domain.DefaultCurrency,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetOrder возвращает заказ по идентификатору.
func (e *Engine) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	if isBlank(orderID) {
		return domain.Order{}, domain.InvalidArgument("order_id", "is required")
	}
	order, err := e.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, errors.Wrap(err, "get order")
	}
	return order, nil
}

// ListCustomerOrders возвращает заказы клиента; limit <= 0 снимает ограничение.
func (e *Engine) ListCustomerOrders(_ context.Context, customerID string, limit int) ([]domain.Order, error) {
	if isBlank(customerID) {
		return nil, domain.InvalidArgument("customer_id", "is required")
	}
	list, err := e.orders.ListByCustomer(customerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list customer orders")
	}
	return list, nil
}

// Timeline возвращает события жизненного цикла заказа.
func (e *Engine) Timeline(_ context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if isBlank(orderID) {
		return nil, domain.InvalidArgument("order_id", "is required")
	}
	if _, err := e.orders.Get(orderID); err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if e.timeline == nil {
		return nil, nil
	}
	events, err := e.timeline.List(orderID)
	if err != nil {
		return nil, errors.Wrap(err, "list timeline")
	}
	return events, nil
}

// load читает заказ; ErrOrderNotFound сохраняется в цепочке ошибок.
func (e *Engine) load(orderID string) (domain.Order, error) {
	order, err := e.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "load order %s", orderID)
	}
	return order, nil
}

// save сохраняет заказ и возвращает его с новой версией.
func (e *Engine) save(order domain.Order) (domain.Order, error) {
	if err := e.orders.Save(order); err != nil {
		return domain.Order{}, errors.Wrapf(err, "save order %s", order.ID)
	}
	order.Version++
	return order, nil
}

// record пишет событие таймлайна и, если eventType не пуст, сообщение outbox.
// Ошибки только логируются: заказ к этому моменту уже сохранён.
func (e *Engine) record(order domain.Order, timelineType, reason, actor, eventType string) {
	now := e.now()
	logger := e.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"event":    eventType,
	})

	if e.timeline != nil {
		err := e.timeline.Append(domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     timelineType,
			Reason:   reason,
			Actor:    actor,
			Occurred: now,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to append timeline event")
		} else if e.metrics != nil {
			e.metrics.RecordTimelineEvent()
		}
	}

	if e.outbox != nil && eventType != "" {
		payload, err := json.Marshal(newOrderEvent(order, eventType, reason, now))
		if err != nil {
			logger.WithError(err).Error("failed to marshal outbox payload")
			return
		}
		_, err = e.outbox.Enqueue(domain.OutboxMessage{
			ID:            e.newID(),
			AggregateType: domain.AggregateTypeOrder,
			AggregateID:   order.ID,
			EventType:     eventType,
			Payload:       payload,
			CreatedAt:     now,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to enqueue outbox message")
		} else if e.metrics != nil {
			e.metrics.RecordOutboxEvent()
		}
	}
}

// observe фиксирует длительность и результат операции.
func (e *Engine) observe(operation string, start time.Time, err error) {
	if e.metrics != nil {
		e.metrics.RecordOperation(operation, err, time.Since(start))
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
