package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// AddItem добавляет позицию в заказ.
func (e *Engine) AddItem(_ context.Context, orderID string, item domain.OrderItem, updatedBy string) (order domain.Order, err error) {
	start := time.Now()
	defer func() { e.observe(opAddItem, start, err) }()

	if err := requireMutation(orderID, updatedBy); err != nil {
		return domain.Order{}, err
	}
	if isBlank(item.ProductID) {
		return domain.Order{}, domain.InvalidArgument("product_id", "is required")
	}
	if item.UnitPrice.IsNegative() {
		return domain.Order{}, domain.InvalidArgument("unit_price", "must be non-negative")
	}

	return e.mutateItems(opAddItem, orderID, updatedBy, func(order *domain.Order, now time.Time) (string, error) {
		item = item.Clone()
		if item.ID == "" {
			item.ID = e.newID()
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		order.AddItem(item)
		return fmt.Sprintf("added %s x%d", item.ProductID, item.Quantity), nil
	})
}

// RemoveItem удаляет все позиции товара productID.
func (e *Engine) RemoveItem(_ context.Context, orderID, productID, updatedBy string) (order domain.Order, err error) {
	start := time.Now()
	defer func() { e.observe(opRemoveItem, start, err) }()

	if err := requireMutation(orderID, updatedBy); err != nil {
		return domain.Order{}, err
	}
	if isBlank(productID) {
		return domain.Order{}, domain.InvalidArgument("product_id", "is required")
	}

	return e.mutateItems(opRemoveItem, orderID, updatedBy, func(order *domain.Order, _ time.Time) (string, error) {
		if order.RemoveItemsByProduct(productID) == 0 {
			return "", errors.Wrapf(domain.ErrItemNotFound, "product %s", productID)
		}
		return "removed " + productID, nil
	})
}

// UpdateItemQuantity меняет количество позиции; значение <= 0 приводится к 1.
func (e *Engine) UpdateItemQuantity(_ context.Context, orderID, itemID string, quantity int, updatedBy string) (order domain.Order, err error) {
	start := time.Now()
	defer func() { e.observe(opUpdateItemQuantity, start, err) }()

	if err := requireMutation(orderID, updatedBy); err != nil {
		return domain.Order{}, err
	}
	if isBlank(itemID) {
		return domain.Order{}, domain.InvalidArgument("item_id", "is required")
	}

	return e.mutateItems(opUpdateItemQuantity, orderID, updatedBy, func(order *domain.Order, now time.Time) (string, error) {
		if err := order.SetItemQuantity(itemID, quantity, now); err != nil {
			return "", errors.Wrapf(err, "item %s", itemID)
		}
		return fmt.Sprintf("quantity of %s set to %d", itemID, quantity), nil
	})
}

// mutateItems загружает заказ, применяет mutate и сохраняет результат.
func (e *Engine) mutateItems(
	operation, orderID, updatedBy string,
	mutate func(order *domain.Order, now time.Time) (string, error),
) (domain.Order, error) {
	order, err := e.load(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	now := e.now()
	reason, err := mutate(&order, now)
	if err != nil {
		return domain.Order{}, err
	}
	order.Recalculate()
	order.Touch(now, updatedBy)

	order, err = e.save(order)
	if err != nil {
		return domain.Order{}, err
	}

	e.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"operation":  operation,
		"updated_by": updatedBy,
		"subtotal":   order.Subtotal.String(),
	}).Info("order items changed")
	e.record(order, domain.TimelineItemsChanged, reason, updatedBy, domain.EventOrderItemsChanged)

	return order, nil
}

func requireMutation(orderID, updatedBy string) error {
	if isBlank(orderID) {
		return domain.InvalidArgument("order_id", "is required")
	}
	if isBlank(updatedBy) {
		return domain.InvalidArgument("updated_by", "is required")
	}
	return nil
}
