package inventory

import (
	"context"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// DefaultMaxQuantity — максимальное количество одной позиции, которое считается доступным.
const DefaultMaxQuantity = 100

// ThresholdChecker считает товар доступным, пока количество не превышает порог.
// Используется, когда складской сервис не подключён.
type ThresholdChecker struct {
	max int
}

// NewThresholdChecker создаёт проверку с порогом limit; limit <= 0 заменяется DefaultMaxQuantity.
func NewThresholdChecker(limit int) *ThresholdChecker {
	if limit <= 0 {
		limit = DefaultMaxQuantity
	}
	return &ThresholdChecker{max: limit}
}

// Available сообщает, не превышает ли quantity порог.
func (c *ThresholdChecker) Available(_ context.Context, _ string, quantity int) (bool, error) {
	return quantity <= c.max, nil
}

var _ domain.InventoryChecker = (*ThresholdChecker)(nil)
