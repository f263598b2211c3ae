package inventory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// MockChecker — конфигурируемая заглушка InventoryChecker для тестов.
type MockChecker struct {
	mu sync.Mutex

	// Unavailable содержит товары, которых нет на складе.
	Unavailable map[string]bool
	Err         error

	Calls int
}

// NewMockChecker возвращает mock, у которого всё в наличии.
func NewMockChecker() *MockChecker {
	return &MockChecker{Unavailable: make(map[string]bool)}
}

// Available возвращает настроенный результат и считает вызовы.
func (m *MockChecker) Available(_ context.Context, productID string, _ int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if m.Err != nil {
		return false, m.Err
	}
	return !m.Unavailable[productID], nil
}

var _ domain.InventoryChecker = (*MockChecker)(nil)
