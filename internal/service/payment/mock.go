package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway.
// По умолчанию одобряет любое списание и выдаёт новый идентификатор транзакции.
type MockGateway struct {
	mu sync.Mutex

	// Decline заставляет шлюз отклонять списания.
	Decline bool
	// Err имитирует сбой связи со шлюзом.
	Err error

	Calls    int
	Requests []domain.ChargeRequest
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Charge возвращает заранее настроенный результат и запоминает запрос.
func (m *MockGateway) Charge(_ context.Context, req domain.ChargeRequest) (domain.ChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return domain.ChargeResult{}, m.Err
	}
	if m.Decline {
		return domain.ChargeResult{Success: false}, nil
	}
	return domain.ChargeResult{
		TransactionID: "TXN_" + uuid.NewString(),
		Success:       true,
	}, nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
