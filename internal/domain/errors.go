package domain

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidArgument — отсутствует или некорректен обязательный аргумент операции.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound возвращается, если позиция отсутствует в заказе.
	ErrItemNotFound = errors.New("order item not found")
	// ErrIneligibleDiscount — скидка не прошла одну из проверок применимости.
	ErrIneligibleDiscount = errors.New("discount is not eligible")
	// ErrPaymentDeclined — платёжный шлюз отклонил списание.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrInventoryUnavailable — недостаточно товара на складе.
	ErrInventoryUnavailable = errors.New("inventory unavailable")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ArgumentError описывает конкретный некорректный аргумент.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

// InvalidArgument создаёт ошибку ArgumentError для поля field.
func InvalidArgument(field, reason string) error {
	return &ArgumentError{Field: field, Reason: reason}
}

// DiscountGate — имя проверки применимости скидки.
type DiscountGate string

const (
	DiscountGateExpired           DiscountGate = "expired"
	DiscountGateMinOrderAmount    DiscountGate = "min_order_amount"
	DiscountGateFirstTimeCustomer DiscountGate = "first_time_customer"
	DiscountGateVIPCustomer       DiscountGate = "vip_customer"
	DiscountGateEligibleProducts  DiscountGate = "eligible_products"
	DiscountGateExcludedProducts  DiscountGate = "excluded_products"
	DiscountGateUsageLimit        DiscountGate = "usage_limit"
)

// IneligibleDiscountError сообщает, какая именно проверка скидки не пройдена.
type IneligibleDiscountError struct {
	Gate   DiscountGate
	Reason string
}

func (e *IneligibleDiscountError) Error() string {
	return fmt.Sprintf("discount is not eligible (%s): %s", e.Gate, e.Reason)
}

func (e *IneligibleDiscountError) Unwrap() error { return ErrIneligibleDiscount }

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound покрывает отсутствие как заказа, так и позиции.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrItemNotFound)
}

// IsInvalidArgument проверяет принадлежность ошибки к классу InvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// DiscountGateOf возвращает имя непройденной проверки, если ошибка её содержит.
func DiscountGateOf(err error) (DiscountGate, bool) {
	var target *IneligibleDiscountError
	if errors.As(err, &target) {
		return target.Gate, true
	}
	return "", false
}
