package orders

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// PaymentRequest описывает попытку оплаты заказа.
type PaymentRequest struct {
	OrderID     string                   `json:"order_id"`
	Method      string                   `json:"payment_method"`
	Amount      decimal.Decimal          `json:"amount"`
	Currency    string                   `json:"currency,omitempty"`
	Instrument  domain.PaymentInstrument `json:"instrument"`
	SaveMethod  bool                     `json:"save_payment_method"`
	Description string                   `json:"description,omitempty"`
	Metadata    map[string]string        `json:"metadata,omitempty"`
	ProcessedBy string                   `json:"processed_by"`
}

func (r PaymentRequest) validate() error {
	switch {
	case isBlank(r.OrderID):
		return domain.InvalidArgument("order_id", "is required")
	case isBlank(r.Method):
		return domain.InvalidArgument("payment_method", "is required")
	case !r.Amount.IsPositive():
		return domain.InvalidArgument("amount", "must be positive")
	case isBlank(r.ProcessedBy):
		return domain.InvalidArgument("processed_by", "is required")
	}
	if errs := r.Instrument.Validate(r.Method); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ProcessPayment списывает средства через шлюз и записывает результат в заказ.
// Отказ шлюза не является ошибкой: заказ получает статус FAILED, метод возвращает false.
func (e *Engine) ProcessPayment(ctx context.Context, req PaymentRequest) (paid bool, err error) {
	start := time.Now()
	defer func() { e.observe(opProcessPayment, start, err) }()

	if err := req.validate(); err != nil {
		return false, err
	}
	if e.payments == nil {
		return false, errors.New("payment gateway is not configured")
	}

	order, err := e.load(req.OrderID)
	if err != nil {
		return false, err
	}

	currency := req.Currency
	if isBlank(currency) {
		currency = e.currency
	}

	logger := e.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"operation":    opProcessPayment,
		"method":       req.Method,
		"processed_by": req.ProcessedBy,
	})

	result, chargeErr := e.payments.Charge(ctx, domain.ChargeRequest{
		OrderID:     order.ID,
		Method:      req.Method,
		Amount:      req.Amount,
		Currency:    currency,
		Instrument:  req.Instrument,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if chargeErr != nil {
		logger.WithError(chargeErr).Warn("payment gateway call failed")
	}

	paid = chargeErr == nil && result.Success
	if paid {
		order.PaymentStatus = domain.PaymentStatusPaid
		order.PaymentTransactionID = result.TransactionID
	} else {
		order.PaymentStatus = domain.PaymentStatusFailed
	}
	order.Recalculate()
	order.Touch(e.now(), req.ProcessedBy)

	order, err = e.save(order)
	if err != nil {
		return false, err
	}

	if e.metrics != nil {
		e.metrics.RecordPayment(paid)
	}
	if paid {
		logger.WithField("transaction_id", result.TransactionID).Info("payment captured")
		e.record(order, domain.TimelinePaymentCaptured, result.TransactionID, req.ProcessedBy, domain.EventOrderPaymentSucceeded)
	} else {
		logger.Warn("payment declined")
		e.record(order, domain.TimelinePaymentFailed, errors.Wrap(domain.ErrPaymentDeclined, req.Method).Error(),
			req.ProcessedBy, domain.EventOrderPaymentFailed)
	}

	return paid, nil
}
