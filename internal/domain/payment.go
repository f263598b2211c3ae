package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	// PaymentStatusPending — оплата ещё не проводилась.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusPaid — шлюз подтвердил списание.
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusFailed — шлюз отклонил списание.
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

// Способы оплаты, для которых нужны реквизиты.
const (
	PaymentMethodCreditCard   = "CREDIT_CARD"
	PaymentMethodDebitCard    = "DEBIT_CARD"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodACH          = "ACH"
)

// PaymentInstrument содержит реквизиты карты или банковского счёта.
type PaymentInstrument struct {
	CardNumber        string `json:"card_number,omitempty"`
	CardExpiryMonth   string `json:"card_expiry_month,omitempty"`
	CardExpiryYear    string `json:"card_expiry_year,omitempty"`
	CardCVV           string `json:"card_cvv,omitempty"`
	CardHolderName    string `json:"card_holder_name,omitempty"`
	BankAccountNumber string `json:"bank_account_number,omitempty"`
	BankRoutingNumber string `json:"bank_routing_number,omitempty"`
	BankName          string `json:"bank_name,omitempty"`
}

// Validate проверяет наличие реквизитов, обязательных для способа оплаты.
// Проверяется только заполненность полей, не их корректность.
func (p PaymentInstrument) Validate(method string) []error {
	var errs []error

	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, InvalidArgument(field, "is required for "+method+" payments"))
		}
	}

	switch method {
	case PaymentMethodCreditCard, PaymentMethodDebitCard:
		required("card_number", p.CardNumber)
		required("card_expiry_month", p.CardExpiryMonth)
		required("card_expiry_year", p.CardExpiryYear)
		required("card_cvv", p.CardCVV)
		required("card_holder_name", p.CardHolderName)
	case PaymentMethodBankTransfer, PaymentMethodACH:
		required("bank_account_number", p.BankAccountNumber)
		required("bank_routing_number", p.BankRoutingNumber)
	}

	return errs
}

// ChargeRequest — запрос на списание во внешнем платёжном шлюзе.
type ChargeRequest struct {
	OrderID     string
	Method      string
	Amount      decimal.Decimal
	Currency    string
	Instrument  PaymentInstrument
	Description string
	Metadata    map[string]string
}

// ChargeResult — ответ платёжного шлюза.
type ChargeResult struct {
	TransactionID string
	Success       bool
}
