package domain

import "testing"

func TestPaymentInstrument_Validate(t *testing.T) {
	card := PaymentInstrument{
		CardNumber:      "4111111111111111",
		CardExpiryMonth: "12",
		CardExpiryYear:  "2030",
		CardCVV:         "123",
		CardHolderName:  "Jane Doe",
	}

	tests := []struct {
		name       string
		method     string
		instrument PaymentInstrument
		errCount   int
	}{
		{name: "complete card", method: PaymentMethodCreditCard, instrument: card, errCount: 0},
		{name: "debit card without cvv", method: PaymentMethodDebitCard, instrument: func() PaymentInstrument {
			p := card
			p.CardCVV = " "
			return p
		}(), errCount: 1},
		{name: "empty card", method: PaymentMethodCreditCard, instrument: PaymentInstrument{}, errCount: 5},
		{name: "bank transfer", method: PaymentMethodBankTransfer, instrument: PaymentInstrument{
			BankAccountNumber: "0001",
			BankRoutingNumber: "021000021",
		}, errCount: 0},
		{name: "ach without routing", method: PaymentMethodACH, instrument: PaymentInstrument{
			BankAccountNumber: "0001",
		}, errCount: 1},
		{name: "paypal needs nothing", method: "PAYPAL", instrument: PaymentInstrument{}, errCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.instrument.Validate(tt.method)
			if len(errs) != tt.errCount {
				t.Fatalf("expected %d errors, got %d: %v", tt.errCount, len(errs), errs)
			}
			for _, err := range errs {
				if !IsInvalidArgument(err) {
					t.Fatalf("expected invalid argument, got %v", err)
				}
			}
		})
	}
}

func TestPaymentStatusValid(t *testing.T) {
	for _, s := range []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded} {
		if !s.Valid() {
			t.Fatalf("status %q must be valid", s)
		}
	}
	if PaymentStatus("captured").Valid() {
		t.Fatal("unexpected status must be invalid")
	}
}
