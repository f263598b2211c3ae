package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан фабрикой и ещё не подтверждён.
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	// OrderStatusCancelled и OrderStatusRefunded — статусы, а не удаление заказа.
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// Priority — приоритет обработки заказа.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid проверяет, что приоритет объявлен.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Значения по умолчанию, которые проставляет фабрика.
const (
	DefaultSalesChannel = "ONLINE"
	DefaultGiftWrapType = "STANDARD"
)

var highValueThreshold = decimal.NewFromInt(1000)

// Order агрегирует состояние заказа, его позиции и оба адреса.
// Заказ владеет позициями и адресами: внешние ссылки на них не сохраняются.
type Order struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	OrderDate             time.Time  `json:"order_date"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date,omitempty"`
	ActualDeliveryDate    *time.Time `json:"actual_delivery_date,omitempty"`

	Status   OrderStatus `json:"status"`
	Priority Priority    `json:"priority"`

	// Финансовые поля. Subtotal и Total производные, см. Recalculate.
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`

	PaymentStatus        PaymentStatus `json:"payment_status"`
	PaymentMethod        string        `json:"payment_method"`
	PaymentTransactionID string        `json:"payment_transaction_id,omitempty"`

	ShippingMethod     ShippingMethod  `json:"shipping_method"`
	ShippingCarrier    Carrier         `json:"shipping_carrier,omitempty"`
	TrackingNumber     string          `json:"tracking_number,omitempty"`
	ShippingWeight     decimal.Decimal `json:"shipping_weight"`
	ShippingDimensions string          `json:"shipping_dimensions,omitempty"`
	RequiresSignature  bool            `json:"requires_signature"`

	IsGift       bool   `json:"is_gift"`
	GiftMessage  string `json:"gift_message,omitempty"`
	GiftWrapType string `json:"gift_wrap_type,omitempty"`

	SalesChannel  string `json:"sales_channel"`
	PromotionCode string `json:"promotion_code,omitempty"`
	ReferralCode  string `json:"referral_code,omitempty"`

	// Трансграничные признаки вычисляются из стран адресов.
	IsInternational          bool   `json:"is_international"`
	SourceCountry            string `json:"source_country,omitempty"`
	DestinationCountry       string `json:"destination_country,omitempty"`
	RequiresCustomsClearance bool   `json:"requires_customs_clearance"`
	CustomsDeclarationNumber string `json:"customs_declaration_number,omitempty"`

	Items                []OrderItem       `json:"items"`
	AppliedDiscountCodes []string          `json:"applied_discount_codes"`
	Notes                map[string]string `json:"notes,omitempty"`
	Attributes           map[string]string `json:"attributes,omitempty"`
	Tags                 []string          `json:"tags,omitempty"`

	ShippingAddress *Address `json:"shipping_address,omitempty"`
	BillingAddress  *Address `json:"billing_address,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// Recalculate восстанавливает все производные поля заказа.
// Вызывается в конце каждой мутирующей операции.
func (o *Order) Recalculate() {
	subtotal := decimal.Zero
	for i := range o.Items {
		o.Items[i].normalize()
		subtotal = subtotal.Add(o.Items[i].LineTotal)
	}
	o.Subtotal = subtotal
	o.Total = o.Subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount)

	if !o.IsGift {
		o.GiftMessage = ""
		o.GiftWrapType = ""
	}

	o.refreshCrossBorder()
}

// refreshCrossBorder пересчитывает признаки международной доставки.
func (o *Order) refreshCrossBorder() {
	o.SourceCountry = ""
	o.DestinationCountry = ""
	if o.BillingAddress != nil {
		o.SourceCountry = o.BillingAddress.Country
	}
	if o.ShippingAddress != nil {
		o.DestinationCountry = o.ShippingAddress.Country
	}

	o.IsInternational = o.ShippingAddress != nil && o.BillingAddress != nil &&
		o.ShippingAddress.Country != o.BillingAddress.Country
	o.RequiresCustomsClearance = o.IsInternational
}

// Touch фиксирует автора и момент изменения.
func (o *Order) Touch(now time.Time, by string) {
	o.UpdatedAt = now
	if by != "" {
		o.UpdatedBy = by
	}
}

// SetShippingAddress сохраняет копию адреса доставки.
func (o *Order) SetShippingAddress(addr *Address) {
	o.ShippingAddress = addr.Clone()
	if o.ShippingAddress != nil {
		o.ShippingAddress.normalize()
	}
	o.refreshCrossBorder()
}

// SetBillingAddress сохраняет копию платёжного адреса.
func (o *Order) SetBillingAddress(addr *Address) {
	o.BillingAddress = addr.Clone()
	if o.BillingAddress != nil {
		o.BillingAddress.normalize()
	}
	o.refreshCrossBorder()
}

// SetGift переключает подарочный признак; снятие очищает сообщение и тип упаковки.
func (o *Order) SetGift(gift bool) {
	o.IsGift = gift
	if !gift {
		o.GiftMessage = ""
		o.GiftWrapType = ""
	}
}

// SetItems заменяет позиции их копиями.
func (o *Order) SetItems(items []OrderItem) {
	o.Items = make([]OrderItem, 0, len(items))
	for _, item := range items {
		o.Items = append(o.Items, item.Clone())
	}
	o.Recalculate()
}

// AddItem добавляет копию позиции.
func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item.Clone())
	o.Recalculate()
}

// RemoveItemsByProduct удаляет все позиции товара и возвращает их количество.
func (o *Order) RemoveItemsByProduct(productID string) int {
	kept := o.Items[:0]
	removed := 0
	for _, item := range o.Items {
		if item.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	o.Items = kept
	o.Recalculate()
	return removed
}

// SetItemQuantity меняет количество позиции по её идентификатору.
func (o *Order) SetItemQuantity(itemID string, quantity int, now time.Time) error {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items[i].SetQuantity(quantity, now)
			o.Recalculate()
			return nil
		}
	}
	return ErrItemNotFound
}

// ApplyDiscountCode добавляет код в список применённых, если его там ещё нет.
func (o *Order) ApplyDiscountCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, applied := range o.AppliedDiscountCodes {
		if applied == code {
			return false
		}
	}
	o.AppliedDiscountCodes = append(o.AppliedDiscountCodes, code)
	return true
}

// HasItems сообщает, есть ли в заказе позиции.
func (o *Order) HasItems() bool { return len(o.Items) > 0 }

// ItemCount возвращает количество позиций.
func (o *Order) ItemCount() int { return len(o.Items) }

// IsPaid истинно после успешной оплаты.
func (o *Order) IsPaid() bool { return o.PaymentStatus == PaymentStatusPaid }

// CanBeCancelled разрешает отмену только до начала обработки.
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// IsHighValue истинно для заказов дороже 1000.
func (o *Order) IsHighValue() bool {
	return o.Total.GreaterThan(highValueThreshold)
}

// IsExpedited истинно для срочных заказов и ускоренных способов доставки.
func (o *Order) IsExpedited() bool {
	switch {
	case o.Priority == PriorityHigh, o.Priority == PriorityUrgent:
		return true
	case o.ShippingMethod == ShippingMethodExpress, o.ShippingMethod == ShippingMethodOvernight:
		return true
	default:
		return false
	}
}

// Clone возвращает глубокую копию заказа.
func (o Order) Clone() Order {
	cp := o
	if o.Items != nil {
		cp.Items = make([]OrderItem, len(o.Items))
		for i, item := range o.Items {
			cp.Items[i] = item.Clone()
		}
	}
	cp.AppliedDiscountCodes = cloneStrings(o.AppliedDiscountCodes)
	cp.Tags = cloneStrings(o.Tags)
	cp.Notes = cloneMap(o.Notes)
	cp.Attributes = cloneMap(o.Attributes)
	cp.ShippingAddress = o.ShippingAddress.Clone()
	cp.BillingAddress = o.BillingAddress.Clone()
	if o.EstimatedDeliveryDate != nil {
		ts := *o.EstimatedDeliveryDate
		cp.EstimatedDeliveryDate = &ts
	}
	if o.ActualDeliveryDate != nil {
		ts := *o.ActualDeliveryDate
		cp.ActualDeliveryDate = &ts
	}
	return cp
}

// ValidateInvariants проверяет инварианты агрегата и возвращает список нарушений.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, InvalidArgument("customer_id", "is required"))
	}

	// Сверяем subtotal с суммой строк: qty * price.
	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, InvalidArgument("items.quantity", "must be greater than zero"))
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, InvalidArgument("items.unit_price", "must be non-negative"))
		}
		if !item.LineTotal.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))) {
			errs = append(errs, InvalidArgument("items.line_total", "does not match unit_price * quantity"))
		}
		calc = calc.Add(item.LineTotal)
	}
	if !calc.Equal(o.Subtotal) {
		errs = append(errs, InvalidArgument("subtotal", "does not match items sum"))
	}
	if !o.Total.Equal(o.Subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount)) {
		errs = append(errs, InvalidArgument("total", "does not match subtotal + tax + shipping - discount"))
	}
	if !o.IsGift && (o.GiftMessage != "" || o.GiftWrapType != "") {
		errs = append(errs, InvalidArgument("gift_message", "must be empty for non-gift orders"))
	}
	wantInternational := o.ShippingAddress != nil && o.BillingAddress != nil &&
		o.ShippingAddress.Country != o.BillingAddress.Country
	if o.IsInternational != wantInternational {
		errs = append(errs, InvalidArgument("is_international", "does not match address countries"))
	}

	return errs
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
