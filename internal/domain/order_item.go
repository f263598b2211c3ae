package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency используется, когда валюта не передана.
const DefaultCurrency = "USD"

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku,omitempty"`
	Category    string `json:"category,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`

	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	// LineTotal всегда равен UnitPrice * Quantity.
	LineTotal decimal.Decimal `json:"line_total"`
	Currency  string          `json:"currency"`

	Weight     decimal.Decimal `json:"weight"`
	Dimensions string          `json:"dimensions,omitempty"`

	IsDigital              bool   `json:"is_digital"`
	IsGiftCard             bool   `json:"is_gift_card"`
	GiftCardRecipientEmail string `json:"gift_card_recipient_email,omitempty"`
	GiftCardMessage        string `json:"gift_card_message,omitempty"`

	VariantID   string            `json:"variant_id,omitempty"`
	VariantName string            `json:"variant_name,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`

	// Данные для исполнения заказа.
	SupplierCode      string     `json:"supplier_code,omitempty"`
	WarehouseLocation string     `json:"warehouse_location,omitempty"`
	IsPreOrder        bool       `json:"is_pre_order"`
	EstimatedShipDate *time.Time `json:"estimated_ship_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrderItem создаёт позицию; количество <= 0 приводится к 1.
func NewOrderItem(productID, productName string, unitPrice decimal.Decimal, quantity int) OrderItem {
	item := OrderItem{
		ProductID:   productID,
		ProductName: productName,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
	}
	item.normalize()
	return item
}

// SetQuantity меняет количество и пересчитывает сумму строки.
func (i *OrderItem) SetQuantity(quantity int, now time.Time) {
	i.Quantity = quantity
	i.normalize()
	i.UpdatedAt = now
}

// SetUnitPrice меняет цену за единицу и пересчитывает сумму строки.
func (i *OrderItem) SetUnitPrice(price decimal.Decimal, now time.Time) {
	i.UnitPrice = price
	i.normalize()
	i.UpdatedAt = now
}

// SetGiftCard переключает признак подарочной карты; снятие признака очищает данные получателя.
func (i *OrderItem) SetGiftCard(giftCard bool, now time.Time) {
	i.IsGiftCard = giftCard
	i.normalize()
	i.UpdatedAt = now
}

// IsPhysical истинно для товаров, которые нужно физически доставить.
func (i OrderItem) IsPhysical() bool {
	return !i.IsDigital && !i.IsGiftCard
}

// RequiresShipping совпадает с IsPhysical.
func (i OrderItem) RequiresShipping() bool {
	return i.IsPhysical()
}

// normalize восстанавливает инварианты позиции.
func (i *OrderItem) normalize() {
	if i.Quantity <= 0 {
		i.Quantity = 1
	}
	if i.Currency == "" {
		i.Currency = DefaultCurrency
	}
	if !i.IsGiftCard {
		i.GiftCardRecipientEmail = ""
		i.GiftCardMessage = ""
	}
	i.LineTotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Clone возвращает глубокую копию позиции.
func (i OrderItem) Clone() OrderItem {
	cp := i
	if i.Attributes != nil {
		cp.Attributes = make(map[string]string, len(i.Attributes))
		for k, v := range i.Attributes {
			cp.Attributes[k] = v
		}
	}
	if i.EstimatedShipDate != nil {
		ts := *i.EstimatedShipDate
		cp.EstimatedShipDate = &ts
	}
	return cp
}
