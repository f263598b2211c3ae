package domain

import (
	"strings"
	"time"
)

// Статусы проверки адреса.
const (
	AddressVerified   = "VERIFIED"
	AddressUnverified = "UNVERIFIED"
	AddressInvalid    = "INVALID"
)

// Типы адреса.
const (
	AddressTypeHome     = "HOME"
	AddressTypeWork     = "WORK"
	AddressTypeBilling  = "BILLING"
	AddressTypeShipping = "SHIPPING"
	AddressTypeOther    = "OTHER"
)

// Address описывает физический адрес доставки или оплаты.
type Address struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Street      string `json:"street"`
	Street2     string `json:"street2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code,omitempty"`
	Region      string `json:"region,omitempty"`
	District    string `json:"district,omitempty"`
	Landmark    string `json:"landmark,omitempty"`

	Phone       string `json:"phone,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Company     string `json:"company,omitempty"`

	IsDefault          bool   `json:"is_default"`
	IsVerified         bool   `json:"is_verified"`
	VerificationStatus string `json:"verification_status"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	TimeZone  string   `json:"time_zone,omitempty"`

	// Метаданные доставки.
	DeliveryInstructions string `json:"delivery_instructions,omitempty"`
	AccessCodes          string `json:"access_codes,omitempty"`
	IsCommercial         bool   `json:"is_commercial"`
	HasLoadingDock       bool   `json:"has_loading_dock"`
	BusinessHours        string `json:"business_hours,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// IsComplete истинно, когда заполнены улица, город, регион, индекс и страна.
func (a *Address) IsComplete() bool {
	if a == nil {
		return false
	}
	for _, v := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// HasGeoLocation сообщает, заданы ли обе координаты.
func (a *Address) HasGeoLocation() bool {
	return a != nil && a.Latitude != nil && a.Longitude != nil
}

// FullAddress форматирует адрес в одну строку.
func (a *Address) FullAddress() string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	appendPart := func(sep, part string) {
		if part == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(part)
	}
	appendPart(", ", a.Street)
	appendPart(", ", strings.TrimSpace(a.Street2))
	appendPart(", ", a.City)
	appendPart(", ", a.State)
	appendPart(" ", a.PostalCode)
	appendPart(", ", a.Country)
	return sb.String()
}

// Touch фиксирует момент изменения адреса.
func (a *Address) Touch(now time.Time) {
	a.UpdatedAt = now
}

// SetDeliveryInstructions записывает инструкции для курьера.
func (a *Address) SetDeliveryInstructions(instructions string, now time.Time) {
	a.DeliveryInstructions = instructions
	a.Touch(now)
}

// SetGeoLocation задаёт координаты адреса.
func (a *Address) SetGeoLocation(lat, lon float64, now time.Time) {
	a.Latitude = &lat
	a.Longitude = &lon
	a.Touch(now)
}

// normalize проставляет значения по умолчанию.
func (a *Address) normalize() {
	if a.Type == "" {
		a.Type = AddressTypeOther
	}
	if a.VerificationStatus == "" {
		a.VerificationStatus = AddressUnverified
	}
}

// Clone возвращает глубокую копию адреса.
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Latitude != nil {
		lat := *a.Latitude
		cp.Latitude = &lat
	}
	if a.Longitude != nil {
		lon := *a.Longitude
		cp.Longitude = &lon
	}
	return &cp
}
