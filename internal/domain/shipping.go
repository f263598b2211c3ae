package domain

// ShippingMethod — способ доставки.
type ShippingMethod string

const (
	ShippingMethodStandard  ShippingMethod = "STANDARD"
	ShippingMethodExpress   ShippingMethod = "EXPRESS"
	ShippingMethodOvernight ShippingMethod = "OVERNIGHT"
	ShippingMethodSameDay   ShippingMethod = "SAME_DAY"
	ShippingMethodPickup    ShippingMethod = "PICKUP"
)

// Carrier — служба доставки.
type Carrier string

const (
	CarrierUSPS  Carrier = "USPS"
	CarrierFedEx Carrier = "FEDEX"
	CarrierUPS   Carrier = "UPS"
	CarrierDHL   Carrier = "DHL"
)

// DefaultCarrier возвращает перевозчика по умолчанию для способа доставки.
func DefaultCarrier(method ShippingMethod) Carrier {
	switch method {
	case ShippingMethodExpress:
		return CarrierFedEx
	case ShippingMethodOvernight:
		return CarrierUPS
	default:
		return CarrierUSPS
	}
}

// ShippingRestriction — ограничение на перевозку посылки.
type ShippingRestriction string

const (
	RestrictionHazardous ShippingRestriction = "HAZARDOUS"
	RestrictionFragile   ShippingRestriction = "FRAGILE"
	RestrictionOversized ShippingRestriction = "OVERSIZED"
)
