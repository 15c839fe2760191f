package enums

import "fmt"

// DeliveryZone buckets delivery destinations for fee purposes.
type DeliveryZone string

const (
	DeliveryZoneMetro     DeliveryZone = "metro"
	DeliveryZoneSuburb    DeliveryZone = "suburb"
	DeliveryZoneUpcountry DeliveryZone = "upcountry"
)

var validDeliveryZones = []DeliveryZone{
	DeliveryZoneMetro,
	DeliveryZoneSuburb,
	DeliveryZoneUpcountry,
}

// String implements fmt.Stringer.
func (d DeliveryZone) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryZone.
func (d DeliveryZone) IsValid() bool {
	for _, candidate := range validDeliveryZones {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryZone converts raw input into a DeliveryZone.
func ParseDeliveryZone(value string) (DeliveryZone, error) {
	for _, candidate := range validDeliveryZones {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery zone %q", value)
}
