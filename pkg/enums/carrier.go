package enums

import "fmt"

// Carrier identifies the mobile network operator behind a wallet.
type Carrier string

const (
	CarrierMTN     Carrier = "mtn"
	CarrierAirtel  Carrier = "airtel"
	CarrierUnknown Carrier = "unknown"
)

var validCarriers = []Carrier{
	CarrierMTN,
	CarrierAirtel,
	CarrierUnknown,
}

// String implements fmt.Stringer.
func (c Carrier) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Carrier.
func (c Carrier) IsValid() bool {
	for _, candidate := range validCarriers {
		if candidate == c {
			return true
		}
	}
	return false
}

// Method maps the carrier to the payment method it settles.
func (c Carrier) Method() (PaymentMethod, error) {
	switch c {
	case CarrierMTN:
		return PaymentMethodMTNMoMo, nil
	case CarrierAirtel:
		return PaymentMethodAirtelMoney, nil
	}
	return "", fmt.Errorf("carrier %q has no payment method", c)
}
