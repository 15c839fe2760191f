package enums

import "fmt"

// PaymentMethod describes how a buyer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodMTNMoMo     PaymentMethod = "mtn_momo"
	PaymentMethodAirtelMoney PaymentMethod = "airtel_money"
	PaymentMethodCOD         PaymentMethod = "cod"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodMTNMoMo,
	PaymentMethodAirtelMoney,
	PaymentMethodCOD,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsMobileMoney reports whether the method settles through a carrier wallet.
func (p PaymentMethod) IsMobileMoney() bool {
	return p == PaymentMethodMTNMoMo || p == PaymentMethodAirtelMoney
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
