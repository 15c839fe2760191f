package payments

import "github.com/sokoyetu/payments-backend/pkg/enums"

// DisplayInfo maps an enum value to its UI rendering hints.
type DisplayInfo struct {
	Label       string `json:"label"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

var statusInfo = map[enums.PaymentStatus]DisplayInfo{
	enums.PaymentStatusPending: {
		Label:       "Pending",
		Color:       "yellow",
		Icon:        "clock",
		Description: "The payment has been created and is waiting to be processed.",
	},
	enums.PaymentStatusProcessing: {
		Label:       "Processing",
		Color:       "blue",
		Icon:        "loader",
		Description: "Waiting for the payment to be approved on the customer's phone.",
	},
	enums.PaymentStatusCompleted: {
		Label:       "Completed",
		Color:       "green",
		Icon:        "check-circle",
		Description: "The payment was received.",
	},
	enums.PaymentStatusFailed: {
		Label:       "Failed",
		Color:       "red",
		Icon:        "x-circle",
		Description: "The payment could not be completed.",
	},
	enums.PaymentStatusCancelled: {
		Label:       "Cancelled",
		Color:       "gray",
		Icon:        "slash",
		Description: "The payment was cancelled.",
	},
}

var methodInfo = map[enums.PaymentMethod]DisplayInfo{
	enums.PaymentMethodMTNMoMo: {
		Label:       "MTN Mobile Money",
		Color:       "yellow",
		Icon:        "smartphone",
		Description: "Pay from an MTN Mobile Money wallet.",
	},
	enums.PaymentMethodAirtelMoney: {
		Label:       "Airtel Money",
		Color:       "red",
		Icon:        "smartphone",
		Description: "Pay from an Airtel Money wallet.",
	},
	enums.PaymentMethodCOD: {
		Label:       "Cash on Delivery",
		Color:       "green",
		Icon:        "banknote",
		Description: "Pay cash when the order arrives.",
	},
}

var unknownInfo = DisplayInfo{
	Label:       "Unknown",
	Color:       "gray",
	Icon:        "help-circle",
	Description: "Unrecognized value.",
}

// StatusInfo returns rendering hints for a payment status. Unrecognized
// values get a safe fallback, never a miss.
func StatusInfo(status enums.PaymentStatus) DisplayInfo {
	if info, ok := statusInfo[status]; ok {
		return info
	}
	return unknownInfo
}

// MethodInfo returns rendering hints for a payment method.
func MethodInfo(method enums.PaymentMethod) DisplayInfo {
	if info, ok := methodInfo[method]; ok {
		return info
	}
	return unknownInfo
}
