package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// CreatePaymentInput is the method-agnostic payment request. Method-specific
// fields are only read for the matching method.
type CreatePaymentInput struct {
	OrderID      string
	Method       enums.PaymentMethod
	Amount       decimal.Decimal
	AccountType  enums.AccountType
	CustomerName string

	// Mobile money.
	PhoneNumber string

	// Cash on delivery.
	DeliveryAddress string
	DeliveryPhone   string
	DeliveryNotes   string
	DeliveryZone    enums.DeliveryZone
}

// CreatePaymentResult is the created record plus any non-blocking warnings
// collected during validation.
type CreatePaymentResult struct {
	Payment  *models.Payment
	Warnings []string
}

// ValidationResult mirrors the adapter validation shape: field-keyed errors
// plus free-form warnings.
type ValidationResult struct {
	IsValid  bool
	Errors   map[string]string
	Warnings []string
}

// Filters describe the inputs supported by payment lists and statistics.
type Filters struct {
	OrderID  string
	Status   *enums.PaymentStatus
	Method   *enums.PaymentMethod
	DateFrom *time.Time
	DateTo   *time.Time
}

// PaymentList wraps a page of payments plus the next page cursor.
type PaymentList struct {
	Payments   []models.Payment `json:"payments"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// VerifyResult is the uniform verification view across methods.
type VerifyResult struct {
	Payment       *models.Payment
	CarrierStatus string
}

// RetryOptions lists what to offer after a failed payment.
type RetryOptions struct {
	OriginalMethod enums.PaymentMethod   `json:"original_method"`
	Alternatives   []enums.PaymentMethod `json:"alternatives"`
}

// Statistics aggregates a payment history slice.
type Statistics struct {
	TotalCount      int                         `json:"total_count"`
	ByStatus        map[enums.PaymentStatus]int `json:"by_status"`
	ByMethod        map[enums.PaymentMethod]int `json:"by_method"`
	TotalAmount     decimal.Decimal             `json:"total_amount"`
	CompletedAmount decimal.Decimal             `json:"completed_amount"`
}

// Receipt is the printable view of a payment.
type Receipt struct {
	ReferenceNumber string              `json:"reference_number"`
	OrderID         string              `json:"order_id"`
	Method          enums.PaymentMethod `json:"method"`
	MethodLabel     string              `json:"method_label"`
	Status          enums.PaymentStatus `json:"status"`
	Amount          decimal.Decimal     `json:"amount"`
	Fee             decimal.Decimal     `json:"fee"`
	Total           decimal.Decimal     `json:"total"`
	Currency        string              `json:"currency"`
	PhoneNumber     string              `json:"phone_number,omitempty"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	IssuedAt        time.Time           `json:"issued_at"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
}

// TimelineEvent is one row of the uniform payment timeline.
type TimelineEvent struct {
	Key        string              `json:"key"`
	Label      string              `json:"label"`
	Status     enums.PaymentStatus `json:"status"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// PhoneCheck is the carrier-detection answer for a raw phone number.
type PhoneCheck struct {
	Valid     bool                `json:"valid"`
	Canonical string              `json:"canonical,omitempty"`
	Carrier   enums.Carrier       `json:"carrier,omitempty"`
	Method    enums.PaymentMethod `json:"suggested_method,omitempty"`
	Error     string              `json:"error,omitempty"`
}
