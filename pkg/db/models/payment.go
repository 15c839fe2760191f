package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// Payment tracks one attempt to collect money for an order. Amounts are whole
// UGX; the currency has no minor unit in circulation.
type Payment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               string              `gorm:"column:order_id;type:text;not null;index"`
	Method                enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status                enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(14,0);not null"`
	Fee                   decimal.Decimal     `gorm:"column:fee;type:numeric(14,0);not null;default:0"`
	Currency              string              `gorm:"column:currency;type:text;not null;default:'UGX'"`
	ReferenceNumber       string              `gorm:"column:reference_number;type:text;not null;uniqueIndex"`
	ProviderTransactionID *string             `gorm:"column:provider_transaction_id;type:text"`
	FailureReason         *string             `gorm:"column:failure_reason;type:text"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	MobileMoney *MobileMoneyDetails `gorm:"foreignKey:PaymentID"`
	COD         *CODDetails         `gorm:"foreignKey:PaymentID"`
}
