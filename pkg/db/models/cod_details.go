package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// CODDetails is the delivery sub-record for cash-on-delivery payments. Derived
// delivery status lives in internal/cod; only raw facts are stored here.
type CODDetails struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID         uuid.UUID          `gorm:"column:payment_id;type:uuid;not null;uniqueIndex"`
	DeliveryAddress   string             `gorm:"column:delivery_address;type:text;not null"`
	DeliveryPhone     string             `gorm:"column:delivery_phone;type:text;not null"`
	DeliveryNotes     *string            `gorm:"column:delivery_notes;type:text"`
	DeliveryZone      enums.DeliveryZone `gorm:"column:delivery_zone;type:text;not null;default:'metro'"`
	DeliveryFee       decimal.Decimal    `gorm:"column:delivery_fee;type:numeric(14,0);not null;default:0"`
	DeliveryAttempts  int                `gorm:"column:delivery_attempts;not null;default:0"`
	AssignedTo        *string            `gorm:"column:assigned_to;type:text"`
	CollectedAt       *time.Time         `gorm:"column:collected_at"`
	CollectedBy       *string            `gorm:"column:collected_by;type:text"`
	EstimatedDelivery *time.Time         `gorm:"column:estimated_delivery"`
}

// TableName overrides the default pluralization.
func (CODDetails) TableName() string {
	return "cod_details"
}
