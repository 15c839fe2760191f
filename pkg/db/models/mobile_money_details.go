package models

import (
	"github.com/google/uuid"

	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// MobileMoneyDetails is the wallet sub-record for mtn_momo/airtel_money payments.
type MobileMoneyDetails struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID    uuid.UUID     `gorm:"column:payment_id;type:uuid;not null;uniqueIndex"`
	PhoneNumber  string        `gorm:"column:phone_number;type:text;not null"`
	Carrier      enums.Carrier `gorm:"column:carrier;type:text;not null"`
	CustomerName *string       `gorm:"column:customer_name;type:text"`
}

// TableName overrides the default pluralization.
func (MobileMoneyDetails) TableName() string {
	return "mobile_money_details"
}
