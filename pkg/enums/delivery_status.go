package enums

// DeliveryStatus is the display state derived from a COD record's fields.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusAttempted DeliveryStatus = "attempted"
	DeliveryStatusCompleted DeliveryStatus = "completed"
)

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}
