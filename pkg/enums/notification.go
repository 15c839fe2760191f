package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypePaymentCreated   NotificationType = "payment_created"
	NotificationTypePaymentCompleted NotificationType = "payment_completed"
	NotificationTypePaymentFailed    NotificationType = "payment_failed"
	NotificationTypePaymentCancelled NotificationType = "payment_cancelled"
	NotificationTypeDeliveryUpdate   NotificationType = "delivery_update"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePaymentCreated,
	NotificationTypePaymentCompleted,
	NotificationTypePaymentFailed,
	NotificationTypePaymentCancelled,
	NotificationTypeDeliveryUpdate,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
