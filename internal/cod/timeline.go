package cod

import (
	"sort"
	"time"

	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// TimelineEvent is one display row of the delivery timeline.
type TimelineEvent struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type eventTemplate struct {
	Title       string
	Description string
	Icon        string
}

// Display copy for every delivery lifecycle event.
var deliveryEventTemplates = map[string]eventTemplate{
	"created":            {"Order placed", "Your cash on delivery order was received.", "receipt"},
	"confirmed":          {"Order confirmed", "The order was confirmed and queued for dispatch.", "check-circle"},
	"assigned":           {"Agent assigned", "A delivery agent has been assigned to your order.", "user"},
	"out_for_delivery":   {"Out for delivery", "Your order is on its way.", "truck"},
	"delivery_attempted": {"Delivery attempted", "The agent could not complete the delivery.", "alert-triangle"},
	"delivered":          {"Delivered", "Cash was collected and the order is complete.", "package-check"},
	"cancelled":          {"Cancelled", "The order was cancelled.", "x-circle"},
}

var fallbackEventTemplate = eventTemplate{"Update", "The delivery status changed.", "info"}

// DeliveryTimeline builds the ordered delivery event list for a COD payment.
// The created event is always present; later events appear only once the
// record shows they happened.
func DeliveryTimeline(payment models.Payment) []TimelineEvent {
	events := []TimelineEvent{newDeliveryEvent("created", payment.CreatedAt)}

	details := payment.COD
	if details == nil {
		return events
	}

	if payment.Status != enums.PaymentStatusPending {
		events = append(events, newDeliveryEvent("confirmed", payment.UpdatedAt))
	}
	if details.AssignedTo != nil {
		events = append(events, newDeliveryEvent("assigned", payment.UpdatedAt))
	}
	if details.DeliveryAttempts > 0 && details.CollectedAt == nil {
		events = append(events, newDeliveryEvent("delivery_attempted", payment.UpdatedAt))
	}
	if details.CollectedAt != nil {
		events = append(events, newDeliveryEvent("delivered", *details.CollectedAt))
	}
	if payment.Status == enums.PaymentStatusCancelled {
		events = append(events, newDeliveryEvent("cancelled", payment.UpdatedAt))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	return events
}

func newDeliveryEvent(key string, at time.Time) TimelineEvent {
	template, ok := deliveryEventTemplates[key]
	if !ok {
		template = fallbackEventTemplate
	}
	return TimelineEvent{
		Key:         key,
		Title:       template.Title,
		Description: template.Description,
		Icon:        template.Icon,
		OccurredAt:  at,
	}
}
