package payments

import (
	"sort"

	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
)

// Timeline builds the chronologically sorted lifecycle view of a payment. A
// created event is always present; at most one terminal event is appended,
// matching the current status.
func Timeline(payment models.Payment) []TimelineEvent {
	events := []TimelineEvent{{
		Key:        "created",
		Label:      "Payment created",
		Status:     enums.PaymentStatusPending,
		OccurredAt: payment.CreatedAt,
	}}

	if payment.Status != enums.PaymentStatusPending {
		events = append(events, TimelineEvent{
			Key:        "processing",
			Label:      "Payment submitted",
			Status:     enums.PaymentStatusProcessing,
			OccurredAt: payment.UpdatedAt,
		})
	}

	if payment.Status.IsTerminal() {
		events = append(events, TimelineEvent{
			Key:        string(payment.Status),
			Label:      StatusInfo(payment.Status).Label,
			Status:     payment.Status,
			OccurredAt: payment.UpdatedAt,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	return events
}
