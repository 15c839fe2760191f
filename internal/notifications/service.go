package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	pkgerrors "github.com/sokoyetu/payments-backend/pkg/errors"
	"github.com/sokoyetu/payments-backend/pkg/pagination"
)

// Service defines notification list/read operations plus payment event fan-out.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	PaymentEvent(ctx context.Context, payment *models.Payment, eventType enums.NotificationType) error
}

type service struct {
	repo Repository
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark all notifications read")
	}
	return count, nil
}

// PaymentEvent records an in-app notification for a payment lifecycle change.
// The user id is resolved from the order's buyer; until the order service is
// wired in, the order id doubles as a deterministic recipient key.
func (s *service) PaymentEvent(ctx context.Context, payment *models.Payment, eventType enums.NotificationType) error {
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment required")
	}
	if !eventType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}

	title, message := paymentEventCopy(payment, eventType)
	paymentID := payment.ID
	link := fmt.Sprintf("/payments/%s", payment.ID)
	notification := &models.Notification{
		UserID:    recipientFor(payment),
		PaymentID: &paymentID,
		Type:      eventType,
		Title:     title,
		Message:   message,
		Link:      &link,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment notification")
	}
	return nil
}

func paymentEventCopy(payment *models.Payment, eventType enums.NotificationType) (string, string) {
	amount := fmt.Sprintf("%s %s", payment.Amount, payment.Currency)
	switch eventType {
	case enums.NotificationTypePaymentCreated:
		return "Payment started",
			fmt.Sprintf("A payment of %s for order %s was started.", amount, payment.OrderID)
	case enums.NotificationTypePaymentCompleted:
		return "Payment received",
			fmt.Sprintf("Your payment of %s for order %s was received.", amount, payment.OrderID)
	case enums.NotificationTypePaymentFailed:
		reason := "The payment could not be completed."
		if payment.FailureReason != nil {
			reason = *payment.FailureReason
		}
		return "Payment failed", reason
	case enums.NotificationTypePaymentCancelled:
		return "Payment cancelled",
			fmt.Sprintf("The payment for order %s was cancelled.", payment.OrderID)
	default:
		return "Delivery update",
			fmt.Sprintf("There is a delivery update for order %s.", payment.OrderID)
	}
}

// recipientFor derives a stable user id from the order reference.
func recipientFor(payment *models.Payment) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("order:"+payment.OrderID))
}
