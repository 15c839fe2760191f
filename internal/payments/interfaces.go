package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/pagination"
)

// Repository defines persistence operations for payment tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByReference(ctx context.Context, referenceNumber string) (*models.Payment, error)
	FindActiveByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*PaymentList, error)
	ListProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Payment, error)
	History(ctx context.Context, filters Filters, limit int) ([]models.Payment, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateCODDetails(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	ExpirePendingBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}
