package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/pagination"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount NUMERIC NOT NULL,
  fee NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'UGX',
  reference_number TEXT NOT NULL UNIQUE,
  provider_transaction_id TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	mobileMoney := `
CREATE TABLE IF NOT EXISTS mobile_money_details (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL UNIQUE,
  phone_number TEXT NOT NULL,
  carrier TEXT NOT NULL,
  customer_name TEXT
);`
	codDetails := `
CREATE TABLE IF NOT EXISTS cod_details (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL UNIQUE,
  delivery_address TEXT NOT NULL,
  delivery_phone TEXT NOT NULL,
  delivery_notes TEXT,
  delivery_zone TEXT NOT NULL DEFAULT 'metro',
  delivery_fee NUMERIC NOT NULL DEFAULT 0,
  delivery_attempts INTEGER NOT NULL DEFAULT 0,
  assigned_to TEXT,
  collected_at DATETIME,
  collected_by TEXT,
  estimated_delivery DATETIME
);`
	for _, ddl := range []string{payments, mobileMoney, codDetails} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func seedPayment(t *testing.T, db *gorm.DB, mutate func(*models.Payment)) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		ID:              uuid.New(),
		OrderID:         "order-1",
		Method:          enums.PaymentMethodMTNMoMo,
		Status:          enums.PaymentStatusPending,
		Amount:          decimal.NewFromInt(10_000),
		Fee:             decimal.NewFromInt(350),
		Currency:        "UGX",
		ReferenceNumber: "SOKO-" + uuid.NewString(),
		MobileMoney: &models.MobileMoneyDetails{
			ID:          uuid.New(),
			PhoneNumber: "+256772123456",
			Carrier:     enums.CarrierMTN,
		},
	}
	if mutate != nil {
		mutate(payment)
	}
	if payment.MobileMoney != nil {
		payment.MobileMoney.PaymentID = payment.ID
	}
	if payment.COD != nil {
		payment.COD.PaymentID = payment.ID
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func TestRepository_CreateAndFind(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedPayment(t, db, nil)

	found, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.OrderID, found.OrderID)
	require.NotNil(t, found.MobileMoney)
	assert.Equal(t, "+256772123456", found.MobileMoney.PhoneNumber)

	byRef, err := repo.FindByReference(ctx, seeded.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, byRef.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_FindActiveByOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedPayment(t, db, func(p *models.Payment) {
		p.OrderID = "order-done"
		p.Status = enums.PaymentStatusCompleted
	})
	active := seedPayment(t, db, func(p *models.Payment) {
		p.OrderID = "order-active"
		p.Status = enums.PaymentStatusProcessing
	})

	found, err := repo.FindActiveByOrder(ctx, "order-active")
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = repo.FindActiveByOrder(ctx, "order-done")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListPaginatesAndFilters(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		i := i
		seedPayment(t, db, func(p *models.Payment) {
			p.OrderID = fmt.Sprintf("order-%d", i)
			p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			p.UpdatedAt = p.CreatedAt
			if i%2 == 0 {
				p.Status = enums.PaymentStatusCompleted
			}
		})
	}

	page, err := repo.List(ctx, pagination.Params{Limit: 3}, Filters{})
	require.NoError(t, err)
	require.Len(t, page.Payments, 3)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, "order-4", page.Payments[0].OrderID)

	rest, err := repo.List(ctx, pagination.Params{Limit: 3, Cursor: page.NextCursor}, Filters{})
	require.NoError(t, err)
	assert.Len(t, rest.Payments, 2)
	assert.Empty(t, rest.NextCursor)

	completed := enums.PaymentStatusCompleted
	filtered, err := repo.List(ctx, pagination.Params{}, Filters{Status: &completed})
	require.NoError(t, err)
	assert.Len(t, filtered.Payments, 3)

	byOrder, err := repo.List(ctx, pagination.Params{}, Filters{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Len(t, byOrder.Payments, 1)
}

func TestRepository_ListProcessing(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	stale := time.Now().Add(-time.Hour)
	seedPayment(t, db, func(p *models.Payment) {
		p.OrderID = "order-stale"
		p.Status = enums.PaymentStatusProcessing
		p.CreatedAt = stale
		p.UpdatedAt = stale
	})
	seedPayment(t, db, func(p *models.Payment) {
		p.OrderID = "order-fresh"
		p.Status = enums.PaymentStatusProcessing
	})
	seedPayment(t, db, func(p *models.Payment) {
		p.OrderID = "order-pending"
		p.CreatedAt = stale
		p.UpdatedAt = stale
	})

	rows, err := repo.ListProcessing(ctx, time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "order-stale", rows[0].OrderID)
	require.NotNil(t, rows[0].MobileMoney)
}

func TestRepository_UpdatePayment(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedPayment(t, db, nil)
	err := repo.UpdatePayment(ctx, seeded.ID, map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": "expired",
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, found.Status)
	require.NotNil(t, found.FailureReason)
	assert.Equal(t, "expired", *found.FailureReason)
}

func TestRepository_ExpirePendingBefore(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	seedPayment(t, db, func(p *models.Payment) {
		p.OrderID = "order-old"
		p.CreatedAt = old
		p.UpdatedAt = old
	})
	seedPayment(t, db, func(p *models.Payment) {
		p.OrderID = "order-new"
	})
	seedPayment(t, db, func(p *models.Payment) {
		p.OrderID = "order-old-done"
		p.Status = enums.PaymentStatusCompleted
		p.CreatedAt = old
		p.UpdatedAt = old
	})

	expired, err := repo.ExpirePendingBefore(ctx, time.Now().Add(-24*time.Hour), "expired")
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	rows, err := repo.History(ctx, Filters{OrderID: "order-old"}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.PaymentStatusFailed, rows[0].Status)
	require.NotNil(t, rows[0].FailureReason)
	assert.Equal(t, "expired", *rows[0].FailureReason)

	fresh, err := repo.History(ctx, Filters{OrderID: "order-new"}, 10)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, fresh[0].Status)
}
