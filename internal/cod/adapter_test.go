package cod

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/errors"
	"github.com/sokoyetu/payments-backend/pkg/logger"
)

// A weekday morning, inside business hours.
var tuesdayMorning = time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)

func newTestAdapter(t *testing.T, now time.Time) *Adapter {
	t.Helper()
	a, err := NewAdapter(AdapterParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	return a
}

func codRequest() Request {
	return Request{
		OrderID:         "abc",
		Amount:          decimal.NewFromInt(50_000),
		DeliveryAddress: "Plot 14, Kampala Road, Kampala",
		DeliveryPhone:   "0772123456",
		DeliveryZone:    enums.DeliveryZoneMetro,
	}
}

func TestValidate_CashOnDelivery(t *testing.T) {
	a := newTestAdapter(t, tuesdayMorning)

	validated, err := a.Validate(codRequest())
	require.NoError(t, err)

	assert.Equal(t, "+256772123456", validated.CanonicalPhone)
	assert.Equal(t, enums.DeliveryZoneMetro, validated.Zone)
	assert.True(t, validated.Quote.Fee.Equal(decimal.NewFromInt(5_000)))
	assert.Empty(t, validated.Warnings)
	assert.Equal(t, tuesdayMorning.AddDate(0, 0, 1), validated.EstimatedDelivery)
}

func TestValidate_FreeDeliveryAboveThreshold(t *testing.T) {
	a := newTestAdapter(t, tuesdayMorning)

	req := codRequest()
	req.Amount = decimal.NewFromInt(150_000)
	validated, err := a.Validate(req)
	require.NoError(t, err)
	assert.True(t, validated.Quote.Fee.IsZero())
}

func TestValidate_Rejections(t *testing.T) {
	a := newTestAdapter(t, tuesdayMorning)

	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"missing order id", func(r *Request) { r.OrderID = "" }, "order_id"},
		{"amount below floor", func(r *Request) { r.Amount = decimal.NewFromInt(500) }, "amount"},
		{"amount above cap", func(r *Request) { r.Amount = decimal.NewFromInt(20_000_000) }, "amount"},
		{"short address", func(r *Request) { r.DeliveryAddress = "Kampala" }, "delivery_address"},
		{"short multibyte address", func(r *Request) { r.DeliveryAddress = "Kämpälä 1" }, "delivery_address"},
		{"oversized address", func(r *Request) { r.DeliveryAddress = strings.Repeat("a", 501) }, "delivery_address"},
		{"bad phone", func(r *Request) { r.DeliveryPhone = "12345" }, "delivery_phone"},
		{"unknown zone", func(r *Request) { r.DeliveryZone = "orbit" }, "delivery_zone"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := codRequest()
			tc.mutate(&req)
			_, err := a.Validate(req)
			require.Error(t, err)
			appErr := errors.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, errors.CodeValidation, appErr.Code())
			details, ok := appErr.Details().(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tc.field)
		})
	}
}

func TestValidate_AddressLengthCountsRunes(t *testing.T) {
	a := newTestAdapter(t, tuesdayMorning)

	// 500 two-byte runes is 1000 bytes but still within the address cap.
	req := codRequest()
	req.DeliveryAddress = strings.Repeat("ä", 500)
	_, err := a.Validate(req)
	require.NoError(t, err)
}

func TestValidate_WarningsDoNotBlock(t *testing.T) {
	a := newTestAdapter(t, tuesdayMorning)

	req := codRequest()
	req.DeliveryAddress = "Near the big mango tree, call 0772 123 456"
	validated, err := a.Validate(req)
	require.NoError(t, err)
	assert.Len(t, validated.Warnings, 2)
}

func TestValidate_EmptyZoneDefaultsToMetro(t *testing.T) {
	a := newTestAdapter(t, tuesdayMorning)

	req := codRequest()
	req.DeliveryZone = ""
	validated, err := a.Validate(req)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryZoneMetro, validated.Zone)
}

func TestEstimateDelivery(t *testing.T) {
	a := newTestAdapter(t, tuesdayMorning)
	address := "Plot 14, Kampala Road"

	t.Run("weekday inside hours", func(t *testing.T) {
		assert.Equal(t, tuesdayMorning.AddDate(0, 0, 1), a.EstimateDelivery(tuesdayMorning, address))
	})

	t.Run("weekend adds a day", func(t *testing.T) {
		saturday := time.Date(2026, 1, 24, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, saturday.AddDate(0, 0, 2), a.EstimateDelivery(saturday, address))
	})

	t.Run("after hours adds a day", func(t *testing.T) {
		lateNight := time.Date(2026, 1, 20, 22, 0, 0, 0, time.UTC)
		assert.Equal(t, lateNight.AddDate(0, 0, 2), a.EstimateDelivery(lateNight, address))
	})

	t.Run("remote address adds a day", func(t *testing.T) {
		remote := "Bugala Island trading centre"
		assert.Equal(t, tuesdayMorning.AddDate(0, 0, 2), a.EstimateDelivery(tuesdayMorning, remote))
	})
}

func TestDeliveryStatus_PriorityIsTotal(t *testing.T) {
	collected := tuesdayMorning
	agent := "agent-7"

	t.Run("collected wins regardless of other fields", func(t *testing.T) {
		status := DeliveryStatus(models.CODDetails{
			CollectedAt:      &collected,
			DeliveryAttempts: 3,
			AssignedTo:       &agent,
		})
		assert.Equal(t, enums.DeliveryStatusCompleted, status)
	})

	t.Run("attempts beat assignment", func(t *testing.T) {
		status := DeliveryStatus(models.CODDetails{
			DeliveryAttempts: 1,
			AssignedTo:       &agent,
		})
		assert.Equal(t, enums.DeliveryStatusAttempted, status)
	})

	t.Run("assignment beats pending", func(t *testing.T) {
		status := DeliveryStatus(models.CODDetails{AssignedTo: &agent})
		assert.Equal(t, enums.DeliveryStatusAssigned, status)
	})

	t.Run("zero value is pending", func(t *testing.T) {
		assert.Equal(t, enums.DeliveryStatusPending, DeliveryStatus(models.CODDetails{}))
	})

	t.Run("pure function", func(t *testing.T) {
		input := models.CODDetails{DeliveryAttempts: 2}
		assert.Equal(t, DeliveryStatus(input), DeliveryStatus(input))
	})
}

func TestNextDeliveryAttempt(t *testing.T) {
	t.Run("nothing due before first attempt", func(t *testing.T) {
		assert.Nil(t, NextDeliveryAttempt(models.CODDetails{}, tuesdayMorning))
	})

	t.Run("nothing due after collection", func(t *testing.T) {
		collected := tuesdayMorning
		assert.Nil(t, NextDeliveryAttempt(models.CODDetails{
			CollectedAt:      &collected,
			DeliveryAttempts: 1,
		}, tuesdayMorning))
	})

	t.Run("first retry four hours out", func(t *testing.T) {
		next := NextDeliveryAttempt(models.CODDetails{DeliveryAttempts: 1}, tuesdayMorning)
		require.NotNil(t, next)
		assert.Equal(t, tuesdayMorning.Add(4*time.Hour), *next)
	})

	t.Run("second retry next day", func(t *testing.T) {
		next := NextDeliveryAttempt(models.CODDetails{DeliveryAttempts: 2}, tuesdayMorning)
		require.NotNil(t, next)
		assert.Equal(t, tuesdayMorning.AddDate(0, 0, 1), *next)
	})

	t.Run("later retries two days out", func(t *testing.T) {
		next := NextDeliveryAttempt(models.CODDetails{DeliveryAttempts: 5}, tuesdayMorning)
		require.NotNil(t, next)
		assert.Equal(t, tuesdayMorning.AddDate(0, 0, 2), *next)
	})

	t.Run("evening retry clamps to next morning", func(t *testing.T) {
		evening := time.Date(2026, 1, 20, 16, 0, 0, 0, time.UTC)
		next := NextDeliveryAttempt(models.CODDetails{DeliveryAttempts: 1}, evening)
		require.NotNil(t, next)
		assert.Equal(t, time.Date(2026, 1, 21, 9, 0, 0, 0, time.UTC), *next)
	})

	t.Run("early retry clamps to opening", func(t *testing.T) {
		predawn := time.Date(2026, 1, 20, 1, 0, 0, 0, time.UTC)
		next := NextDeliveryAttempt(models.CODDetails{DeliveryAttempts: 1}, predawn)
		require.NotNil(t, next)
		assert.Equal(t, time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC), *next)
	})
}

func TestKeywordHeuristic(t *testing.T) {
	h := KeywordHeuristic{}

	assert.Empty(t, h.Warnings("Plot 14, Kampala Road, Kampala"))
	assert.Len(t, h.Warnings("behind the church"), 1)
	assert.Len(t, h.Warnings("call 0772123456 when outside"), 2)

	assert.False(t, h.IsRemote("Plot 14, Kampala Road"))
	assert.True(t, h.IsRemote("Kalangala Island, near the pier"))
}
