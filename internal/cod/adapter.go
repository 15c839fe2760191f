package cod

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/internal/fees"
	"github.com/sokoyetu/payments-backend/internal/phone"
	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/errors"
	"github.com/sokoyetu/payments-backend/pkg/logger"
)

// Cash-on-delivery order bounds, whole UGX.
var (
	minOrderAmount = decimal.NewFromInt(1_000)
	maxOrderAmount = decimal.NewFromInt(10_000_000)
)

const (
	minAddressLen = 10
	maxAddressLen = 500

	// Working hours used for estimates and attempt scheduling.
	businessOpenHour  = 8
	businessCloseHour = 17
	attemptWindowOpen = 9
	attemptWindowEnd  = 18
)

// AdapterParams wires the cash-on-delivery adapter.
type AdapterParams struct {
	Logger    *logger.Logger
	Heuristic AddressHeuristic
	Now       func() time.Time
}

// Adapter validates COD requests and derives delivery state. It performs no
// I/O; persistence is the orchestrator's job.
type Adapter struct {
	logg      *logger.Logger
	heuristic AddressHeuristic
	now       func() time.Time
}

func NewAdapter(params AdapterParams) (*Adapter, error) {
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	heuristic := params.Heuristic
	if heuristic == nil {
		heuristic = KeywordHeuristic{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Adapter{logg: params.Logger, heuristic: heuristic, now: now}, nil
}

// Method reports the payment method this adapter settles.
func (a *Adapter) Method() enums.PaymentMethod {
	return enums.PaymentMethodCOD
}

// DisplayName is the customer-facing name.
func (a *Adapter) DisplayName() string {
	return "Cash on Delivery"
}

// Request is a cash-on-delivery order as received from the caller.
type Request struct {
	OrderID         string
	Amount          decimal.Decimal
	DeliveryAddress string
	DeliveryPhone   string
	DeliveryNotes   string
	DeliveryZone    enums.DeliveryZone
}

// Validated carries the normalized request, the zone fee and the estimate.
// Warnings are advisory address-quality notes and never block.
type Validated struct {
	CanonicalPhone    string
	Zone              enums.DeliveryZone
	Quote             fees.Quote
	EstimatedDelivery time.Time
	Warnings          []string
}

// Validate enforces the order bounds, address shape and delivery phone, then
// computes the zone fee and the delivery estimate.
func (a *Adapter) Validate(req Request) (*Validated, error) {
	details := map[string]string{}

	if strings.TrimSpace(req.OrderID) == "" {
		details["order_id"] = "order id is required"
	}
	if req.Amount.LessThan(minOrderAmount) {
		details["amount"] = fmt.Sprintf("cash on delivery requires at least %s UGX", minOrderAmount)
	} else if req.Amount.GreaterThan(maxOrderAmount) {
		details["amount"] = fmt.Sprintf("cash on delivery is capped at %s UGX", maxOrderAmount)
	}

	address := strings.TrimSpace(req.DeliveryAddress)
	// Address bounds count runes, not bytes.
	if utf8.RuneCountInString(address) < minAddressLen {
		details["delivery_address"] = fmt.Sprintf("delivery address must be at least %d characters", minAddressLen)
	} else if utf8.RuneCountInString(address) > maxAddressLen {
		details["delivery_address"] = fmt.Sprintf("delivery address must be at most %d characters", maxAddressLen)
	}

	phoneRes := phone.Validate(req.DeliveryPhone)
	if !phoneRes.Valid {
		details["delivery_phone"] = "delivery phone format is invalid"
	}

	zone := req.DeliveryZone
	if zone == "" {
		zone = enums.DeliveryZoneMetro
	}
	if !zone.IsValid() {
		details["delivery_zone"] = fmt.Sprintf("unknown delivery zone %q", req.DeliveryZone)
	}

	if len(details) > 0 {
		return nil, errors.New(errors.CodeValidation, "cash on delivery request failed validation").WithDetails(details)
	}

	quote, err := fees.DeliveryFee(zone, req.Amount)
	if err != nil {
		return nil, err
	}

	return &Validated{
		CanonicalPhone:    phoneRes.Canonical,
		Zone:              zone,
		Quote:             quote,
		EstimatedDelivery: a.EstimateDelivery(a.now(), address),
		Warnings:          a.heuristic.Warnings(address),
	}, nil
}

// EstimateDelivery computes the promised delivery date: one day out, plus a
// day when the order lands on a weekend or outside business hours, plus a day
// for addresses the heuristic flags as remote.
func (a *Adapter) EstimateDelivery(placedAt time.Time, address string) time.Time {
	days := 1
	if placedAt.Weekday() == time.Saturday || placedAt.Weekday() == time.Sunday {
		days++
	} else if placedAt.Hour() < businessOpenHour || placedAt.Hour() >= businessCloseHour {
		days++
	}
	if a.heuristic.IsRemote(address) {
		days++
	}
	return placedAt.AddDate(0, 0, days)
}

// DeliveryStatus derives the display state from the raw record. The priority
// is total: collected beats attempted beats assigned beats pending, whatever
// else is set.
func DeliveryStatus(details models.CODDetails) enums.DeliveryStatus {
	switch {
	case details.CollectedAt != nil:
		return enums.DeliveryStatusCompleted
	case details.DeliveryAttempts > 0:
		return enums.DeliveryStatusAttempted
	case details.AssignedTo != nil:
		return enums.DeliveryStatusAssigned
	default:
		return enums.DeliveryStatusPending
	}
}

// NextDeliveryAttempt schedules a retry after a failed attempt: 4 hours after
// the first, a day after the second, two days after any later one, clamped
// into the 09:00-18:00 attempt window. Nil when nothing is due.
func NextDeliveryAttempt(details models.CODDetails, from time.Time) *time.Time {
	if details.CollectedAt != nil || details.DeliveryAttempts == 0 {
		return nil
	}

	var next time.Time
	switch details.DeliveryAttempts {
	case 1:
		next = from.Add(4 * time.Hour)
	case 2:
		next = from.AddDate(0, 0, 1)
	default:
		next = from.AddDate(0, 0, 2)
	}

	next = clampToAttemptWindow(next)
	return &next
}

func clampToAttemptWindow(t time.Time) time.Time {
	if t.Hour() < attemptWindowOpen {
		return time.Date(t.Year(), t.Month(), t.Day(), attemptWindowOpen, 0, 0, 0, t.Location())
	}
	if t.Hour() >= attemptWindowEnd {
		next := t.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), attemptWindowOpen, 0, 0, 0, t.Location())
	}
	return t
}
