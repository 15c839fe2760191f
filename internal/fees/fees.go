package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/errors"
)

// Band is one step of a carrier fee schedule: a flat fee charged for any
// amount up to and including UpTo.
type Band struct {
	UpTo decimal.Decimal
	Fee  decimal.Decimal
}

// Schedule holds one carrier's fee bands plus the percentage rate applied to
// amounts above the top band. Bands are ordered ascending by UpTo.
type Schedule struct {
	Bands     []Band
	RateAbove decimal.Decimal
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

// Quote is a computed fee for a given method and amount.
type Quote struct {
	Fee           decimal.Decimal
	Total         decimal.Decimal
	FeePercentage decimal.Decimal
}

// Carrier fee schedules, whole UGX. The rate above the top band is charged on
// the full amount, not just the excess.
var (
	mtnSchedule = Schedule{
		Bands: []Band{
			{UpTo: ugx(2_500), Fee: ugx(30)},
			{UpTo: ugx(5_000), Fee: ugx(100)},
			{UpTo: ugx(15_000), Fee: ugx(350)},
			{UpTo: ugx(30_000), Fee: ugx(500)},
			{UpTo: ugx(125_000), Fee: ugx(1_000)},
			{UpTo: ugx(250_000), Fee: ugx(1_500)},
		},
		RateAbove: decimal.NewFromFloat(0.015),
		MinAmount: ugx(500),
		MaxAmount: ugx(2_500_000),
	}

	airtelSchedule = Schedule{
		Bands: []Band{
			{UpTo: ugx(2_500), Fee: ugx(30)},
			{UpTo: ugx(5_000), Fee: ugx(100)},
			{UpTo: ugx(15_000), Fee: ugx(300)},
			{UpTo: ugx(30_000), Fee: ugx(450)},
			{UpTo: ugx(125_000), Fee: ugx(900)},
			{UpTo: ugx(250_000), Fee: ugx(1_400)},
		},
		RateAbove: decimal.NewFromFloat(0.014),
		MinAmount: ugx(500),
		MaxAmount: ugx(2_000_000),
	}
)

// ZoneFee is the flat delivery charge for a zone, waived when the order
// amount reaches FreeAbove.
type ZoneFee struct {
	Flat      decimal.Decimal
	FreeAbove decimal.Decimal
}

var zoneFees = map[enums.DeliveryZone]ZoneFee{
	enums.DeliveryZoneMetro:     {Flat: ugx(5_000), FreeAbove: ugx(100_000)},
	enums.DeliveryZoneSuburb:    {Flat: ugx(8_000), FreeAbove: ugx(150_000)},
	enums.DeliveryZoneUpcountry: {Flat: ugx(15_000), FreeAbove: ugx(300_000)},
}

// ScheduleFor returns the fee schedule for a mobile money method.
func ScheduleFor(method enums.PaymentMethod) (Schedule, error) {
	switch method {
	case enums.PaymentMethodMTNMoMo:
		return mtnSchedule, nil
	case enums.PaymentMethodAirtelMoney:
		return airtelSchedule, nil
	}
	return Schedule{}, errors.New(errors.CodeValidation, fmt.Sprintf("no fee schedule for method %s", method))
}

// CalculateFee computes the processing fee for a mobile money payment or the
// delivery fee quote for COD. Total is always amount plus fee.
func CalculateFee(method enums.PaymentMethod, amount decimal.Decimal) (Quote, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Quote{}, errors.New(errors.CodeValidation, "amount must be positive")
	}
	if method == enums.PaymentMethodCOD {
		return Quote{}, errors.New(errors.CodeValidation, "cod fees are per delivery zone, use DeliveryFee")
	}
	schedule, err := ScheduleFor(method)
	if err != nil {
		return Quote{}, err
	}
	fee := schedule.feeFor(amount)
	return newQuote(amount, fee), nil
}

// DeliveryFee computes the COD delivery charge for a zone, zero when the
// order amount qualifies for free delivery.
func DeliveryFee(zone enums.DeliveryZone, orderAmount decimal.Decimal) (Quote, error) {
	zf, ok := zoneFees[zone]
	if !ok {
		return Quote{}, errors.New(errors.CodeValidation, fmt.Sprintf("unknown delivery zone %s", zone))
	}
	fee := zf.Flat
	if orderAmount.GreaterThanOrEqual(zf.FreeAbove) {
		fee = decimal.Zero
	}
	return newQuote(orderAmount, fee), nil
}

func (s Schedule) feeFor(amount decimal.Decimal) decimal.Decimal {
	for _, band := range s.Bands {
		if amount.LessThanOrEqual(band.UpTo) {
			return band.Fee
		}
	}
	return amount.Mul(s.RateAbove).Round(0)
}

func newQuote(amount, fee decimal.Decimal) Quote {
	pct := decimal.Zero
	if amount.IsPositive() {
		pct = fee.Div(amount).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return Quote{
		Fee:           fee,
		Total:         amount.Add(fee),
		FeePercentage: pct,
	}
}

func ugx(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
