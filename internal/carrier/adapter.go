package carrier

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/internal/fees"
	"github.com/sokoyetu/payments-backend/internal/phone"
	"github.com/sokoyetu/payments-backend/internal/poller"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/errors"
	"github.com/sokoyetu/payments-backend/pkg/gateway"
	"github.com/sokoyetu/payments-backend/pkg/logger"
	"github.com/sokoyetu/payments-backend/pkg/metrics"
)

type gatewayClient interface {
	RequestToPay(ctx context.Context, params gateway.RequestToPayParams) (*gateway.RequestToPayResult, error)
	TransactionStatus(ctx context.Context, referenceNumber string) (*gateway.TransactionStatus, error)
	CancelTransaction(ctx context.Context, referenceNumber, reason string) error
}

// AdapterParams wires one carrier adapter.
type AdapterParams struct {
	Config  Config
	Gateway gatewayClient
	Logger  *logger.Logger
	Metrics *metrics.PollerMetrics
}

// Adapter is the mobile money payment adapter. One instance per carrier,
// parameterized by Config; MTN and Airtel share all the code here.
type Adapter struct {
	cfg     Config
	gateway gatewayClient
	logg    *logger.Logger
	metrics *metrics.PollerMetrics
}

func NewAdapter(params AdapterParams) (*Adapter, error) {
	if params.Gateway == nil {
		return nil, stdErrors.New("gateway client is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	if !params.Config.Method.IsMobileMoney() {
		return nil, fmt.Errorf("method %s is not mobile money", params.Config.Method)
	}
	return &Adapter{
		cfg:     params.Config,
		gateway: params.Gateway,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Method reports which payment method this adapter settles.
func (a *Adapter) Method() enums.PaymentMethod {
	return a.cfg.Method
}

// DisplayName is the carrier's customer-facing name.
func (a *Adapter) DisplayName() string {
	return a.cfg.DisplayName
}

// Request is a mobile money charge request as received from the caller,
// before any normalization.
type Request struct {
	OrderID         string
	ReferenceNumber string
	PhoneNumber     string
	Amount          decimal.Decimal
	CustomerName    string
}

// Validated carries the normalized request plus the fee quote.
type Validated struct {
	CanonicalPhone string
	Carrier        enums.Carrier
	Quote          fees.Quote
}

// SubmitResult is the carrier acknowledgement after a charge is submitted.
type SubmitResult struct {
	Validated             Validated
	ProviderTransactionID string
	CarrierStatus         string
}

// Verification is the adapter view of an in-flight payment's carrier state.
type Verification struct {
	Status                enums.PaymentStatus
	CarrierStatus         string
	ProviderTransactionID string
	FailureMessage        string
}

// Validate normalizes the phone number, enforces the carrier prefix match and
// the amount limits. It performs no I/O: a rejected request never reaches the
// gateway. Validation failures carry field-keyed details.
func (a *Adapter) Validate(req Request) (*Validated, error) {
	details := map[string]string{}

	if strings.TrimSpace(req.OrderID) == "" {
		details["order_id"] = "order id is required"
	}

	res := phone.Validate(req.PhoneNumber)
	switch {
	case !res.Valid:
		details["phone_number"] = "phone number format is invalid"
	case res.Carrier != a.cfg.Carrier:
		details["phone_number"] = fmt.Sprintf("wrong_carrier: number is not a %s number", a.cfg.DisplayName)
	}

	if req.Amount.LessThan(a.cfg.MinAmount) {
		details["amount"] = fmt.Sprintf("amount is below the %s UGX minimum", a.cfg.MinAmount)
	} else if req.Amount.GreaterThan(a.cfg.MaxAmount) {
		details["amount"] = fmt.Sprintf("amount exceeds the %s UGX limit", a.cfg.MaxAmount)
	}

	if len(details) > 0 {
		return nil, errors.New(errors.CodeValidation, "payment request failed validation").WithDetails(details)
	}

	quote, err := fees.CalculateFee(a.cfg.Method, req.Amount)
	if err != nil {
		return nil, err
	}
	return &Validated{
		CanonicalPhone: res.Canonical,
		Carrier:        res.Carrier,
		Quote:          quote,
	}, nil
}

// ProcessPayment validates the request and submits the charge to the carrier.
// It must not be retried without user confirmation: the carrier may create a
// new collection attempt on every call.
func (a *Adapter) ProcessPayment(ctx context.Context, req Request) (*SubmitResult, error) {
	validated, err := a.Validate(req)
	if err != nil {
		return nil, err
	}

	ctx = a.logg.WithCarrier(a.logg.WithOrderID(ctx, req.OrderID), a.cfg.Carrier.String())
	result, err := a.gateway.RequestToPay(ctx, gateway.RequestToPayParams{
		ReferenceNumber: req.ReferenceNumber,
		PhoneNumber:     validated.CanonicalPhone,
		Amount:          req.Amount.String(),
		Currency:        "UGX",
		PayerMessage:    fmt.Sprintf("Sokoyetu order %s", req.OrderID),
	})
	if err != nil {
		return nil, a.wrapGatewayError(err, "request to pay failed")
	}

	a.logg.Info(ctx, "charge submitted to carrier")
	return &SubmitResult{
		Validated:             *validated,
		ProviderTransactionID: result.ProviderTransactionID,
		CarrierStatus:         result.Status,
	}, nil
}

// VerifyPayment fetches the carrier status for a reference and maps it onto
// the payment lifecycle. Unrecognized carrier statuses stay processing.
func (a *Adapter) VerifyPayment(ctx context.Context, referenceNumber string) (*Verification, error) {
	status, err := a.gateway.TransactionStatus(ctx, referenceNumber)
	if err != nil {
		return nil, a.wrapGatewayError(err, "transaction status lookup failed")
	}

	v := &Verification{
		Status:                mapCarrierStatus(status.Status),
		CarrierStatus:         status.Status,
		ProviderTransactionID: status.FinancialTransactionID,
	}
	if v.ProviderTransactionID == "" {
		v.ProviderTransactionID = status.ProviderTransactionID
	}
	if v.Status == enums.PaymentStatusFailed {
		v.FailureMessage = a.ParseErrorCode(status.ErrorCode)
	}
	return v, nil
}

// CancelPayment voids an unconfirmed collection at the carrier.
func (a *Adapter) CancelPayment(ctx context.Context, referenceNumber, reason string) error {
	if err := a.gateway.CancelTransaction(ctx, referenceNumber, reason); err != nil {
		return a.wrapGatewayError(err, "cancel failed")
	}
	return nil
}

// StartPolling launches a polling session bound to this adapter's
// VerifyPayment, using the carrier's cadence unless opts overrides it.
func (a *Adapter) StartPolling(ctx context.Context, referenceNumber string, onUpdate poller.UpdateFunc, opts poller.Options) (*poller.Session, error) {
	if opts.Interval <= 0 {
		opts.Interval = a.cfg.PollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = a.cfg.PollMaxAttempts
	}
	if opts.WallTimeout <= 0 {
		opts.WallTimeout = a.cfg.PollWallTimeout
	}

	verify := func(ctx context.Context) (enums.PaymentStatus, string, error) {
		v, err := a.VerifyPayment(ctx, referenceNumber)
		if err != nil {
			return "", "", err
		}
		return v.Status, v.CarrierStatus, nil
	}

	return poller.Start(ctx, poller.Params{
		Verify:   verify,
		OnUpdate: onUpdate,
		Options:  opts,
		Method:   a.cfg.Method,
		Logger:   a.logg,
		Metrics:  a.metrics,
	})
}

func (a *Adapter) wrapGatewayError(err error, message string) error {
	var statusErr *gateway.StatusError
	if stdErrors.As(err, &statusErr) {
		wrapped := errors.Wrap(errors.CodeCarrier, err, message)
		if statusErr.Code != "" {
			return wrapped.WithDetails(map[string]string{
				"carrier_code":    statusErr.Code,
				"carrier_message": a.ParseErrorCode(statusErr.Code),
			})
		}
		return wrapped
	}
	return errors.Wrap(errors.CodeDependency, err, message)
}

func mapCarrierStatus(raw string) enums.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESSFUL", "SUCCESS", "COMPLETED":
		return enums.PaymentStatusCompleted
	case "FAILED", "REJECTED", "EXPIRED":
		return enums.PaymentStatusFailed
	case "CANCELLED", "CANCELED":
		return enums.PaymentStatusCancelled
	default:
		return enums.PaymentStatusProcessing
	}
}
