package payments

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokoyetu/payments-backend/internal/carrier"
	"github.com/sokoyetu/payments-backend/internal/cod"
	"github.com/sokoyetu/payments-backend/internal/fees"
	"github.com/sokoyetu/payments-backend/internal/phone"
	"github.com/sokoyetu/payments-backend/internal/poller"
	"github.com/sokoyetu/payments-backend/pkg/db"
	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	pkgerrors "github.com/sokoyetu/payments-backend/pkg/errors"
	"github.com/sokoyetu/payments-backend/pkg/logger"
	"github.com/sokoyetu/payments-backend/pkg/pagination"
)

// Method-agnostic amount bounds. Method-specific limits are tighter and live
// in the adapters.
var (
	globalMinAmount = decimal.NewFromInt(500)
	globalMaxAmount = decimal.NewFromInt(10_000_000)
)

const historyLimit = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type mobileMoneyAdapter interface {
	Method() enums.PaymentMethod
	DisplayName() string
	Validate(req carrier.Request) (*carrier.Validated, error)
	ProcessPayment(ctx context.Context, req carrier.Request) (*carrier.SubmitResult, error)
	VerifyPayment(ctx context.Context, referenceNumber string) (*carrier.Verification, error)
	CancelPayment(ctx context.Context, referenceNumber, reason string) error
	StartPolling(ctx context.Context, referenceNumber string, onUpdate poller.UpdateFunc, opts poller.Options) (*poller.Session, error)
}

type codAdapter interface {
	Validate(req cod.Request) (*cod.Validated, error)
}

type notifier interface {
	PaymentEvent(ctx context.Context, payment *models.Payment, eventType enums.NotificationType) error
}

// Service is the single entry point for payment operations. It selects the
// adapter by payment method and presents a uniform view across carriers and
// cash on delivery.
type Service interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	VerifyPayment(ctx context.Context, id uuid.UUID) (*VerifyResult, error)
	CancelPayment(ctx context.Context, id uuid.UUID, reason string) (*models.Payment, error)
	RetryPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	StartPolling(ctx context.Context, id uuid.UUID, onUpdate poller.UpdateFunc, opts poller.Options) (*poller.Session, error)
	ListPayments(ctx context.Context, params pagination.Params, filters Filters) (*PaymentList, error)
	GetStatistics(ctx context.Context, filters Filters) (*Statistics, error)
	GetReceipt(ctx context.Context, id uuid.UUID) (*Receipt, error)
	GetTimeline(ctx context.Context, id uuid.UUID) ([]TimelineEvent, error)
	TrackDelivery(ctx context.Context, id uuid.UUID) ([]cod.TimelineEvent, error)
	GetRetryOptions(ctx context.Context, id uuid.UUID) (*RetryOptions, error)
	ValidatePaymentData(input CreatePaymentInput) ValidationResult
	CheckPhone(raw string) PhoneCheck
}

// ServiceParams wires the orchestrator dependencies.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	MTN        mobileMoneyAdapter
	Airtel     mobileMoneyAdapter
	COD        codAdapter
	Notifier   notifier
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	carriers map[enums.PaymentMethod]mobileMoneyAdapter
	cod      codAdapter
	notifier notifier
	logg     *logger.Logger
}

// NewService builds the payment orchestrator. The notifier is optional;
// everything else is required.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.MTN == nil || params.Airtel == nil {
		return nil, fmt.Errorf("both carrier adapters required")
	}
	if params.COD == nil {
		return nil, fmt.Errorf("cash on delivery adapter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo: params.Repository,
		tx:   params.Tx,
		carriers: map[enums.PaymentMethod]mobileMoneyAdapter{
			enums.PaymentMethodMTNMoMo:     params.MTN,
			enums.PaymentMethodAirtelMoney: params.Airtel,
		},
		cod:      params.COD,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	validation := s.ValidatePaymentData(input)
	if !validation.IsValid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment data failed validation").
			WithDetails(validation.Errors)
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID)

	if input.Method == enums.PaymentMethodCOD {
		return s.createCODPayment(ctx, input, validation.Warnings)
	}
	adapter, ok := s.carriers[input.Method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Unsupported payment method")
	}
	return s.createMobileMoneyPayment(ctx, adapter, input, validation.Warnings)
}

func (s *service) createMobileMoneyPayment(ctx context.Context, adapter mobileMoneyAdapter, input CreatePaymentInput, warnings []string) (*CreatePaymentResult, error) {
	req := carrier.Request{
		OrderID:         input.OrderID,
		ReferenceNumber: newReferenceNumber(),
		PhoneNumber:     input.PhoneNumber,
		Amount:          input.Amount,
		CustomerName:    input.CustomerName,
	}
	validated, err := adapter.Validate(req)
	if err != nil {
		return nil, err
	}

	limits := fees.CheckTransactionLimits(input.Amount, accountTypeOrDefault(input.AccountType))
	warnings = append(warnings, limits.Warnings...)

	payment := &models.Payment{
		OrderID:         input.OrderID,
		Method:          input.Method,
		Status:          enums.PaymentStatusPending,
		Amount:          input.Amount,
		Fee:             validated.Quote.Fee,
		Currency:        "UGX",
		ReferenceNumber: req.ReferenceNumber,
		MobileMoney: &models.MobileMoneyDetails{
			PhoneNumber:  validated.CanonicalPhone,
			Carrier:      validated.Carrier,
			CustomerName: optional(input.CustomerName),
		},
	}
	if err := s.insertPayment(ctx, payment); err != nil {
		return nil, err
	}
	ctx = s.logg.WithPaymentID(ctx, payment.ID.String())

	result, err := adapter.ProcessPayment(ctx, req)
	if err != nil {
		s.markSubmitFailed(ctx, payment.ID, err)
		return nil, err
	}

	updates := map[string]any{"status": enums.PaymentStatusProcessing}
	if result.ProviderTransactionID != "" {
		updates["provider_transaction_id"] = result.ProviderTransactionID
	}
	if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mark payment processing")
	}

	fresh, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reload payment")
	}
	s.notify(ctx, fresh, enums.NotificationTypePaymentCreated)
	return &CreatePaymentResult{Payment: fresh, Warnings: warnings}, nil
}

func (s *service) createCODPayment(ctx context.Context, input CreatePaymentInput, warnings []string) (*CreatePaymentResult, error) {
	validated, err := s.cod.Validate(cod.Request{
		OrderID:         input.OrderID,
		Amount:          input.Amount,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryPhone:   input.DeliveryPhone,
		DeliveryNotes:   input.DeliveryNotes,
		DeliveryZone:    input.DeliveryZone,
	})
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, validated.Warnings...)

	estimated := validated.EstimatedDelivery
	payment := &models.Payment{
		OrderID:         input.OrderID,
		Method:          enums.PaymentMethodCOD,
		Status:          enums.PaymentStatusPending,
		Amount:          input.Amount,
		Fee:             validated.Quote.Fee,
		Currency:        "UGX",
		ReferenceNumber: newReferenceNumber(),
		COD: &models.CODDetails{
			DeliveryAddress:   strings.TrimSpace(input.DeliveryAddress),
			DeliveryPhone:     validated.CanonicalPhone,
			DeliveryNotes:     optional(input.DeliveryNotes),
			DeliveryZone:      validated.Zone,
			DeliveryFee:       validated.Quote.Fee,
			EstimatedDelivery: &estimated,
		},
	}
	if err := s.insertPayment(ctx, payment); err != nil {
		return nil, err
	}

	fresh, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reload payment")
	}
	s.notify(ctx, fresh, enums.NotificationTypePaymentCreated)
	return &CreatePaymentResult{Payment: fresh, Warnings: warnings}, nil
}

// insertPayment creates the record, enforcing one active payment per order.
func (s *service) insertPayment(ctx context.Context, payment *models.Payment) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindActiveByOrder(ctx, payment.OrderID)
		if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check active payments")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active payment already exists for this order").
				WithDetails(map[string]string{"order_id": payment.OrderID})
		}

		if _, err := repo.Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "payments_one_active_per_order") {
				return pkgerrors.New(pkgerrors.CodeConflict, "an active payment already exists for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create payment")
		}
		return nil
	})
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.findPayment(ctx, id)
}

func (s *service) VerifyPayment(ctx context.Context, id uuid.UUID) (*VerifyResult, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !payment.Method.IsMobileMoney() {
		carrierStatus := ""
		if payment.COD != nil {
			carrierStatus = cod.DeliveryStatus(*payment.COD).String()
		}
		return &VerifyResult{Payment: payment, CarrierStatus: carrierStatus}, nil
	}

	adapter := s.carriers[payment.Method]
	verification, err := adapter.VerifyPayment(ctx, payment.ReferenceNumber)
	if err != nil {
		return nil, err
	}

	// Terminal records never regress, whatever the carrier reports late.
	if !payment.Status.IsTerminal() && verification.Status != payment.Status {
		updates := map[string]any{"status": verification.Status}
		if verification.ProviderTransactionID != "" {
			updates["provider_transaction_id"] = verification.ProviderTransactionID
		}
		if verification.Status == enums.PaymentStatusFailed && verification.FailureMessage != "" {
			updates["failure_reason"] = verification.FailureMessage
		}
		if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record verified status")
		}

		payment, err = s.findPayment(ctx, id)
		if err != nil {
			return nil, err
		}
		switch verification.Status {
		case enums.PaymentStatusCompleted:
			s.notify(ctx, payment, enums.NotificationTypePaymentCompleted)
		case enums.PaymentStatusFailed:
			s.notify(ctx, payment, enums.NotificationTypePaymentFailed)
		}
	}

	return &VerifyResult{Payment: payment, CarrierStatus: verification.CarrierStatus}, nil
}

func (s *service) CancelPayment(ctx context.Context, id uuid.UUID, reason string) (*models.Payment, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment is already %s", payment.Status))
	}

	if payment.Method.IsMobileMoney() && payment.Status == enums.PaymentStatusProcessing {
		if err := s.carriers[payment.Method].CancelPayment(ctx, payment.ReferenceNumber, reason); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{"status": enums.PaymentStatusCancelled}
	if strings.TrimSpace(reason) != "" {
		updates["failure_reason"] = reason
	}
	if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to cancel payment")
	}

	payment, err = s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, payment, enums.NotificationTypePaymentCancelled)
	return payment, nil
}

// RetryPayment resubmits a failed mobile money payment under a fresh
// reference. Administrative: distinct from a user starting a new payment.
func (s *service) RetryPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only failed payments can be retried")
	}
	if !payment.Method.IsMobileMoney() || payment.MobileMoney == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only mobile money payments can be resubmitted")
	}

	adapter := s.carriers[payment.Method]
	reference := newReferenceNumber()
	result, err := adapter.ProcessPayment(ctx, carrier.Request{
		OrderID:         payment.OrderID,
		ReferenceNumber: reference,
		PhoneNumber:     payment.MobileMoney.PhoneNumber,
		Amount:          payment.Amount,
	})
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"status":           enums.PaymentStatusProcessing,
		"reference_number": reference,
		"failure_reason":   nil,
	}
	if result.ProviderTransactionID != "" {
		updates["provider_transaction_id"] = result.ProviderTransactionID
	}
	if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record retried payment")
	}
	return s.findPayment(ctx, id)
}

func (s *service) StartPolling(ctx context.Context, id uuid.UUID, onUpdate poller.UpdateFunc, opts poller.Options) (*poller.Session, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !payment.Method.IsMobileMoney() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "polling applies to mobile money payments only")
	}
	return s.carriers[payment.Method].StartPolling(ctx, payment.ReferenceNumber, onUpdate, opts)
}

func (s *service) ListPayments(ctx context.Context, params pagination.Params, filters Filters) (*PaymentList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list payments")
	}
	return list, nil
}

func (s *service) GetStatistics(ctx context.Context, filters Filters) (*Statistics, error) {
	rows, err := s.repo.History(ctx, filters, historyLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load payment history")
	}
	return Aggregate(rows), nil
}

func (s *service) GetReceipt(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ReferenceNumber: payment.ReferenceNumber,
		OrderID:         payment.OrderID,
		Method:          payment.Method,
		MethodLabel:     MethodInfo(payment.Method).Label,
		Status:          payment.Status,
		Amount:          payment.Amount,
		Fee:             payment.Fee,
		Total:           payment.Amount.Add(payment.Fee),
		Currency:        payment.Currency,
		IssuedAt:        payment.CreatedAt,
	}
	if payment.MobileMoney != nil {
		receipt.PhoneNumber = payment.MobileMoney.PhoneNumber
	}
	if payment.COD != nil {
		receipt.DeliveryAddress = payment.COD.DeliveryAddress
	}
	if payment.Status == enums.PaymentStatusCompleted {
		paidAt := payment.UpdatedAt
		receipt.PaidAt = &paidAt
	}
	return receipt, nil
}

func (s *service) GetTimeline(ctx context.Context, id uuid.UUID) ([]TimelineEvent, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	return Timeline(*payment), nil
}

func (s *service) TrackDelivery(ctx context.Context, id uuid.UUID) ([]cod.TimelineEvent, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.COD == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment is not cash on delivery")
	}
	return cod.DeliveryTimeline(*payment), nil
}

func (s *service) GetRetryOptions(ctx context.Context, id uuid.UUID) (*RetryOptions, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "retry options apply to failed payments only")
	}
	options := RetryOptionsFor(payment.Method)
	return &options, nil
}

// ValidatePaymentData runs the method-agnostic checks plus the per-method
// required field switch. Adapter-level rules run later and are stricter.
func (s *service) ValidatePaymentData(input CreatePaymentInput) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: map[string]string{}}
	fail := func(field, message string) {
		result.IsValid = false
		result.Errors[field] = message
	}

	if strings.TrimSpace(input.OrderID) == "" {
		fail("order_id", "order id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		fail("amount", "amount must be greater than zero")
	} else if input.Amount.LessThan(globalMinAmount) {
		fail("amount", fmt.Sprintf("amount must be at least %s UGX", globalMinAmount))
	} else if input.Amount.GreaterThan(globalMaxAmount) {
		fail("amount", fmt.Sprintf("amount must be at most %s UGX", globalMaxAmount))
	}

	switch input.Method {
	case enums.PaymentMethodMTNMoMo, enums.PaymentMethodAirtelMoney:
		if strings.TrimSpace(input.PhoneNumber) == "" {
			fail("phone_number", "phone number is required for mobile money")
		}
	case enums.PaymentMethodCOD:
		if strings.TrimSpace(input.DeliveryAddress) == "" {
			fail("delivery_address", "delivery address is required for cash on delivery")
		}
		if strings.TrimSpace(input.DeliveryPhone) == "" {
			fail("delivery_phone", "delivery phone is required for cash on delivery")
		}
	default:
		fail("method", "Unsupported payment method")
	}
	return result
}

// CheckPhone validates a raw number and suggests the matching payment method.
func (s *service) CheckPhone(raw string) PhoneCheck {
	res := phone.Validate(raw)
	if !res.Valid {
		return PhoneCheck{Error: res.Err}
	}
	check := PhoneCheck{
		Valid:     true,
		Canonical: res.Canonical,
		Carrier:   res.Carrier,
	}
	if method, err := res.Carrier.Method(); err == nil {
		check.Method = method
	}
	return check
}

// RetryOptionsFor suggests alternatives after a failure: each mobile money
// method offers the other carrier plus cash on delivery, and cash on delivery
// offers both carriers.
func RetryOptionsFor(method enums.PaymentMethod) RetryOptions {
	options := RetryOptions{OriginalMethod: method}
	switch method {
	case enums.PaymentMethodMTNMoMo:
		options.Alternatives = []enums.PaymentMethod{enums.PaymentMethodAirtelMoney, enums.PaymentMethodCOD}
	case enums.PaymentMethodAirtelMoney:
		options.Alternatives = []enums.PaymentMethod{enums.PaymentMethodMTNMoMo, enums.PaymentMethodCOD}
	case enums.PaymentMethodCOD:
		options.Alternatives = []enums.PaymentMethod{enums.PaymentMethodMTNMoMo, enums.PaymentMethodAirtelMoney}
	}
	return options
}

// Aggregate folds a payment history slice into counts and sums. Pure: the one
// repository fetch happens in GetStatistics.
func Aggregate(rows []models.Payment) *Statistics {
	stats := &Statistics{
		TotalCount:      len(rows),
		ByStatus:        map[enums.PaymentStatus]int{},
		ByMethod:        map[enums.PaymentMethod]int{},
		TotalAmount:     decimal.Zero,
		CompletedAmount: decimal.Zero,
	}
	for _, row := range rows {
		stats.ByStatus[row.Status]++
		stats.ByMethod[row.Method]++
		stats.TotalAmount = stats.TotalAmount.Add(row.Amount)
		if row.Status == enums.PaymentStatusCompleted {
			stats.CompletedAmount = stats.CompletedAmount.Add(row.Amount)
		}
	}
	return stats
}

func (s *service) findPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load payment")
	}
	return payment, nil
}

func (s *service) markSubmitFailed(ctx context.Context, id uuid.UUID, cause error) {
	reason := "submission failed"
	if appErr := pkgerrors.As(cause); appErr != nil {
		if details, ok := appErr.Details().(map[string]string); ok && details["carrier_message"] != "" {
			reason = details["carrier_message"]
		}
	}
	updates := map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": reason,
	}
	if err := s.repo.UpdatePayment(ctx, id, updates); err != nil {
		s.logg.Error(ctx, "failed to mark payment failed after submission error", err)
	}
}

func (s *service) notify(ctx context.Context, payment *models.Payment, eventType enums.NotificationType) {
	if s.notifier == nil || payment == nil {
		return
	}
	if err := s.notifier.PaymentEvent(ctx, payment, eventType); err != nil {
		s.logg.Warn(s.logg.WithPaymentID(ctx, payment.ID.String()), "failed to enqueue payment notification")
	}
}

func accountTypeOrDefault(accountType enums.AccountType) enums.AccountType {
	if accountType.IsValid() {
		return accountType
	}
	return enums.AccountTypeRegistered
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func newReferenceNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "SOKO-" + raw[:16]
}
