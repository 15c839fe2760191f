package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/api/responses"
	"github.com/sokoyetu/payments-backend/api/validators"
	"github.com/sokoyetu/payments-backend/internal/fees"
	"github.com/sokoyetu/payments-backend/internal/payments"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	pkgerrors "github.com/sokoyetu/payments-backend/pkg/errors"
	"github.com/sokoyetu/payments-backend/pkg/logger"
	"github.com/sokoyetu/payments-backend/pkg/pagination"
)

type createPaymentRequest struct {
	OrderID      string          `json:"order_id" validate:"required"`
	Method       string          `json:"method" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"required"`
	AccountType  string          `json:"account_type"`
	CustomerName string          `json:"customer_name"`

	PhoneNumber string `json:"phone_number"`

	DeliveryAddress string `json:"delivery_address"`
	DeliveryPhone   string `json:"delivery_phone"`
	DeliveryNotes   string `json:"delivery_notes"`
	DeliveryZone    string `json:"delivery_zone"`
}

type cancelPaymentRequest struct {
	Reason string `json:"reason"`
}

type checkPhoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// CreatePayment validates the request, runs method-specific checks, and
// submits mobile money payments to the carrier.
func CreatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req createPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildCreateInput(req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"payment":  result.Payment,
			"warnings": result.Warnings,
		})
	}
}

func buildCreateInput(req createPaymentRequest) (payments.CreatePaymentInput, error) {
	method, err := enums.ParsePaymentMethod(req.Method)
	if err != nil {
		return payments.CreatePaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	input := payments.CreatePaymentInput{
		OrderID:         strings.TrimSpace(req.OrderID),
		Method:          method,
		Amount:          req.Amount,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		DeliveryPhone:   strings.TrimSpace(req.DeliveryPhone),
		DeliveryNotes:   strings.TrimSpace(req.DeliveryNotes),
	}

	if raw := strings.TrimSpace(req.AccountType); raw != "" {
		accountType, err := enums.ParseAccountType(raw)
		if err != nil {
			return payments.CreatePaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account type")
		}
		input.AccountType = accountType
	}
	if raw := strings.TrimSpace(req.DeliveryZone); raw != "" {
		zone, err := enums.ParseDeliveryZone(raw)
		if err != nil {
			return payments.CreatePaymentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery zone")
		}
		input.DeliveryZone = zone
	}
	return input, nil
}

// GetPayment returns a single payment with its method details.
func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.GetPayment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// VerifyPayment asks the carrier for the current transaction status and
// applies the answer to the stored record.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.VerifyPayment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"payment":        result.Payment,
			"carrier_status": result.CarrierStatus,
		})
	}
}

// CancelPayment cancels a pending or processing payment.
func CancelPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason := ""
		if r.Body != nil && r.ContentLength != 0 {
			var req cancelPaymentRequest
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			reason = strings.TrimSpace(req.Reason)
		}

		payment, err := svc.CancelPayment(r.Context(), id, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// RetryPayment re-submits a failed payment under a fresh reference number.
func RetryPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.RetryPayment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// GetRetryOptions lists which methods to offer after a failed payment.
func GetRetryOptions(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		options, err := svc.GetRetryOptions(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}

// GetReceipt renders the printable receipt view of a payment.
func GetReceipt(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := svc.GetReceipt(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}

// GetTimeline returns the uniform status timeline for a payment.
func GetTimeline(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		timeline, err := svc.GetTimeline(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"timeline": timeline})
	}
}

// TrackDelivery returns the customer-facing delivery timeline for a cash
// on delivery payment.
func TrackDelivery(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		timeline, err := svc.TrackDelivery(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"timeline": timeline})
	}
}

// ListPayments returns a filtered, cursor-paginated payment page.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListPayments(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetStatistics aggregates payment history with the same filters the list
// endpoint accepts.
func GetStatistics(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.GetStatistics(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// CheckPhone detects the carrier for a raw phone number without touching
// any provider API.
func CheckPhone(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkPhoneRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.CheckPhone(req.PhoneNumber))
	}
}

type paymentMethodView struct {
	Method      enums.PaymentMethod `json:"method"`
	Label       string              `json:"label"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Available   bool                `json:"available"`
	Reason      string              `json:"reason,omitempty"`
	Fee         *decimal.Decimal    `json:"fee,omitempty"`
	Total       *decimal.Decimal    `json:"total,omitempty"`
}

// PaymentMethods quotes each supported method for an optional amount so the
// checkout page can show fees before the customer picks one.
func PaymentMethods(logg *logger.Logger) http.HandlerFunc {
	methods := []enums.PaymentMethod{
		enums.PaymentMethodMTNMoMo,
		enums.PaymentMethodAirtelMoney,
		enums.PaymentMethodCOD,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var amount decimal.Decimal
		if raw := strings.TrimSpace(r.URL.Query().Get("amount")); raw != "" {
			parsed, err := decimal.NewFromString(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be numeric"))
				return
			}
			amount = parsed
		}

		views := make([]paymentMethodView, 0, len(methods))
		for _, method := range methods {
			info := payments.MethodInfo(method)
			view := paymentMethodView{
				Method:      method,
				Label:       info.Label,
				Description: info.Description,
				Icon:        info.Icon,
				Available:   true,
			}
			if method.IsMobileMoney() && amount.IsPositive() {
				quote, err := fees.CalculateFee(method, amount)
				if err != nil {
					view.Available = false
					view.Reason = pkgerrors.As(err).Message()
				} else {
					fee := quote.Fee
					total := quote.Total
					view.Fee = &fee
					view.Total = &total
				}
			}
			views = append(views, view)
		}
		responses.WriteSuccess(w, map[string]any{"methods": views})
	}
}

func buildFilters(r *http.Request) (payments.Filters, error) {
	filters := payments.Filters{
		OrderID: strings.TrimSpace(r.URL.Query().Get("order_id")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return payments.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("method")); raw != "" {
		method, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return payments.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method filter")
		}
		filters.Method = &method
	}

	from, err := validators.ParseQueryDate(r, "date_from")
	if err != nil {
		return payments.Filters{}, err
	}
	filters.DateFrom = from

	to, err := validators.ParseQueryDate(r, "date_to")
	if err != nil {
		return payments.Filters{}, err
	}
	filters.DateTo = to

	return filters, nil
}

func parsePaymentID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "paymentId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id")
	}
	return id, nil
}
