package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoyetu/payments-backend/internal/cod"
	"github.com/sokoyetu/payments-backend/internal/payments"
	"github.com/sokoyetu/payments-backend/internal/poller"
	"github.com/sokoyetu/payments-backend/pkg/db/models"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	pkgerrors "github.com/sokoyetu/payments-backend/pkg/errors"
	"github.com/sokoyetu/payments-backend/pkg/logger"
	"github.com/sokoyetu/payments-backend/pkg/pagination"
)

type testPaymentsService struct {
	createFn func(ctx context.Context, input payments.CreatePaymentInput) (*payments.CreatePaymentResult, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	verifyFn func(ctx context.Context, id uuid.UUID) (*payments.VerifyResult, error)
	cancelFn func(ctx context.Context, id uuid.UUID, reason string) (*models.Payment, error)
	listFn   func(ctx context.Context, params pagination.Params, filters payments.Filters) (*payments.PaymentList, error)
	checkFn  func(raw string) payments.PhoneCheck
}

func (s *testPaymentsService) CreatePayment(ctx context.Context, input payments.CreatePaymentInput) (*payments.CreatePaymentResult, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &payments.CreatePaymentResult{Payment: &models.Payment{}}, nil
}

func (s *testPaymentsService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &models.Payment{ID: id}, nil
}

func (s *testPaymentsService) VerifyPayment(ctx context.Context, id uuid.UUID) (*payments.VerifyResult, error) {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, id)
	}
	return &payments.VerifyResult{Payment: &models.Payment{ID: id}}, nil
}

func (s *testPaymentsService) CancelPayment(ctx context.Context, id uuid.UUID, reason string) (*models.Payment, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, id, reason)
	}
	return &models.Payment{ID: id}, nil
}

func (s *testPaymentsService) RetryPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return &models.Payment{ID: id}, nil
}

func (s *testPaymentsService) StartPolling(context.Context, uuid.UUID, poller.UpdateFunc, poller.Options) (*poller.Session, error) {
	return nil, nil
}

func (s *testPaymentsService) ListPayments(ctx context.Context, params pagination.Params, filters payments.Filters) (*payments.PaymentList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params, filters)
	}
	return &payments.PaymentList{}, nil
}

func (s *testPaymentsService) GetStatistics(context.Context, payments.Filters) (*payments.Statistics, error) {
	return &payments.Statistics{}, nil
}

func (s *testPaymentsService) GetReceipt(context.Context, uuid.UUID) (*payments.Receipt, error) {
	return &payments.Receipt{}, nil
}

func (s *testPaymentsService) GetTimeline(context.Context, uuid.UUID) ([]payments.TimelineEvent, error) {
	return nil, nil
}

func (s *testPaymentsService) TrackDelivery(context.Context, uuid.UUID) ([]cod.TimelineEvent, error) {
	return nil, nil
}

func (s *testPaymentsService) GetRetryOptions(context.Context, uuid.UUID) (*payments.RetryOptions, error) {
	return &payments.RetryOptions{}, nil
}

func (s *testPaymentsService) ValidatePaymentData(payments.CreatePaymentInput) payments.ValidationResult {
	return payments.ValidationResult{IsValid: true}
}

func (s *testPaymentsService) CheckPhone(raw string) payments.PhoneCheck {
	if s.checkFn != nil {
		return s.checkFn(raw)
	}
	return payments.PhoneCheck{}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreatePaymentSuccess(t *testing.T) {
	var got payments.CreatePaymentInput
	svc := &testPaymentsService{
		createFn: func(_ context.Context, input payments.CreatePaymentInput) (*payments.CreatePaymentResult, error) {
			got = input
			return &payments.CreatePaymentResult{
				Payment:  &models.Payment{OrderID: input.OrderID},
				Warnings: []string{"amount uses most of the account limit"},
			}, nil
		},
	}

	body := `{"order_id":"abc","method":"mtn_momo","amount":10000,"phone_number":"0772123456","account_type":"registered"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Method != enums.PaymentMethodMTNMoMo {
		t.Fatalf("unexpected method %s", got.Method)
	}
	if !got.Amount.Equal(decimal.NewFromInt(10_000)) {
		t.Fatalf("unexpected amount %s", got.Amount)
	}
	if got.AccountType != enums.AccountTypeRegistered {
		t.Fatalf("unexpected account type %s", got.AccountType)
	}

	var envelope struct {
		Data struct {
			Warnings []string `json:"warnings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Warnings) != 1 {
		t.Fatalf("expected 1 warning got %d", len(envelope.Data.Warnings))
	}
}

func TestCreatePaymentRejectsUnknownMethod(t *testing.T) {
	body := `{"order_id":"abc","method":"carrier_pigeon","amount":10000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePayment(&testPaymentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreatePaymentRejectsMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CreatePayment(&testPaymentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetPaymentInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/nope", nil)
	req = addRouteParam(req, "paymentId", "nope")
	resp := httptest.NewRecorder()
	GetPayment(&testPaymentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	svc := &testPaymentsService{
		getFn: func(context.Context, uuid.UUID) (*models.Payment, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		},
	}
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+id.String(), nil)
	req = addRouteParam(req, "paymentId", id.String())
	resp := httptest.NewRecorder()
	GetPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCancelPaymentPassesReason(t *testing.T) {
	var gotReason string
	svc := &testPaymentsService{
		cancelFn: func(_ context.Context, id uuid.UUID, reason string) (*models.Payment, error) {
			gotReason = reason
			return &models.Payment{ID: id}, nil
		},
	}
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+id.String()+"/cancel", strings.NewReader(`{"reason":"customer asked"}`))
	req = addRouteParam(req, "paymentId", id.String())
	resp := httptest.NewRecorder()
	CancelPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotReason != "customer asked" {
		t.Fatalf("unexpected reason %q", gotReason)
	}
}

func TestListPaymentsFilters(t *testing.T) {
	var gotParams pagination.Params
	var gotFilters payments.Filters
	svc := &testPaymentsService{
		listFn: func(_ context.Context, params pagination.Params, filters payments.Filters) (*payments.PaymentList, error) {
			gotParams = params
			gotFilters = filters
			return &payments.PaymentList{}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?limit=10&status=completed&method=cod&order_id=abc", nil)
	resp := httptest.NewRecorder()
	ListPayments(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotParams.Limit != 10 {
		t.Fatalf("unexpected limit %d", gotParams.Limit)
	}
	if gotFilters.Status == nil || *gotFilters.Status != enums.PaymentStatusCompleted {
		t.Fatalf("status filter not applied")
	}
	if gotFilters.Method == nil || *gotFilters.Method != enums.PaymentMethodCOD {
		t.Fatalf("method filter not applied")
	}
	if gotFilters.OrderID != "abc" {
		t.Fatalf("order filter not applied")
	}
}

func TestListPaymentsRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments?status=exploded", nil)
	resp := httptest.NewRecorder()
	ListPayments(&testPaymentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckPhone(t *testing.T) {
	svc := &testPaymentsService{
		checkFn: func(raw string) payments.PhoneCheck {
			return payments.PhoneCheck{
				Valid:     true,
				Canonical: "+256772123456",
				Carrier:   enums.CarrierMTN,
				Method:    enums.PaymentMethodMTNMoMo,
			}
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/check-phone", strings.NewReader(`{"phone_number":"0772123456"}`))
	resp := httptest.NewRecorder()
	CheckPhone(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data payments.PhoneCheck `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data.Valid || envelope.Data.Carrier != enums.CarrierMTN {
		t.Fatalf("unexpected check result %+v", envelope.Data)
	}
}

func TestPaymentMethodsQuotesFees(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/methods?amount=10000", nil)
	resp := httptest.NewRecorder()
	PaymentMethods(testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Methods []paymentMethodView `json:"methods"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Methods) != 3 {
		t.Fatalf("expected 3 methods got %d", len(envelope.Data.Methods))
	}
	for _, view := range envelope.Data.Methods {
		if view.Method.IsMobileMoney() {
			if view.Fee == nil || view.Fee.IsZero() {
				t.Fatalf("expected fee quote for %s", view.Method)
			}
		} else if view.Fee != nil {
			t.Fatalf("cash on delivery must not carry a carrier fee")
		}
	}
}

func TestPaymentMethodsRejectsBadAmount(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/methods?amount=lots", nil)
	resp := httptest.NewRecorder()
	PaymentMethods(testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
