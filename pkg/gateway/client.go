package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sokoyetu/payments-backend/pkg/config"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/logger"
)

const (
	transientRetryBase = 500 * time.Millisecond
	transientRetryMax  = 3
)

var (
	errBaseURLRequired = errors.New("gateway base url is required")
	errAPIKeyRequired  = errors.New("gateway api key is required")
	errLoggerRequired  = errors.New("gateway logger is required")
)

// Client talks to one carrier's collection API with centralized auth, logging,
// transient-error retry, and error mapping. MTN and Airtel run separate
// instances with their own credentials.
type Client struct {
	carrier     enums.Carrier
	baseURL     string
	apiKey      string
	apiSecret   string
	callbackURL string
	http        *http.Client
	logger      *logger.Logger
}

// StatusError carries the HTTP status and carrier error code of a rejected call.
type StatusError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway %d %s: %s", e.HTTPStatus, e.Code, e.Message)
}

// NewClient validates the carrier credentials and builds the wrapper.
func NewClient(ctx context.Context, carrier enums.Carrier, cfg config.CarrierConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		carrier:     carrier,
		baseURL:     baseURL,
		apiKey:      apiKey,
		apiSecret:   strings.TrimSpace(cfg.APISecret),
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		http:        &http.Client{Timeout: timeout},
		logger:      logg,
	}

	logg.Info(logg.WithCarrier(ctx, carrier.String()), "gateway client initialized")
	return c, nil
}

// Carrier reports which operator this client is bound to.
func (c *Client) Carrier() enums.Carrier {
	if c == nil {
		return enums.CarrierUnknown
	}
	return c.carrier
}

// RequestToPayParams starts a collection against a subscriber wallet.
type RequestToPayParams struct {
	ReferenceNumber string
	PhoneNumber     string
	Amount          string
	Currency        string
	PayerMessage    string
}

// RequestToPayResult is the carrier acknowledgement of a collection request.
type RequestToPayResult struct {
	ProviderTransactionID string
	Status                string
}

// TransactionStatus is the carrier view of an in-flight collection.
type TransactionStatus struct {
	Status                 string
	ProviderTransactionID  string
	FinancialTransactionID string
	ErrorCode              string
	Reason                 string
}

type requestToPayBody struct {
	ExternalID   string `json:"external_id"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	PhoneNumber  string `json:"phone_number"`
	PayerMessage string `json:"payer_message,omitempty"`
	CallbackURL  string `json:"callback_url,omitempty"`
}

type requestToPayResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type transactionStatusResponse struct {
	Status                 string `json:"status"`
	TransactionID          string `json:"transaction_id"`
	FinancialTransactionID string `json:"financial_transaction_id"`
	ErrorCode              string `json:"error_code"`
	Reason                 string `json:"reason"`
}

type cancelBody struct {
	Reason string `json:"reason,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RequestToPay submits a collection request. The call is NOT retried on
// transport failure: the carrier may have accepted the first attempt.
func (c *Client) RequestToPay(ctx context.Context, params RequestToPayParams) (*RequestToPayResult, error) {
	body := requestToPayBody{
		ExternalID:   params.ReferenceNumber,
		Amount:       params.Amount,
		Currency:     params.Currency,
		PhoneNumber:  params.PhoneNumber,
		PayerMessage: params.PayerMessage,
		CallbackURL:  c.callbackURL,
	}
	c.log(ctx, "request", "request_to_pay", map[string]any{
		"external_id": params.ReferenceNumber,
		"amount":      params.Amount,
	})

	var out requestToPayResponse
	if err := c.do(ctx, http.MethodPost, "/collections/request-to-pay", body, &out); err != nil {
		return nil, err
	}
	return &RequestToPayResult{
		ProviderTransactionID: out.TransactionID,
		Status:                out.Status,
	}, nil
}

// TransactionStatus fetches the current carrier status for a reference. The
// read is idempotent, so transient failures are retried with backoff.
func (c *Client) TransactionStatus(ctx context.Context, referenceNumber string) (*TransactionStatus, error) {
	path := fmt.Sprintf("/collections/%s/status", referenceNumber)

	var out transactionStatusResponse
	backoff := retry.WithMaxRetries(transientRetryMax, retry.NewFibonacci(transientRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &TransactionStatus{
		Status:                 out.Status,
		ProviderTransactionID:  out.TransactionID,
		FinancialTransactionID: out.FinancialTransactionID,
		ErrorCode:              out.ErrorCode,
		Reason:                 out.Reason,
	}, nil
}

// CancelTransaction asks the carrier to void an unconfirmed collection.
func (c *Client) CancelTransaction(ctx context.Context, referenceNumber, reason string) error {
	path := fmt.Sprintf("/collections/%s/cancel", referenceNumber)
	c.log(ctx, "request", "cancel_transaction", map[string]any{
		"external_id": referenceNumber,
	})
	return c.do(ctx, http.MethodPost, path, cancelBody{Reason: reason}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.apiSecret != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiSecret)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var parsed errorResponse
		_ = json.Unmarshal(raw, &parsed)
		if parsed.Message == "" {
			parsed.Message = http.StatusText(resp.StatusCode)
		}
		return &StatusError{
			HTTPStatus: resp.StatusCode,
			Code:       parsed.Code,
			Message:    parsed.Message,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatus >= 500
	}
	// Transport-level failures have no status attached.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) log(ctx context.Context, direction, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	merged := map[string]any{
		"carrier":   c.carrier.String(),
		"direction": direction,
		"operation": operation,
	}
	for k, v := range fields {
		merged[k] = v
	}
	c.logger.Info(c.logger.WithFields(ctx, merged), "gateway call")
}
