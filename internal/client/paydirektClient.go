package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paydirekt-gateway/internal/config"
	"paydirekt-gateway/internal/model"
)

func init() {
	// paydirekt expects monetary values as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	// ErrAmountMismatch reports a processor response whose echoed amount does
	// not exactly equal the requested amount. Nothing may be persisted then.
	ErrAmountMismatch = errors.New("response amount does not match requested amount")

	// ErrInvalidPaymentType reports a payment type outside DIRECT_SALE/ORDER.
	ErrInvalidPaymentType = errors.New("unsupported payment type")

	// ErrMissingShippingAddress reports a non-express cart without a shipping
	// address or an exempting shopping cart type.
	ErrMissingShippingAddress = errors.New("shipping address required for this cart type")
)

// APIError is a non-2xx processor response. It never propagates as a panic;
// callers treat it as "operation did not take effect".
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paydirekt error %d (%s): %s", e.StatusCode, e.Status, e.Body)
}

// PaydirektClient is all outbound interaction with the processor. Fetch and
// Post form the narrow port the lifecycle service depends on, so tests can
// substitute a double without a network.
type PaydirektClient interface {
	ObtainAccessToken(ctx context.Context) (token string, expiresIn int, err error)
	Fetch(ctx context.Context, url string) (json.RawMessage, error)
	Post(ctx context.Context, url string, body any) (json.RawMessage, error)
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*model.CheckoutResponse, error)
	Transactions(ctx context.Context, filters *TransactionFilters) ([]json.RawMessage, error)
}

type paydirektClientImpl struct {
	httpClient *http.Client
	signer     *Signer
	cfg        *config.Paydirekt
	baseURL    string
	logger     *slog.Logger
}

func NewPaydirektClient(cfg *config.Paydirekt, logger *slog.Logger) (PaydirektClient, error) {
	signer, err := NewSigner(cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("new signer: %w", err)
	}

	return &paydirektClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer:  signer,
		cfg:     cfg,
		baseURL: cfg.BaseURL(),
		logger:  logger,
	}, nil
}

func (c *paydirektClientImpl) ObtainAccessToken(ctx context.Context) (string, int, error) {
	now := time.Now()
	requestID := c.signer.RequestID()
	nonce, err := c.signer.Nonce(defaultNonceLength)
	if err != nil {
		return "", 0, err
	}
	signature := c.signer.Sign(requestID, c.signer.SecretTime(now), nonce)

	body, err := json.Marshal(map[string]string{
		"grantType":   "api_key",
		"randomNonce": nonce,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal token payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+c.cfg.TokenObtainURL, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("new token request: %w", err)
	}
	req.Header.Set("X-Date", c.signer.HeaderTime(now))
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("X-Auth-Key", c.cfg.APIKey)
	req.Header.Set("X-Auth-Code", signature)
	req.Header.Set("Content-Type", "application/hal+json;charset=utf-8")
	req.Header.Set("Accept", "application/hal+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("obtain access token: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, c.cfg.TokenObtainURL); err != nil {
		return "", 0, err
	}

	var token model.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	return token.AccessToken, token.ExpiresIn, nil
}

// Fetch GETs url with a fresh bearer token and returns the decoded body.
func (c *paydirektClientImpl) Fetch(ctx context.Context, url string) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, url, nil)
}

// Post sends body as hal+json. A nil body still issues a POST with a
// zero-length payload; the close-checkout action depends on that.
func (c *paydirektClientImpl) Post(ctx context.Context, url string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request payload: %w", err)
		}
	}
	return c.call(ctx, http.MethodPost, url, payload)
}

func (c *paydirektClientImpl) call(ctx context.Context, method, url string, payload []byte) (json.RawMessage, error) {
	if !strings.HasPrefix(strings.ToLower(url), "http") {
		url = c.baseURL + url
	}

	token, _, err := c.ObtainAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/hal+json;charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", url, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, url); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return json.RawMessage(raw), nil
}

func (c *paydirektClientImpl) checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
	c.logger.Error("paydirekt error",
		"url", url,
		"status_code", resp.StatusCode,
		"status", resp.Status,
		"body", string(body))
	return apiErr
}

// CheckoutRequest carries everything a checkout creation may send. Optional
// fields are added to the payload only when set.
type CheckoutRequest struct {
	TotalAmount     decimal.Decimal
	ReferenceNumber string
	PaymentType     string
	CurrencyCode    string

	SuccessURL      string
	CancellationURL string
	RejectionURL    string
	NotificationURL string

	Overcapture  bool
	EmailAddress string
	Note         string

	ShippingAmount *decimal.Decimal
	OrderAmount    *decimal.Decimal

	ShoppingCartType    string
	ShippingAddress     map[string]any
	DeliveryInformation map[string]any
	DeliveryType        string
	Items               []map[string]any

	InvoiceReferenceNumber        string
	ReconciliationReferenceNumber string
	CustomerNumber                string

	MinimumAge        int
	MinimumAgeFailURL string

	Express              bool
	ShippingTermsURL     string
	CheckDestinationsURL string
}

func (c *paydirektClientImpl) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*model.CheckoutResponse, error) {
	if req.PaymentType != "DIRECT_SALE" && req.PaymentType != "ORDER" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentType, req.PaymentType)
	}

	currency := req.CurrencyCode
	if currency == "" {
		currency = "EUR"
	}

	data := map[string]any{
		"type":                         req.PaymentType,
		"totalAmount":                  req.TotalAmount,
		"currency":                     currency,
		"merchantOrderReferenceNumber": req.ReferenceNumber,
		"redirectUrlAfterSuccess":      c.cfg.FullURL(c.orDefault(req.SuccessURL, c.cfg.SuccessURL)),
		"redirectUrlAfterCancellation": c.cfg.FullURL(c.orDefault(req.CancellationURL, c.cfg.CancellationURL)),
		"redirectUrlAfterRejection":    c.cfg.FullURL(c.orDefault(req.RejectionURL, c.cfg.RejectionURL)),
		"overcapture":                  req.Overcapture,
	}

	if req.Express {
		data["express"] = true
		data["callbackUrlCheckDestinations"] = c.cfg.FullURL(c.orDefault(req.CheckDestinationsURL, c.cfg.NotificationURL))
		data["webUrlShippingTerms"] = c.cfg.FullURL(c.orDefault(req.ShippingTermsURL, c.cfg.ShippingTermsURL))
	} else {
		exempt := req.ShoppingCartType == "ANONYMOUS_DONATION" || req.ShoppingCartType == "AUTHORITIES_PAYMENT"
		if !exempt && req.ShippingAddress == nil {
			return nil, ErrMissingShippingAddress
		}
		if req.ShippingAddress != nil {
			data["shippingAddress"] = req.ShippingAddress
		}
		if req.DeliveryInformation != nil {
			data["deliveryInformation"] = req.DeliveryInformation
		}
	}

	data["callbackUrlStatusUpdates"] = c.cfg.FullURL(c.orDefault(req.NotificationURL, c.cfg.NotificationURL))

	if req.Note != "" {
		data["note"] = req.Note
	}
	if len(req.Items) > 0 {
		data["items"] = req.Items
	}
	if req.ShippingAmount != nil {
		data["shippingAmount"] = req.ShippingAmount
	}
	if req.OrderAmount != nil {
		data["orderAmount"] = req.OrderAmount
	}
	if req.ShoppingCartType != "" {
		data["shoppingCartType"] = req.ShoppingCartType
	}
	if req.DeliveryType != "" {
		data["deliveryType"] = req.DeliveryType
	}
	if req.InvoiceReferenceNumber != "" {
		data["merchantInvoiceReferenceNumber"] = req.InvoiceReferenceNumber
	}
	if req.ReconciliationReferenceNumber != "" {
		data["merchantReconciliationReferenceNumber"] = req.ReconciliationReferenceNumber
	}
	if req.MinimumAge > 0 && req.MinimumAgeFailURL != "" {
		data["minimumAge"] = req.MinimumAge
		data["redirectUrlAfterAgeVerificationFailure"] = c.cfg.FullURL(req.MinimumAgeFailURL)
	}
	if req.CustomerNumber != "" {
		data["merchantCustomerNumber"] = req.CustomerNumber
	}
	if req.EmailAddress != "" {
		// never transmitted in cleartext
		sum := sha256.Sum256([]byte(req.EmailAddress))
		data["sha256hashedEmailAddress"] = base64.StdEncoding.EncodeToString(sum[:])
	}

	raw, err := c.Post(ctx, c.cfg.CheckoutsURL, data)
	if err != nil {
		return nil, err
	}

	var checkout model.CheckoutResponse
	if err := json.Unmarshal(raw, &checkout); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	if !checkout.TotalAmount.Equal(req.TotalAmount) {
		c.logger.Error("checkout amount mismatch",
			"requested", req.TotalAmount.String(),
			"echoed", checkout.TotalAmount.String())
		return nil, ErrAmountMismatch
	}
	return &checkout, nil
}

// TransactionFilters narrows the settlement report; zero values are omitted.
type TransactionFilters struct {
	From                     *time.Time
	To                       *time.Time
	Fields                   []string
	ReconciliationReferences []string
	PaymentInformationIDs    []string
	MerchantReferenceNumbers []string
	CheckoutInvoiceNumbers   []string
	CaptureInvoiceNumbers    []string
}

func (c *paydirektClientImpl) Transactions(ctx context.Context, filters *TransactionFilters) ([]json.RawMessage, error) {
	data := map[string]any{}
	if filters != nil {
		if filters.From != nil {
			data["from"] = filters.From.UTC().Format(time.RFC3339)
		}
		if filters.To != nil {
			data["to"] = filters.To.UTC().Format(time.RFC3339)
		}
		if len(filters.Fields) > 0 {
			data["fields"] = filters.Fields
		}
		if len(filters.ReconciliationReferences) > 0 {
			data["reconciliationReferences"] = filters.ReconciliationReferences
		}
		if len(filters.PaymentInformationIDs) > 0 {
			data["paymentInformationIds"] = filters.PaymentInformationIDs
		}
		if len(filters.MerchantReferenceNumbers) > 0 {
			data["merchantReferenceNumbers"] = filters.MerchantReferenceNumbers
		}
		if len(filters.CheckoutInvoiceNumbers) > 0 {
			data["checkoutInvoiceNumbers"] = filters.CheckoutInvoiceNumbers
		}
		if len(filters.CaptureInvoiceNumbers) > 0 {
			data["captureInvoiceNumbers"] = filters.CaptureInvoiceNumbers
		}
	}

	// without filters the report endpoint is a plain GET
	var raw json.RawMessage
	var err error
	if len(data) > 0 {
		raw, err = c.Post(ctx, c.cfg.TransactionsURL, data)
	} else {
		raw, err = c.Fetch(ctx, c.cfg.TransactionsURL)
	}
	if err != nil {
		return nil, err
	}

	var report model.TransactionsReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode transactions report: %w", err)
	}
	if report.Transactions == nil {
		return nil, fmt.Errorf("transactions missing in report response")
	}
	return report.Transactions, nil
}

func (c *paydirektClientImpl) orDefault(url, fallback string) string {
	if url == "" {
		return fallback
	}
	return url
}
