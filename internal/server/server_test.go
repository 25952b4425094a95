package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"paydirekt-gateway/internal/client"
	"paydirekt-gateway/internal/dto"
	"paydirekt-gateway/internal/model"
)

// stubService satisfies service.PaydirektService for routing and auth tests;
// only the calls a test overrides matter.
type stubService struct {
	createCheckoutFn     func(req *dto.CreateCheckoutRequest) (*model.Checkout, error)
	getCheckoutFn        func(checkoutID string) (*model.Checkout, error)
	createCaptureFn      func(checkoutID string, req *dto.CreateCaptureRequest) (*model.Capture, error)
	handleNotificationFn func(body []byte) (int, any)
}

func (s *stubService) CreateCheckout(ctx context.Context, req *dto.CreateCheckoutRequest) (*model.Checkout, error) {
	return s.createCheckoutFn(req)
}

func (s *stubService) GetCheckout(ctx context.Context, checkoutID string) (*model.Checkout, error) {
	return s.getCheckoutFn(checkoutID)
}

func (s *stubService) RefreshCheckout(ctx context.Context, checkoutID, expectedStatus string) (*model.Checkout, error) {
	return s.getCheckoutFn(checkoutID)
}

func (s *stubService) CloseCheckout(ctx context.Context, checkoutID string) (*model.Checkout, error) {
	return s.getCheckoutFn(checkoutID)
}

func (s *stubService) CreateCapture(ctx context.Context, checkoutID string, req *dto.CreateCaptureRequest) (*model.Capture, error) {
	return s.createCaptureFn(checkoutID, req)
}

func (s *stubService) CreateRefund(ctx context.Context, checkoutID string, req *dto.CreateRefundRequest) (*model.Refund, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubService) RefreshCapture(ctx context.Context, transactionID, expectedStatus string) (*model.Capture, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubService) RefreshRefund(ctx context.Context, transactionID, expectedStatus string) (*model.Refund, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubService) Transactions(ctx context.Context, filters *client.TransactionFilters) ([]json.RawMessage, error) {
	return nil, nil
}

func (s *stubService) HandleNotification(ctx context.Context, body []byte) (int, any) {
	return s.handleNotificationFn(body)
}

func doRequest(t *testing.T, srv *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestCreateCheckoutRoute(t *testing.T) {
	stub := &stubService{
		createCheckoutFn: func(req *dto.CreateCheckoutRequest) (*model.Checkout, error) {
			return &model.Checkout{
				CheckoutID:  "chk-1",
				PaymentType: req.PaymentType,
				TotalAmount: req.TotalAmount,
				Status:      "OPEN",
				ApproveLink: "https://example.com/checkout/#/chk-1",
			}, nil
		},
	}
	srv := NewServer(stub, "")

	rec := doRequest(t, srv, http.MethodPost, "/api/checkouts",
		`{"total_amount": "15.00", "reference_number": "1", "payment_type": "DIRECT_SALE", "shopping_cart_type": "ANONYMOUS_DONATION"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "chk-1", resp.CheckoutID)
	assert.Equal(t, "OPEN", resp.Status)
	assert.NotEmpty(t, resp.ApproveLink)
}

func TestGetCheckoutNotFound(t *testing.T) {
	stub := &stubService{
		getCheckoutFn: func(checkoutID string) (*model.Checkout, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	srv := NewServer(stub, "")

	rec := doRequest(t, srv, http.MethodGet, "/api/checkouts/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCaptureRouteMapsProcessorRefusal(t *testing.T) {
	stub := &stubService{
		createCaptureFn: func(checkoutID string, req *dto.CreateCaptureRequest) (*model.Capture, error) {
			return nil, client.ErrAmountMismatch
		},
	}
	srv := NewServer(stub, "")

	rec := doRequest(t, srv, http.MethodPost, "/api/checkouts/chk-1/captures",
		`{"amount": "50.00"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	stub := &stubService{
		getCheckoutFn: func(checkoutID string) (*model.Checkout, error) {
			return &model.Checkout{CheckoutID: checkoutID, Status: "OPEN", TotalAmount: decimal.NewFromInt(15)}, nil
		},
	}
	srv := NewServer(stub, "sekrit")

	rec := doRequest(t, srv, http.MethodGet, "/api/checkouts/chk-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/checkouts/chk-1", "", map[string]string{"X-Api-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/checkouts/chk-1", "", map[string]string{"X-Api-Key": "sekrit"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthIsUnauthenticated(t *testing.T) {
	srv := NewServer(&stubService{}, "sekrit")

	rec := doRequest(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotifyRoute(t *testing.T) {
	var seen []byte
	stub := &stubService{
		handleNotificationFn: func(body []byte) (int, any) {
			seen = body
			return http.StatusOK, nil
		},
	}
	srv := NewServer(stub, "sekrit")

	// processor callbacks carry no merchant API key
	payload := `{"checkoutId": "chk-1", "merchantOrderReferenceNumber": "1", "checkoutStatus": "APPROVED"}`
	rec := doRequest(t, srv, http.MethodPost, "/notify/", payload, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, payload, string(seen))
}

func TestNotifyRejectsGet(t *testing.T) {
	srv := NewServer(&stubService{}, "")

	rec := doRequest(t, srv, http.MethodGet, "/notify/", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNotifyReturnsDestinationBody(t *testing.T) {
	stub := &stubService{
		handleNotificationFn: func(body []byte) (int, any) {
			return http.StatusOK, &dto.CheckedDestinationsResponse{
				CheckedDestinations: []dto.CheckedDestination{
					{ID: "dest-1", ValidBillingDestination: true, ValidShippingDestination: true},
				},
				Links: model.HALLinks{"self": {Href: "https://shop.example.com/notify/"}},
			}
		},
	}
	srv := NewServer(stub, "")

	rec := doRequest(t, srv, http.MethodPost, "/notify/", `{"destinations": []}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.CheckedDestinationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.CheckedDestinations, 1)
	assert.True(t, resp.CheckedDestinations[0].ValidBillingDestination)
	assert.Equal(t, "https://shop.example.com/notify/", resp.Links.Href("self"))
}
