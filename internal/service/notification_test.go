package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydirekt-gateway/internal/dto"
	"paydirekt-gateway/internal/model"
)

func TestNotificationRejectsInvalidJSON(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	status, body := env.svc.HandleNotification(context.Background(), []byte("not json"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Nil(t, body)
}

func TestNotificationRequiresCheckoutIDAndOrderReference(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})

	status, _ := env.svc.HandleNotification(context.Background(), []byte(`{"merchantOrderReferenceNumber": "1"}`))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.svc.HandleNotification(context.Background(), []byte(`{"checkoutId": "chk-1", "checkoutStatus": "APPROVED"}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNotificationAcceptsEmptyOrderReference(t *testing.T) {
	stub := &stubProcessor{
		fetchFn: func(url string) (json.RawMessage, error) {
			return json.RawMessage(`{"status": "APPROVED", "_links": {"self": {"href": "x"}}}`), nil
		},
	}
	env := newTestEnv(t, stub)
	seedCheckout(t, env, &model.Checkout{CheckoutID: "chk-1", PaymentType: "DIRECT_SALE", TotalAmount: decimal.NewFromInt(15), Status: "OPEN"})

	// the key must be present, its value may be empty
	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "chk-1", "merchantOrderReferenceNumber": "", "checkoutStatus": "APPROVED"}`))
	assert.Equal(t, http.StatusOK, status)
}

func TestCheckoutNotificationUpdatesStatus(t *testing.T) {
	stub := &stubProcessor{
		fetchFn: func(url string) (json.RawMessage, error) {
			return json.RawMessage(`{
				"status": "APPROVED",
				"_links": {
					"self": {"href": "https://api.example.com/checkouts/chk-2"},
					"captures": {"href": "https://api.example.com/checkouts/chk-2/captures"}
				}
			}`), nil
		},
	}
	env := newTestEnv(t, stub)
	seedCheckout(t, env, &model.Checkout{CheckoutID: "chk-2", PaymentType: "ORDER", TotalAmount: decimal.NewFromInt(100), Status: "OPEN"})

	status, body := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "chk-2", "merchantOrderReferenceNumber": "1", "checkoutStatus": "APPROVED"}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, body)

	stored, err := env.checkoutRepo.FindByCheckoutID(context.Background(), "chk-2")
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", stored.Status)
	assert.NotEmpty(t, stored.CapturesLink)
}

func TestCheckoutNotificationUnknownCheckout(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "missing", "merchantOrderReferenceNumber": "1", "checkoutStatus": "APPROVED"}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCheckoutNotificationRejectsUnacceptedStatus(t *testing.T) {
	stub := &stubProcessor{
		fetchFn: func(url string) (json.RawMessage, error) {
			return json.RawMessage(`{"status": "EXPIRED", "_links": {}}`), nil
		},
	}
	env := newTestEnv(t, stub)
	seedCheckout(t, env, &model.Checkout{CheckoutID: "chk-3", PaymentType: "DIRECT_SALE", TotalAmount: decimal.NewFromInt(15), Status: "OPEN"})

	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "chk-3", "merchantOrderReferenceNumber": "1", "checkoutStatus": "EXPIRED"}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCaptureNotificationUpdatesStatus(t *testing.T) {
	stub := &stubProcessor{
		fetchFn: func(url string) (json.RawMessage, error) {
			return json.RawMessage(`{"transactionId": "tx-1", "amount": 50, "status": "SUCCESSFUL"}`), nil
		},
	}
	env := newTestEnv(t, stub)
	seedCheckout(t, env, &model.Checkout{CheckoutID: "chk-4", PaymentType: "ORDER", TotalAmount: decimal.NewFromInt(100), Status: "APPROVED"})
	require.NoError(t, env.captureRepo.Create(context.Background(), &model.Capture{
		TransactionID: "tx-1",
		CheckoutID:    "chk-4",
		Amount:        decimal.NewFromInt(50),
		Link:          "https://api.example.com/captures/tx-1",
		Status:        "PENDING",
	}))

	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "chk-4", "merchantOrderReferenceNumber": "1", "transactionId": "tx-1", "captureStatus": "SUCCESSFUL"}`))
	assert.Equal(t, http.StatusOK, status)

	stored, err := env.captureRepo.FindByTransactionID(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESSFUL", stored.Status)
}

func TestCaptureNotificationRequiresCaptureStatus(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "chk-4", "merchantOrderReferenceNumber": "1", "transactionId": "tx-1"}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCaptureNotificationRequiresKnownCheckout(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	// the capture exists but its checkout row does not
	require.NoError(t, env.captureRepo.Create(context.Background(), &model.Capture{
		TransactionID: "tx-orphan",
		CheckoutID:    "missing",
		Amount:        decimal.NewFromInt(50),
		Status:        "PENDING",
	}))

	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "missing", "merchantOrderReferenceNumber": "1", "transactionId": "tx-orphan", "captureStatus": "SUCCESSFUL"}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCaptureNotificationUnknownCapture(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	seedCheckout(t, env, &model.Checkout{CheckoutID: "chk-5", PaymentType: "ORDER", TotalAmount: decimal.NewFromInt(100), Status: "APPROVED"})

	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "chk-5", "merchantOrderReferenceNumber": "1", "transactionId": "missing", "captureStatus": "SUCCESSFUL"}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDestinationCheckDefaults(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})

	packstation := false
	payload, err := json.Marshal(map[string]any{
		"checkoutId":                   "chk-6",
		"merchantOrderReferenceNumber": "1",
		"orderAmount":                  "25.00",
		"destinations": []model.Destination{
			{ID: "dest-1", CountryCode: "DE", Zip: "90402", DHLPackstation: &packstation},
		},
	})
	require.NoError(t, err)

	status, body := env.svc.HandleNotification(context.Background(), payload)
	require.Equal(t, http.StatusOK, status)

	resp, ok := body.(*dto.CheckedDestinationsResponse)
	require.True(t, ok)
	require.Len(t, resp.CheckedDestinations, 1)
	dest := resp.CheckedDestinations[0]
	assert.Equal(t, "dest-1", dest.ID)
	assert.True(t, dest.ValidBillingDestination)
	assert.True(t, dest.ValidShippingDestination)
	assert.NotEmpty(t, dest.ShippingOptions)
	assert.Equal(t, "https://shop.example.com/notify/", resp.Links.Href("self"))
}

func TestDestinationCheckForeignCountry(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})

	packstation := false
	payload, err := json.Marshal(map[string]any{
		"checkoutId":                   "chk-7",
		"merchantOrderReferenceNumber": "1",
		"orderAmount":                  "25.00",
		"destinations": []model.Destination{
			{ID: "dest-1", CountryCode: "AT", Zip: "1010", DHLPackstation: &packstation},
		},
	})
	require.NoError(t, err)

	status, body := env.svc.HandleNotification(context.Background(), payload)
	require.Equal(t, http.StatusOK, status)

	resp := body.(*dto.CheckedDestinationsResponse)
	dest := resp.CheckedDestinations[0]
	assert.False(t, dest.ValidBillingDestination)
	assert.False(t, dest.ValidShippingDestination)
	assert.Empty(t, dest.ShippingOptions)
}

func TestDestinationCheckPackstationPolicy(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	env.cfg.ValidPackstation = false

	packstation := true
	payload, err := json.Marshal(map[string]any{
		"checkoutId":                   "chk-8",
		"merchantOrderReferenceNumber": "1",
		"orderAmount":                  "25.00",
		"destinations": []model.Destination{
			{ID: "dest-1", CountryCode: "DE", Zip: "90402", DHLPackstation: &packstation},
		},
	})
	require.NoError(t, err)

	status, body := env.svc.HandleNotification(context.Background(), payload)
	require.Equal(t, http.StatusOK, status)

	resp := body.(*dto.CheckedDestinationsResponse)
	dest := resp.CheckedDestinations[0]
	assert.True(t, dest.ValidBillingDestination)
	assert.False(t, dest.ValidShippingDestination)
}

func TestDestinationCheckZipPatterns(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	env.cfg.ValidZipCodes = []string{"90*", "10115"}

	packstation := false
	cases := []struct {
		zip  string
		want bool
	}{
		{"90402", true},
		{"10115", true},
		{"80331", false},
	}
	for _, tc := range cases {
		payload, err := json.Marshal(map[string]any{
			"checkoutId":                   "chk-9",
			"merchantOrderReferenceNumber": "1",
			"orderAmount":                  "25.00",
			"destinations": []model.Destination{
				{ID: "dest-1", CountryCode: "DE", Zip: tc.zip, DHLPackstation: &packstation},
			},
		})
		require.NoError(t, err)

		status, body := env.svc.HandleNotification(context.Background(), payload)
		require.Equal(t, http.StatusOK, status)
		resp := body.(*dto.CheckedDestinationsResponse)
		assert.Equal(t, tc.want, resp.CheckedDestinations[0].ValidShippingDestination, "zip %s", tc.zip)
	}
}

func TestDestinationCheckRequiresOrderAmount(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "chk-10", "merchantOrderReferenceNumber": "1", "destinations": [{"id": "d", "countryCode": "DE", "zip": "90402", "dhlPackstation": false}]}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDestinationCheckRequiresCompleteDestinations(t *testing.T) {
	env := newTestEnv(t, &stubProcessor{})
	status, _ := env.svc.HandleNotification(context.Background(),
		[]byte(`{"checkoutId": "chk-11", "merchantOrderReferenceNumber": "1", "orderAmount": "25.00", "destinations": [{"id": "d", "countryCode": "DE", "zip": "90402"}]}`))
	assert.Equal(t, http.StatusBadRequest, status)
}
