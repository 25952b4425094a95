package service

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"paydirekt-gateway/internal/config"
	"paydirekt-gateway/internal/dto"
	"paydirekt-gateway/internal/model"
)

// HandleNotification dispatches one inbound processor callback. It is a pure
// function from the raw payload to (HTTP status, optional response body) so
// the webhook stays testable without a running server. Only the express
// destination check produces a body; every other branch answers 200 or 400
// with none.
func (s *paydirektServiceImpl) HandleNotification(ctx context.Context, body []byte) (int, any) {
	// presence matters: an empty merchantOrderReferenceNumber is accepted,
	// a missing key is not
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		s.logger.Warn("notification is not valid json", "error", err)
		return http.StatusBadRequest, nil
	}
	if _, ok := keys["checkoutId"]; !ok {
		return http.StatusBadRequest, nil
	}
	if _, ok := keys["merchantOrderReferenceNumber"]; !ok {
		return http.StatusBadRequest, nil
	}

	var n model.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return http.StatusBadRequest, nil
	}

	if _, ok := keys["transactionId"]; ok {
		if _, ok := keys["captureStatus"]; !ok {
			return http.StatusBadRequest, nil
		}
		return s.handleCaptureNotification(ctx, &n)
	}
	if _, ok := keys["destinations"]; ok {
		return s.checkDestinations(&n)
	}
	if _, ok := keys["checkoutStatus"]; !ok {
		return http.StatusBadRequest, nil
	}
	return s.handleCheckoutNotification(ctx, &n)
}

func (s *paydirektServiceImpl) handleCaptureNotification(ctx context.Context, n *model.Notification) (int, any) {
	// the checkout lookup precedes the capture lookup
	exists, err := s.checkoutRepo.Exists(ctx, n.CheckoutID)
	if err != nil || !exists {
		return http.StatusBadRequest, nil
	}
	capture, err := s.captureRepo.FindByTransactionID(ctx, n.TransactionID)
	if err != nil {
		return http.StatusBadRequest, nil
	}

	if err := s.refreshCapture(ctx, capture, n.CaptureStatus); err != nil {
		return http.StatusBadRequest, nil
	}
	if !slices.Contains(s.cfg.ValidCaptureStatus, capture.Status) {
		s.logger.Error("capture status not accepted",
			"transaction_id", capture.TransactionID, "status", capture.Status)
		return http.StatusBadRequest, nil
	}
	return http.StatusOK, nil
}

func (s *paydirektServiceImpl) handleCheckoutNotification(ctx context.Context, n *model.Notification) (int, any) {
	checkout, err := s.checkoutRepo.FindByCheckoutID(ctx, n.CheckoutID)
	if err != nil {
		return http.StatusBadRequest, nil
	}

	if err := s.refreshCheckout(ctx, checkout, n.CheckoutStatus); err != nil {
		return http.StatusBadRequest, nil
	}
	if !slices.Contains(s.cfg.ValidCheckoutStatus, checkout.Status) {
		s.logger.Error("checkout status not accepted",
			"checkout_id", checkout.CheckoutID, "status", checkout.Status)
		return http.StatusBadRequest, nil
	}
	return http.StatusOK, nil
}

// checkDestinations answers an express checkout address-validation callback.
// It never touches persisted state.
func (s *paydirektServiceImpl) checkDestinations(n *model.Notification) (int, any) {
	if n.OrderAmount == nil {
		return http.StatusBadRequest, nil
	}

	checked := make([]dto.CheckedDestination, 0, len(n.Destinations))
	for _, d := range n.Destinations {
		if d.ID == "" || d.CountryCode == "" || d.Zip == "" || d.DHLPackstation == nil {
			return http.StatusBadRequest, nil
		}

		countryOK := slices.Contains(s.cfg.ValidCountryCodes, d.CountryCode)
		shippingOK := countryOK &&
			zipAllowed(s.cfg.ValidZipCodes, d.Zip) &&
			(s.cfg.ValidPackstation || !*d.DHLPackstation)

		dest := dto.CheckedDestination{
			ID:                       d.ID,
			ValidBillingDestination:  countryOK,
			ValidShippingDestination: shippingOK,
		}
		if shippingOK {
			dest.ShippingOptions = s.shippingOptions()
		}
		checked = append(checked, dest)
	}

	return http.StatusOK, &dto.CheckedDestinationsResponse{
		CheckedDestinations: checked,
		Links: model.HALLinks{
			"self": {Href: s.cfg.FullURL(s.cfg.NotificationURL)},
		},
	}
}

// zipAllowed matches zip against the configured patterns. A trailing "*" is a
// prefix wildcard, so "90*" covers every Nuremberg-area zip.
func zipAllowed(patterns []string, zip string) bool {
	for _, pattern := range patterns {
		if pattern == "*" {
			return true
		}
		if strings.HasSuffix(pattern, "*") {
			if strings.HasPrefix(zip, strings.TrimSuffix(pattern, "*")) {
				return true
			}
			continue
		}
		if pattern == zip {
			return true
		}
	}
	return false
}

func (s *paydirektServiceImpl) shippingOptions() []config.ShippingOption {
	if len(s.cfg.ShippingOptions) > 0 {
		return s.cfg.ShippingOptions
	}
	return config.DefaultShippingOptions()
}
