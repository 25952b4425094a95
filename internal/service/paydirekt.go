package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"paydirekt-gateway/internal/client"
	"paydirekt-gateway/internal/config"
	"paydirekt-gateway/internal/dto"
	"paydirekt-gateway/internal/model"
	"paydirekt-gateway/internal/repository"
)

var (
	// ErrNotCapturable reports a checkout whose captures link has not been
	// surfaced by a refresh yet.
	ErrNotCapturable = errors.New("checkout has no captures link")

	ErrNotRefundable = errors.New("checkout has no refunds link")
	ErrNotClosable   = errors.New("checkout has no close link")

	// ErrStatusMismatch reports a refresh whose expected status did not match
	// the processor's current status. Local state stays untouched.
	ErrStatusMismatch = errors.New("unexpected processor status")

	// ErrNotClosed reports a close call whose response status was not CLOSED.
	ErrNotClosed = errors.New("checkout was not closed by processor")
)

type PaydirektService interface {
	CreateCheckout(ctx context.Context, req *dto.CreateCheckoutRequest) (*model.Checkout, error)
	GetCheckout(ctx context.Context, checkoutID string) (*model.Checkout, error)
	RefreshCheckout(ctx context.Context, checkoutID, expectedStatus string) (*model.Checkout, error)
	CloseCheckout(ctx context.Context, checkoutID string) (*model.Checkout, error)

	CreateCapture(ctx context.Context, checkoutID string, req *dto.CreateCaptureRequest) (*model.Capture, error)
	CreateRefund(ctx context.Context, checkoutID string, req *dto.CreateRefundRequest) (*model.Refund, error)
	RefreshCapture(ctx context.Context, transactionID, expectedStatus string) (*model.Capture, error)
	RefreshRefund(ctx context.Context, transactionID, expectedStatus string) (*model.Refund, error)

	Transactions(ctx context.Context, filters *client.TransactionFilters) ([]json.RawMessage, error)
	HandleNotification(ctx context.Context, body []byte) (int, any)
}

type paydirektServiceImpl struct {
	paydirektClient client.PaydirektClient
	cfg             *config.Paydirekt
	checkoutRepo    repository.CheckoutRepository
	captureRepo     repository.CaptureRepository
	refundRepo      repository.RefundRepository
	logger          *slog.Logger
}

func NewPaydirektService(
	paydirektClient client.PaydirektClient,
	cfg *config.Paydirekt,
	checkoutRepo repository.CheckoutRepository,
	captureRepo repository.CaptureRepository,
	refundRepo repository.RefundRepository,
	logger *slog.Logger,
) PaydirektService {
	return &paydirektServiceImpl{
		paydirektClient: paydirektClient,
		cfg:             cfg,
		checkoutRepo:    checkoutRepo,
		captureRepo:     captureRepo,
		refundRepo:      refundRepo,
		logger:          logger,
	}
}

func (s *paydirektServiceImpl) CreateCheckout(ctx context.Context, req *dto.CreateCheckoutRequest) (*model.Checkout, error) {
	resp, err := s.paydirektClient.CreateCheckout(ctx, &client.CheckoutRequest{
		TotalAmount:                   req.TotalAmount,
		ReferenceNumber:               req.ReferenceNumber,
		PaymentType:                   req.PaymentType,
		CurrencyCode:                  req.CurrencyCode,
		SuccessURL:                    req.SuccessURL,
		CancellationURL:               req.CancellationURL,
		RejectionURL:                  req.RejectionURL,
		NotificationURL:               req.NotificationURL,
		Overcapture:                   req.Overcapture,
		EmailAddress:                  req.EmailAddress,
		Note:                          req.Note,
		ShippingAmount:                req.ShippingAmount,
		OrderAmount:                   req.OrderAmount,
		ShoppingCartType:              req.ShoppingCartType,
		ShippingAddress:               req.ShippingAddress,
		DeliveryInformation:           req.DeliveryInformation,
		DeliveryType:                  req.DeliveryType,
		Items:                         req.Items,
		InvoiceReferenceNumber:        req.InvoiceReferenceNumber,
		ReconciliationReferenceNumber: req.ReconciliationReferenceNumber,
		CustomerNumber:                req.CustomerNumber,
		MinimumAge:                    req.MinimumAge,
		MinimumAgeFailURL:             req.MinimumAgeFailURL,
		Express:                       req.Express,
		ShippingTermsURL:              req.ShippingTermsURL,
		CheckDestinationsURL:          req.CheckDestinationsURL,
	})
	if err != nil {
		return nil, fmt.Errorf("paydirekt create checkout: %w", err)
	}

	checkout := &model.Checkout{
		CheckoutID:  resp.CheckoutID,
		PaymentType: req.PaymentType,
		TotalAmount: req.TotalAmount,
		Status:      resp.Status,
		Link:        resp.Links.Href("self"),
		ApproveLink: resp.Links.Href("approve"),
	}
	if err := s.checkoutRepo.Create(ctx, checkout); err != nil {
		return nil, fmt.Errorf("store checkout: %w", err)
	}
	return checkout, nil
}

func (s *paydirektServiceImpl) GetCheckout(ctx context.Context, checkoutID string) (*model.Checkout, error) {
	return s.checkoutRepo.FindByCheckoutID(ctx, checkoutID)
}

func (s *paydirektServiceImpl) RefreshCheckout(ctx context.Context, checkoutID, expectedStatus string) (*model.Checkout, error) {
	checkout, err := s.checkoutRepo.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshCheckout(ctx, checkout, expectedStatus); err != nil {
		return nil, err
	}
	return checkout, nil
}

// refreshCheckout re-fetches the canonical checkout resource and overwrites
// local state. On any failure the stored entity is left untouched.
func (s *paydirektServiceImpl) refreshCheckout(ctx context.Context, checkout *model.Checkout, expectedStatus string) error {
	raw, err := s.paydirektClient.Fetch(ctx, checkout.Link)
	if err != nil {
		s.logger.Error("checkout link not available", "link", checkout.Link, "error", err)
		return fmt.Errorf("fetch checkout: %w", err)
	}

	var resp model.CheckoutResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode checkout response: %w", err)
	}
	if expectedStatus != "" && expectedStatus != resp.Status {
		s.logger.Error("checkout status mismatch",
			"checkout_id", checkout.CheckoutID,
			"expected", expectedStatus,
			"found", resp.Status)
		return fmt.Errorf("%w: expected %s, found %s", ErrStatusMismatch, expectedStatus, resp.Status)
	}

	checkout.Status = resp.Status
	// links absent from the response stay as stored, they are never cleared
	if href := resp.Links.Href("close"); href != "" {
		checkout.CloseLink = href
	}
	if href := resp.Links.Href("captures"); href != "" {
		checkout.CapturesLink = href
	}
	if href := resp.Links.Href("refunds"); href != "" {
		checkout.RefundsLink = href
	}
	return s.checkoutRepo.Save(ctx, checkout)
}

func (s *paydirektServiceImpl) CloseCheckout(ctx context.Context, checkoutID string) (*model.Checkout, error) {
	checkout, err := s.checkoutRepo.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.CloseLink == "" {
		return nil, ErrNotClosable
	}

	// close is an empty-body POST
	raw, err := s.paydirektClient.Post(ctx, checkout.CloseLink, nil)
	if err != nil {
		return nil, fmt.Errorf("paydirekt close checkout: %w", err)
	}

	var resp model.CheckoutResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode close response: %w", err)
	}
	if resp.Status != "CLOSED" {
		s.logger.Error("close did not yield CLOSED",
			"checkout_id", checkout.CheckoutID, "status", resp.Status)
		return nil, fmt.Errorf("%w: status %s", ErrNotClosed, resp.Status)
	}

	checkout.Status = resp.Status
	if err := s.checkoutRepo.Save(ctx, checkout); err != nil {
		return nil, fmt.Errorf("store checkout: %w", err)
	}
	return checkout, nil
}

func (s *paydirektServiceImpl) CreateCapture(ctx context.Context, checkoutID string, req *dto.CreateCaptureRequest) (*model.Capture, error) {
	checkout, err := s.checkoutRepo.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.CapturesLink == "" {
		return nil, ErrNotCapturable
	}

	data := map[string]any{
		"amount": req.Amount,
	}
	if req.Final {
		data["finalCapture"] = true
	}
	if req.Note != "" {
		data["note"] = req.Note
	}
	if req.ReferenceNumber != "" {
		data["merchantCaptureReferenceNumber"] = req.ReferenceNumber
	}
	if req.ReconciliationReferenceNumber != "" {
		data["merchantReconciliationReferenceNumber"] = req.ReconciliationReferenceNumber
	}
	if req.InvoiceReferenceNumber != "" {
		data["captureInvoiceReferenceNumber"] = req.InvoiceReferenceNumber
	}
	if req.NotificationURL != "" {
		data["callbackUrlStatusUpdates"] = s.cfg.FullURL(req.NotificationURL)
	}
	if req.DeliveryInformation != nil {
		data["deliveryInformation"] = req.DeliveryInformation
	}

	raw, err := s.paydirektClient.Post(ctx, checkout.CapturesLink, data)
	if err != nil {
		return nil, fmt.Errorf("paydirekt create capture: %w", err)
	}

	var resp model.TransactionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode capture response: %w", err)
	}
	if !resp.Amount.Equal(req.Amount) {
		s.logger.Error("capture amount mismatch",
			"checkout_id", checkout.CheckoutID,
			"requested", req.Amount.String(),
			"echoed", resp.Amount.String())
		return nil, client.ErrAmountMismatch
	}

	capture := &model.Capture{
		TransactionID: resp.TransactionID,
		CheckoutID:    checkout.CheckoutID,
		Amount:        req.Amount,
		Final:         req.Final,
		Link:          resp.Links.Href("self"),
		Status:        resp.Status,
		CaptureType:   resp.Type,
	}
	if err := s.captureRepo.Create(ctx, capture); err != nil {
		return nil, fmt.Errorf("store capture: %w", err)
	}
	return capture, nil
}

func (s *paydirektServiceImpl) CreateRefund(ctx context.Context, checkoutID string, req *dto.CreateRefundRequest) (*model.Refund, error) {
	checkout, err := s.checkoutRepo.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.RefundsLink == "" {
		return nil, ErrNotRefundable
	}

	data := map[string]any{
		"amount": req.Amount,
	}
	if req.Note != "" {
		data["note"] = req.Note
	}
	if req.Reason != "" {
		data["reason"] = req.Reason
	}
	if req.ReferenceNumber != "" {
		data["merchantRefundReferenceNumber"] = req.ReferenceNumber
	}
	if req.ReconciliationReferenceNumber != "" {
		data["merchantReconciliationReferenceNumber"] = req.ReconciliationReferenceNumber
	}

	raw, err := s.paydirektClient.Post(ctx, checkout.RefundsLink, data)
	if err != nil {
		return nil, fmt.Errorf("paydirekt create refund: %w", err)
	}

	var resp model.TransactionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode refund response: %w", err)
	}
	if !resp.Amount.Equal(req.Amount) {
		s.logger.Error("refund amount mismatch",
			"checkout_id", checkout.CheckoutID,
			"requested", req.Amount.String(),
			"echoed", resp.Amount.String())
		return nil, client.ErrAmountMismatch
	}

	refund := &model.Refund{
		TransactionID: resp.TransactionID,
		CheckoutID:    checkout.CheckoutID,
		Amount:        req.Amount,
		Link:          resp.Links.Href("self"),
		Status:        resp.Status,
		RefundType:    resp.Type,
	}
	if err := s.refundRepo.Create(ctx, refund); err != nil {
		return nil, fmt.Errorf("store refund: %w", err)
	}
	return refund, nil
}

func (s *paydirektServiceImpl) RefreshCapture(ctx context.Context, transactionID, expectedStatus string) (*model.Capture, error) {
	capture, err := s.captureRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshCapture(ctx, capture, expectedStatus); err != nil {
		return nil, err
	}
	return capture, nil
}

func (s *paydirektServiceImpl) refreshCapture(ctx context.Context, capture *model.Capture, expectedStatus string) error {
	status, err := s.fetchStatus(ctx, capture.Link, expectedStatus, "capture", capture.TransactionID)
	if err != nil {
		return err
	}
	capture.Status = status
	return s.captureRepo.Save(ctx, capture)
}

func (s *paydirektServiceImpl) RefreshRefund(ctx context.Context, transactionID, expectedStatus string) (*model.Refund, error) {
	refund, err := s.refundRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	status, err := s.fetchStatus(ctx, refund.Link, expectedStatus, "refund", refund.TransactionID)
	if err != nil {
		return nil, err
	}
	refund.Status = status
	if err := s.refundRepo.Save(ctx, refund); err != nil {
		return nil, err
	}
	return refund, nil
}

// fetchStatus fetches a capture/refund resource and returns its status,
// enforcing the expected status when one is supplied.
func (s *paydirektServiceImpl) fetchStatus(ctx context.Context, link, expectedStatus, kind, id string) (string, error) {
	raw, err := s.paydirektClient.Fetch(ctx, link)
	if err != nil {
		s.logger.Error(kind+" link not available", "link", link, "error", err)
		return "", fmt.Errorf("fetch %s: %w", kind, err)
	}

	var resp model.TransactionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode %s response: %w", kind, err)
	}
	if expectedStatus != "" && expectedStatus != resp.Status {
		s.logger.Error(kind+" status mismatch",
			"transaction_id", id,
			"expected", expectedStatus,
			"found", resp.Status)
		return "", fmt.Errorf("%w: expected %s, found %s", ErrStatusMismatch, expectedStatus, resp.Status)
	}
	return resp.Status, nil
}

func (s *paydirektServiceImpl) Transactions(ctx context.Context, filters *client.TransactionFilters) ([]json.RawMessage, error) {
	return s.paydirektClient.Transactions(ctx, filters)
}
