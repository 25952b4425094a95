package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"paydirekt-gateway/internal/config"
	"paydirekt-gateway/internal/model"
)

type CreateCheckoutRequest struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ReferenceNumber string          `json:"reference_number"`
	PaymentType     string          `json:"payment_type"`
	CurrencyCode    string          `json:"currency_code,omitempty"`

	SuccessURL      string `json:"success_url,omitempty"`
	CancellationURL string `json:"cancellation_url,omitempty"`
	RejectionURL    string `json:"rejection_url,omitempty"`
	NotificationURL string `json:"notification_url,omitempty"`

	Overcapture  bool   `json:"overcapture,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	Note         string `json:"note,omitempty"`

	ShippingAmount *decimal.Decimal `json:"shipping_amount,omitempty"`
	OrderAmount    *decimal.Decimal `json:"order_amount,omitempty"`

	ShoppingCartType    string           `json:"shopping_cart_type,omitempty"`
	ShippingAddress     map[string]any   `json:"shipping_address,omitempty"`
	DeliveryInformation map[string]any   `json:"delivery_information,omitempty"`
	DeliveryType        string           `json:"delivery_type,omitempty"`
	Items               []map[string]any `json:"items,omitempty"`

	InvoiceReferenceNumber        string `json:"invoice_reference_number,omitempty"`
	ReconciliationReferenceNumber string `json:"reconciliation_reference_number,omitempty"`
	CustomerNumber                string `json:"customer_number,omitempty"`

	MinimumAge        int    `json:"minimum_age,omitempty"`
	MinimumAgeFailURL string `json:"minimum_age_fail_url,omitempty"`

	Express              bool   `json:"express,omitempty"`
	ShippingTermsURL     string `json:"shipping_terms_url,omitempty"`
	CheckDestinationsURL string `json:"check_destinations_url,omitempty"`
}

type CreateCaptureRequest struct {
	Amount                        decimal.Decimal `json:"amount"`
	Note                          string          `json:"note,omitempty"`
	Final                         bool            `json:"final,omitempty"`
	ReferenceNumber               string          `json:"reference_number,omitempty"`
	ReconciliationReferenceNumber string          `json:"reconciliation_reference_number,omitempty"`
	InvoiceReferenceNumber        string          `json:"invoice_reference_number,omitempty"`
	NotificationURL               string          `json:"notification_url,omitempty"`
	DeliveryInformation           map[string]any  `json:"delivery_information,omitempty"`
}

type CreateRefundRequest struct {
	Amount                        decimal.Decimal `json:"amount"`
	Note                          string          `json:"note,omitempty"`
	Reason                        string          `json:"reason,omitempty"`
	ReferenceNumber               string          `json:"reference_number,omitempty"`
	ReconciliationReferenceNumber string          `json:"reconciliation_reference_number,omitempty"`
}

type CheckoutResponse struct {
	CheckoutID   string          `json:"checkout_id"`
	PaymentType  string          `json:"payment_type"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       string          `json:"status"`
	Link         string          `json:"link"`
	ApproveLink  string          `json:"approve_link"`
	CloseLink    string          `json:"close_link,omitempty"`
	CapturesLink string          `json:"captures_link,omitempty"`
	RefundsLink  string          `json:"refunds_link,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func NewCheckoutResponse(checkout *model.Checkout) *CheckoutResponse {
	return &CheckoutResponse{
		CheckoutID:   checkout.CheckoutID,
		PaymentType:  checkout.PaymentType,
		TotalAmount:  checkout.TotalAmount,
		Status:       checkout.Status,
		Link:         checkout.Link,
		ApproveLink:  checkout.ApproveLink,
		CloseLink:    checkout.CloseLink,
		CapturesLink: checkout.CapturesLink,
		RefundsLink:  checkout.RefundsLink,
		CreatedAt:    checkout.CreatedAt,
		UpdatedAt:    checkout.UpdatedAt,
	}
}

type TransactionResponse struct {
	TransactionID string          `json:"transaction_id"`
	CheckoutID    string          `json:"checkout_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Type          string          `json:"type,omitempty"`
	Final         bool            `json:"final,omitempty"`
	Link          string          `json:"link"`
}

func NewCaptureResponse(capture *model.Capture) *TransactionResponse {
	return &TransactionResponse{
		TransactionID: capture.TransactionID,
		CheckoutID:    capture.CheckoutID,
		Amount:        capture.Amount,
		Status:        capture.Status,
		Type:          capture.CaptureType,
		Final:         capture.Final,
		Link:          capture.Link,
	}
}

func NewRefundResponse(refund *model.Refund) *TransactionResponse {
	return &TransactionResponse{
		TransactionID: refund.TransactionID,
		CheckoutID:    refund.CheckoutID,
		Amount:        refund.Amount,
		Status:        refund.Status,
		Type:          refund.RefundType,
		Link:          refund.Link,
	}
}

// CheckedDestination reports express-checkout eligibility for one address.
type CheckedDestination struct {
	ID                       string                  `json:"id"`
	ValidBillingDestination  bool                    `json:"validBillingDestination"`
	ValidShippingDestination bool                    `json:"validShippingDestination"`
	ShippingOptions          []config.ShippingOption `json:"shippingOptions,omitempty"`
}

type CheckedDestinationsResponse struct {
	CheckedDestinations []CheckedDestination `json:"checkedDestinations"`
	Links               model.HALLinks       `json:"_links"`
}
