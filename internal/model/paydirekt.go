package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// HALLink is one entry of a paydirekt `_links` map.
type HALLink struct {
	Href string `json:"href"`
}

type HALLinks map[string]HALLink

// Href returns the hyperlink for rel, or "" when the response did not carry it.
func (l HALLinks) Href(rel string) string {
	return l[rel].Href
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

type CheckoutResponse struct {
	CheckoutID  string          `json:"checkoutId"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Currency    string          `json:"currency"`
	Links       HALLinks        `json:"_links"`
}

// TransactionResponse covers both capture and refund resources; the processor
// reports them with the same shape apart from the type value.
type TransactionResponse struct {
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Type          string          `json:"type"`
	Links         HALLinks        `json:"_links"`
}

type TransactionsReport struct {
	Transactions []json.RawMessage `json:"transactions"`
}

// Notification is the inbound webhook payload. Pointer fields distinguish
// "absent" from "zero" so the handler can branch on presence.
type Notification struct {
	CheckoutID                   string `json:"checkoutId"`
	MerchantOrderReferenceNumber string `json:"merchantOrderReferenceNumber"`
	CheckoutStatus               string `json:"checkoutStatus"`

	TransactionID string `json:"transactionId"`
	CaptureStatus string `json:"captureStatus"`

	OrderAmount  *decimal.Decimal `json:"orderAmount"`
	Destinations []Destination    `json:"destinations"`
}

// Destination is one shipping address candidate of an express checkout.
type Destination struct {
	ID             string `json:"id"`
	CountryCode    string `json:"countryCode"`
	Zip            string `json:"zip"`
	DHLPackstation *bool  `json:"dhlPackstation"`
}
