package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Checkout mirrors one payment session at paydirekt. The processor-assigned
// checkout id is the primary key; close/captures/refunds links stay empty
// until a refresh surfaces them from the processor response.
type Checkout struct {
	CheckoutID  string          `gorm:"primaryKey;size:64;not null"`
	PaymentType string          `gorm:"size:32;not null"` // DIRECT_SALE, ORDER
	TotalAmount decimal.Decimal `gorm:"type:decimal(9,2);not null"`
	Status      string          `gorm:"size:32;index"` // OPEN, PENDING, APPROVED, REJECTED, CANCELED, CLOSED, EXPIRED

	Link         string `gorm:"size:512;not null"`
	ApproveLink  string `gorm:"size:512"`
	CloseLink    string `gorm:"size:512"`
	CapturesLink string `gorm:"size:512"`
	RefundsLink  string `gorm:"size:512"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Capture is a partial or final charge against an approved checkout.
type Capture struct {
	TransactionID string `gorm:"primaryKey;size:64;not null"`
	// FK -> checkout.checkout_id
	CheckoutID  string          `gorm:"size:64;index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(9,2);not null"`
	Final       bool            `gorm:"not null;default:false"`
	Link        string          `gorm:"size:512;not null"`
	Status      string          `gorm:"size:32;index"` // PENDING, SUCCESSFUL, REJECTED, ERROR, FAILED
	CaptureType string          `gorm:"size:32"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Refund is money returned against a checkout's captured amount.
type Refund struct {
	TransactionID string `gorm:"primaryKey;size:64;not null"`
	// FK -> checkout.checkout_id
	CheckoutID string          `gorm:"size:64;index;not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(9,2);not null"`
	Link       string          `gorm:"size:512;not null"`
	Status     string          `gorm:"size:32;index"` // PENDING, SUCCESSFUL, ERROR, FAILED
	RefundType string          `gorm:"size:32"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
