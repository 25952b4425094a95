package config

import (
	"encoding/json"
	"strings"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	DatabaseURL string `env:"DATABASE_URL"`

	// Shared secret for merchant API callers; empty disables the guard.
	MerchantAPIKey string `env:"MERCHANT_API_KEY"`

	Paydirekt Paydirekt `envPrefix:"PAYDIREKT_"`
}

type Paydirekt struct {
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	Sandbox   bool   `env:"SANDBOX" envDefault:"true"`

	APIURL          string `env:"API_URL" envDefault:"https://api.paydirekt.de"`
	SandboxAPIURL   string `env:"SANDBOX_API_URL" envDefault:"https://api.sandbox.paydirekt.de"`
	CheckoutsURL    string `env:"CHECKOUTS_URL" envDefault:"/api/checkout/v1/checkouts"`
	TokenObtainURL  string `env:"TOKEN_OBTAIN_URL" envDefault:"/api/merchantintegration/v1/token/obtain"`
	TransactionsURL string `env:"TRANSACTIONS_URL" envDefault:"/api/reporting/v1/reports/transactions"`

	// RootURL expands redirect/callback paths that start with "/".
	RootURL          string `env:"ROOT_URL"`
	SuccessURL       string `env:"SUCCESS_URL" envDefault:"/"`
	CancellationURL  string `env:"CANCELLATION_URL" envDefault:"/"`
	RejectionURL     string `env:"REJECTION_URL" envDefault:"/"`
	NotificationURL  string `env:"NOTIFICATION_URL" envDefault:"/notify/"`
	ShippingTermsURL string `env:"SHIPPING_TERMS_URL" envDefault:"/"`

	ValidCheckoutStatus []string `env:"VALID_CHECKOUT_STATUS" envSeparator:"," envDefault:"OPEN,PENDING,APPROVED"`
	ValidCaptureStatus  []string `env:"VALID_CAPTURE_STATUS" envSeparator:"," envDefault:"PENDING,SUCCESSFUL"`
	ValidRefundStatus   []string `env:"VALID_REFUND_STATUS" envSeparator:"," envDefault:"PENDING,SUCCESSFUL"`

	// Express checkout destination rules.
	ValidCountryCodes []string `env:"VALID_COUNTRY_CODES" envSeparator:"," envDefault:"DE"`
	ValidZipCodes     []string `env:"VALID_ZIP_CODES" envSeparator:"," envDefault:"*"`
	ValidPackstation  bool     `env:"VALID_PACKSTATION" envDefault:"true"`

	// JSON array, e.g. [{"code":"DHL_PAKET","name":"DHL Paket","amount":"4.99"}].
	ShippingOptions ShippingOptions `env:"SHIPPING_OPTIONS"`
}

// BaseURL selects the processor endpoint for the configured environment.
func (p Paydirekt) BaseURL() string {
	if p.Sandbox {
		return p.SandboxAPIURL
	}
	return p.APIURL
}

// FullURL expands a path starting with "/" against the configured root URL.
// Absolute URLs pass through unchanged.
func (p Paydirekt) FullURL(url string) string {
	if strings.HasPrefix(url, "/") {
		return p.RootURL + url
	}
	return url
}

type ShippingOption struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Amount      json.Number `json:"amount"`
}

type ShippingOptions []ShippingOption

func (s *ShippingOptions) UnmarshalText(text []byte) error {
	return json.Unmarshal(text, (*[]ShippingOption)(s))
}

// DefaultShippingOptions applies when no SHIPPING_OPTIONS env value is set.
func DefaultShippingOptions() ShippingOptions {
	return ShippingOptions{
		{Code: "STANDARD", Name: "Standardversand", Description: "Lieferung in 2-4 Werktagen", Amount: "4.99"},
	}
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
