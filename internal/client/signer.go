package client

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// 64 symbols, so masking a random byte with 0x3f stays uniform.
const nonceChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

const defaultNonceLength = 64

// Signer produces the artifacts the paydirekt token endpoint requires:
// a request id, the two timestamp renderings and the HMAC-SHA256 auth code.
type Signer struct {
	apiKey string
	secret []byte
}

// NewSigner decodes the base64url API secret once. An undecodable secret is a
// misconfiguration and must abort startup, not be retried per request.
func NewSigner(apiKey, apiSecret string) (*Signer, error) {
	secret, err := base64.URLEncoding.DecodeString(apiSecret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}
	return &Signer{apiKey: apiKey, secret: secret}, nil
}

func (s *Signer) RequestID() string {
	return uuid.NewString()
}

// HeaderTime renders t for the X-Date header, e.g. "Tue, 05 Mar 2024 10:15:30 GMT".
// Both renderings must come from the same sampled instant.
func (s *Signer) HeaderTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// SecretTime renders t for the signature plaintext, e.g. "20240305101530".
func (s *Signer) SecretTime(t time.Time) string {
	return t.UTC().Format("20060102150405")
}

func (s *Signer) Nonce(length int) (string, error) {
	if length <= 0 {
		length = defaultNonceLength
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random nonce: %w", err)
	}
	for i, b := range buf {
		buf[i] = nonceChars[b&0x3f]
	}
	return string(buf), nil
}

// Sign computes base64url(HMAC-SHA256(secret, "requestID:secretTime:apiKey:nonce")).
func (s *Signer) Sign(requestID, secretTime, nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%s:%s:%s", requestID, secretTime, s.apiKey, nonce)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}
