// internal/gateway/gateway.go
package gateway

import "errors"

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrPaymentNotFound    = errors.New("gateway payment not found")
)

// CapturedPayment is the gateway's server-side view of a payment. Only this,
// never a client-echoed status string, decides whether money moved.
type CapturedPayment struct {
	ID          string
	Status      string
	AmountMinor int64
	Currency    string
}

// Captured reports whether the gateway actually captured the funds.
// "authorized" is not enough; an authorized-but-uncaptured payment settles
// nothing.
func (p *CapturedPayment) Captured() bool {
	return p.Status == "captured"
}

// Client is the payment gateway collaborator. Amounts are in the currency's
// minor unit (paise).
type Client interface {
	// CreateOrder opens a gateway order for the given amount and returns the
	// gateway order id the client-side payment UI is driven with.
	CreateOrder(amountMinor int64, currency, receipt string) (string, error)

	// VerifySignature checks the HMAC binding of (orderID, paymentID) signed
	// with the shared key secret. Purely local; no network.
	VerifySignature(orderID, paymentID, signature string) bool

	// FetchPayment reads the payment's authoritative status from the gateway.
	FetchPayment(paymentID string) (*CapturedPayment, error)
}
