// internal/gateway/razorpay.go
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/razorpay/razorpay-go"
	"github.com/sirupsen/logrus"
)

// RazorpayClient implements Client against Razorpay. Orders are created with
// payment_capture enabled so a successful client-side payment lands directly
// in the captured state.
type RazorpayClient struct {
	client    *razorpay.Client
	keySecret string
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		client:    razorpay.NewClient(keyID, keySecret),
		keySecret: keySecret,
	}
}

func (c *RazorpayClient) CreateOrder(amountMinor int64, currency, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}

	order, err := c.client.Order.Create(data, nil)
	if err != nil {
		logrus.WithError(err).WithField("amount_minor", amountMinor).Error("Gateway order creation failed")
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		return "", fmt.Errorf("%w: order response missing id", ErrGatewayUnavailable)
	}
	return orderID, nil
}

// VerifySignature recomputes HMAC-SHA256 over "orderID|paymentID" with the
// key secret and compares in constant time.
func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	return verifySignature(c.keySecret, orderID, paymentID, signature)
}

func (c *RazorpayClient) FetchPayment(paymentID string) (*CapturedPayment, error) {
	body, err := c.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	payment := &CapturedPayment{ID: paymentID}
	if status, ok := body["status"].(string); ok {
		payment.Status = status
	}
	if currency, ok := body["currency"].(string); ok {
		payment.Currency = currency
	}
	// JSON numbers decode as float64; amounts are integral paise.
	if amount, ok := body["amount"].(float64); ok {
		payment.AmountMinor = int64(amount)
	}
	return payment, nil
}

func verifySignature(keySecret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
