// internal/gateway/razorpay_test.go
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	const secret = "test_key_secret"
	orderID := "order_MkWq7jZ2Ab3XYZ"
	paymentID := "pay_MkWqAl9qPd4ABC"

	good := sign(secret, orderID, paymentID)
	assert.True(t, verifySignature(secret, orderID, paymentID, good))
}

func TestVerifySignatureRejects(t *testing.T) {
	const secret = "test_key_secret"
	orderID := "order_MkWq7jZ2Ab3XYZ"
	paymentID := "pay_MkWqAl9qPd4ABC"

	// wrong secret
	assert.False(t, verifySignature(secret, orderID, paymentID, sign("other_secret", orderID, paymentID)))
	// signature over a different payment id
	assert.False(t, verifySignature(secret, orderID, paymentID, sign(secret, orderID, "pay_forged")))
	// garbage and empty signatures
	assert.False(t, verifySignature(secret, orderID, paymentID, "deadbeef"))
	assert.False(t, verifySignature(secret, orderID, paymentID, ""))
}

func TestCapturedStatuses(t *testing.T) {
	assert.True(t, (&CapturedPayment{Status: "captured"}).Captured())
	assert.False(t, (&CapturedPayment{Status: "authorized"}).Captured())
	assert.False(t, (&CapturedPayment{Status: "created"}).Captured())
	assert.False(t, (&CapturedPayment{Status: "failed"}).Captured())
	assert.False(t, (&CapturedPayment{Status: ""}).Captured())
}
