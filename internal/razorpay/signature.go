package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ExpectedSignature computes the HMAC-SHA256 hex digest Razorpay signs
// payment confirmations with: the key secret over "orderID|paymentID".
func ExpectedSignature(keySecret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a payment confirmation signature in constant time.
func VerifySignature(keySecret, orderID, paymentID, signature string) bool {
	expected := ExpectedSignature(keySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
