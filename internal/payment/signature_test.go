package payment_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-api/internal/payment"
)

func signFor(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	sig := signFor("order_abc", "pay_123", "secret")
	require.True(t, payment.VerifySignature("order_abc", "pay_123", sig, "secret"))
}

func TestVerifySignatureDeterministic(t *testing.T) {
	sig := signFor("order_abc", "pay_123", "secret")
	for i := 0; i < 5; i++ {
		require.True(t, payment.VerifySignature("order_abc", "pay_123", sig, "secret"))
	}
}

func TestVerifySignatureRejectsMutations(t *testing.T) {
	sig := signFor("order_abc", "pay_123", "secret")

	require.False(t, payment.VerifySignature("order_abd", "pay_123", sig, "secret"), "mutated order id")
	require.False(t, payment.VerifySignature("order_abc", "pay_124", sig, "secret"), "mutated payment id")

	mutated := []byte(sig)
	if mutated[0] == 'a' {
		mutated[0] = 'b'
	} else {
		mutated[0] = 'a'
	}
	require.False(t, payment.VerifySignature("order_abc", "pay_123", string(mutated), "secret"), "mutated signature")

	require.False(t, payment.VerifySignature("order_abc", "pay_123", sig, "other-secret"), "wrong secret")
}

func TestVerifySignatureEmptySignature(t *testing.T) {
	require.False(t, payment.VerifySignature("order_abc", "pay_123", "", "secret"))
}
