package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickserve/kiosk/internal/domain/settlement"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyConfirmation_ValidSignature(t *testing.T) {
	g := NewRazorpay("rzp_test_key", "secret123")

	conf := settlement.Confirmation{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        sign("secret123", "order_abc", "pay_xyz"),
	}

	require.NoError(t, g.VerifyConfirmation(context.Background(), conf))
}

func TestVerifyConfirmation_ForgedSignature(t *testing.T) {
	g := NewRazorpay("rzp_test_key", "secret123")

	conf := settlement.Confirmation{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        sign("wrong-secret", "order_abc", "pay_xyz"),
	}

	require.ErrorIs(t, g.VerifyConfirmation(context.Background(), conf), settlement.ErrSignatureMismatch)
}

func TestVerifyConfirmation_SwappedIDs(t *testing.T) {
	g := NewRazorpay("rzp_test_key", "secret123")

	conf := settlement.Confirmation{
		GatewayOrderID:   "pay_xyz",
		GatewayPaymentID: "order_abc",
		Signature:        sign("secret123", "order_abc", "pay_xyz"),
	}

	require.ErrorIs(t, g.VerifyConfirmation(context.Background(), conf), settlement.ErrSignatureMismatch)
}

func TestVerifyConfirmation_IncompletePayload(t *testing.T) {
	g := NewRazorpay("rzp_test_key", "secret123")

	err := g.VerifyConfirmation(context.Background(), settlement.Confirmation{
		GatewayOrderID: "order_abc",
	})

	require.ErrorIs(t, err, settlement.ErrSignatureMismatch)
}

func TestKeyID(t *testing.T) {
	g := NewRazorpay("rzp_test_key", "secret123")
	assert.Equal(t, "rzp_test_key", g.KeyID())
}
