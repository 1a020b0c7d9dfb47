// Package gateway integrates the Razorpay payment gateway: opening payment
// intents through its server API and verifying the signed confirmations its
// checkout flow returns.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/quickserve/kiosk/internal/domain/settlement"
)

var _ settlement.PaymentGateway = (*Razorpay)(nil)

// Razorpay implements settlement.PaymentGateway against the Razorpay API.
type Razorpay struct {
	client *razorpay.Client
	keyID  string
	secret []byte
}

// NewRazorpay creates a gateway client from API credentials.
func NewRazorpay(keyID, keySecret string) *Razorpay {
	return &Razorpay{
		client: razorpay.NewClient(keyID, keySecret),
		keyID:  keyID,
		secret: []byte(keySecret),
	}
}

// KeyID returns the public key identifier the kiosk's checkout widget needs.
func (g *Razorpay) KeyID() string {
	return g.keyID
}

// CreateIntent opens a gateway order for the exact rounded amount. Razorpay
// expects amounts in the smallest currency unit, so the whole-unit amount is
// converted to subunits here. No money moves at this point.
func (g *Razorpay) CreateIntent(_ context.Context, orderID string, amount decimal.Decimal, currency string) (settlement.IntentHandle, error) {
	subunits := amount.Mul(decimal.NewFromInt(100)).IntPart()

	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":   subunits,
		"currency": currency,
		"receipt":  orderID,
	}, nil)
	if err != nil {
		return settlement.IntentHandle{}, errors.Wrap(err, "create gateway order")
	}

	gatewayOrderID, ok := body["id"].(string)
	if !ok || gatewayOrderID == "" {
		return settlement.IntentHandle{}, errors.New("gateway order response has no id")
	}

	return settlement.IntentHandle{
		GatewayOrderID: gatewayOrderID,
		Amount:         amount,
		Currency:       currency,
	}, nil
}

// VerifyConfirmation checks the confirmation signature server-side using
// Razorpay's documented scheme: HMAC-SHA256 of "order_id|payment_id" keyed
// with the API secret. The comparison is constant-time.
func (g *Razorpay) VerifyConfirmation(_ context.Context, conf settlement.Confirmation) error {
	if conf.GatewayOrderID == "" || conf.GatewayPaymentID == "" || conf.Signature == "" {
		return errors.Wrap(settlement.ErrSignatureMismatch, "incomplete confirmation payload")
	}

	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(conf.GatewayOrderID + "|" + conf.GatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(conf.Signature)) != 1 {
		return settlement.ErrSignatureMismatch
	}
	return nil
}
