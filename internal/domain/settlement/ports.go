package settlement

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger is the backend order ledger. Create, MarkPaid and UpdateState are
// idempotent from the orchestrator's perspective and safe to retry with the
// same order ID.
type Ledger interface {
	Create(ctx context.Context, o *OrderRecord) error
	Get(ctx context.Context, id string) (*OrderRecord, error)
	UpdateState(ctx context.Context, id string, state PaymentState, reason string) error
	AttachIntent(ctx context.Context, id, gatewayOrderID string) error
	MarkPaid(ctx context.Context, id, gatewayPaymentID string, amountPaid decimal.Decimal) error
	SetReceiptURL(ctx context.Context, id, url string) error
}

// IntentHandle identifies a payment transaction opened at the gateway for an
// exact amount. It is the resumption token for the interactive confirmation
// step together with the order ID.
type IntentHandle struct {
	GatewayOrderID string
	Amount         decimal.Decimal
	Currency       string
}

// Confirmation is the signed payload the gateway's interactive flow returns
// on client-side success. Client-side success is not trusted proof of
// payment; the signature must be verified server-side.
type Confirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// PaymentGateway is the payment provider's server API.
type PaymentGateway interface {
	// CreateIntent opens a transaction for the exact rounded amount.
	// No money moves at this point.
	CreateIntent(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (IntentHandle, error)
	// VerifyConfirmation checks the confirmation's authenticity. It returns
	// an error wrapping ErrSignatureMismatch when the payload does not
	// verify.
	VerifyConfirmation(ctx context.Context, conf Confirmation) error
}

// ReceiptArtifact locates a stored receipt document.
type ReceiptArtifact struct {
	FileName string
	URL      string
}

// Documenter renders and stores the receipt for a finalized order.
// Re-issuing for the same order must be idempotent.
type Documenter interface {
	Issue(ctx context.Context, o OrderRecord) (ReceiptArtifact, error)
}

// NotifyStatus is the tri-state outcome of a notification attempt.
// "not_configured" is a valid steady state, not an error.
type NotifyStatus string

const (
	NotifySent          NotifyStatus = "sent"
	NotifyFailed        NotifyStatus = "failed"
	NotifyNotConfigured NotifyStatus = "not_configured"
)

// Notification is the message payload handed to the dispatcher.
type Notification struct {
	Phone        string
	CustomerName string
	BillNumber   string
	Amount       decimal.Decimal
	ReceiptURL   string
}

// Notifier dispatches the customer confirmation message. Failures are
// reported through the status, never by blocking settlement.
type Notifier interface {
	Notify(ctx context.Context, n Notification) (NotifyStatus, error)
}

// PhoneNormalizer canonicalizes a customer phone number or rejects it.
type PhoneNormalizer func(raw string) (string, error)

// ConfirmFunc hands control to the gateway's interactive confirmation flow
// and resumes with a signed confirmation, ErrConfirmationCancelled, or a
// transport failure. It is the pipeline's longest suspension point.
type ConfirmFunc func(ctx context.Context, handle IntentHandle) (Confirmation, error)
