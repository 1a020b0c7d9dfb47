package settlement

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Step names a pipeline step for failure attribution. Every step's failure
// is distinguishable by which step produced it.
type Step string

const (
	StepRegister Step = "register"
	StepInitiate Step = "initiate"
	StepConfirm  Step = "confirm"
	StepVerify   Step = "verify"
	StepPersist  Step = "persist"
	StepDocument Step = "document"
	StepNotify   Step = "notify"
)

// Sentinel errors.
var (
	// ErrEmptyCart rejects checkout of an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrOrderNotFound is returned by ledgers for unknown order IDs.
	ErrOrderNotFound = errors.New("order not found")
	// ErrSignatureMismatch is returned by gateways when a confirmation
	// payload fails server-side verification.
	ErrSignatureMismatch = errors.New("gateway signature mismatch")
	// ErrConfirmationCancelled signals the customer dismissed the gateway's
	// interactive flow. It produces an abandoned order, not a failed one.
	ErrConfirmationCancelled = errors.New("confirmation cancelled by user")
)

// ValidationError rejects bad input before any network call is made.
// It is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PreflightError wraps a failure that happened before any money moved
// (register or initiate). The attempt is safe to retry from scratch.
type PreflightError struct {
	Step Step
	Err  error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *PreflightError) Unwrap() error { return e.Err }

// AmbiguousOutcomeError wraps a failure after the gateway reported success
// client-side: money may have moved even though the local pipeline could not
// confirm it. It must never trigger a second charge; it is surfaced to the
// customer as "payment may have succeeded, contact staff".
type AmbiguousOutcomeError struct {
	OrderID string
	Step    Step
	Err     error
}

func (e *AmbiguousOutcomeError) Error() string {
	return fmt.Sprintf("order %s: ambiguous payment outcome at %s: %v", e.OrderID, e.Step, e.Err)
}

func (e *AmbiguousOutcomeError) Unwrap() error { return e.Err }

// DegradationError records a best-effort step (document, notification)
// failing after the order was already paid. It never blocks success and
// never mutates the payment state backward.
type DegradationError struct {
	Step Step
	Err  error
}

func (e *DegradationError) Error() string {
	return fmt.Sprintf("post-payment %s degraded: %v", e.Step, e.Err)
}

func (e *DegradationError) Unwrap() error { return e.Err }

// InvalidTransitionError reports an attempted state change the machine does
// not permit.
type InvalidTransitionError struct {
	From PaymentState
	To   PaymentState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid payment state transition %s -> %s", e.From, e.To)
}
