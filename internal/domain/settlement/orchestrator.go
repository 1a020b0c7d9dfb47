package settlement

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quickserve/kiosk/internal/domain/bill"
	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/pricing"
	"github.com/quickserve/kiosk/internal/domain/venue"
)

// Customer identifies who the order is for. Name is optional; the phone is
// required and must pass normalization before any network call.
type Customer struct {
	Name  string
	Phone string
}

// Orchestrator drives one settlement attempt through its steps. Steps 1-5
// (register, initiate, confirm, verify, persist) are money-critical and
// strictly sequential; document and notification are best-effort side
// effects of an already-successful transaction.
type Orchestrator struct {
	ledger    Ledger
	gateway   PaymentGateway
	documents Documenter
	notifier  Notifier
	bills     *bill.Generator
	phone     PhoneNormalizer
	venue     venue.Profile
	now       func() time.Time
}

// NewOrchestrator wires the orchestrator with its collaborators. The venue
// profile is passed explicitly; nothing is read from ambient state.
func NewOrchestrator(
	ledger Ledger,
	gateway PaymentGateway,
	documents Documenter,
	notifier Notifier,
	bills *bill.Generator,
	phone PhoneNormalizer,
	vp venue.Profile,
) *Orchestrator {
	return &Orchestrator{
		ledger:    ledger,
		gateway:   gateway,
		documents: documents,
		notifier:  notifier,
		bills:     bills,
		phone:     phone,
		venue:     vp,
		now:       time.Now,
	}
}

// Register prices the cart and submits the draft order to the ledger,
// obtaining a confirmed order ID. Failure here is terminal for the attempt
// but completely safe: no payment has started, the customer may retry from
// scratch. A non-empty billNumber is used as-is; otherwise one is generated.
func (s *Orchestrator) Register(ctx context.Context, c *cart.Cart, customer Customer, orderType OrderType, billNumber string) (*OrderRecord, error) {
	if c == nil || c.Empty() {
		return nil, &ValidationError{Field: "items", Reason: ErrEmptyCart.Error()}
	}
	if !orderType.Valid() {
		return nil, &ValidationError{Field: "orderType", Reason: "must be dine-in or take-away"}
	}

	normalized, err := s.phone(customer.Phone)
	if err != nil {
		return nil, &ValidationError{Field: "phone", Reason: err.Error()}
	}

	if billNumber == "" {
		billNumber = s.bills.Next()
	}

	lines := c.Lines()
	now := s.now()
	rec := &OrderRecord{
		ID:            uuid.New().String(),
		BillNumber:    billNumber,
		CustomerName:  customer.Name,
		CustomerPhone: normalized,
		OrderType:     orderType,
		Items:         lines,
		Breakdown:     pricing.Compute(lines, s.venue.Tax, orderType == DineIn),
		State:         StateDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.ledger.Create(ctx, rec); err != nil {
		return nil, &PreflightError{Step: StepRegister, Err: err}
	}
	if err := s.setState(ctx, rec, StateRegistered); err != nil {
		return nil, &PreflightError{Step: StepRegister, Err: err}
	}

	zctx.From(ctx).Info("Order registered",
		zap.String("order_id", rec.ID),
		zap.String("bill_number", rec.BillNumber),
		zap.String("order_type", string(rec.OrderType)),
		zap.String("grand_total", rec.Breakdown.GrandTotal.String()),
	)
	return rec, nil
}

// Initiate opens a payment-gateway transaction for the rounded grand total.
// No money moves here, so failure leaves the order in Registered and is safe
// to retry with the same order ID.
func (s *Orchestrator) Initiate(ctx context.Context, rec *OrderRecord) (IntentHandle, error) {
	if rec.State != StateRegistered {
		return IntentHandle{}, &InvalidTransitionError{From: rec.State, To: StateInitiated}
	}

	amount := rec.Breakdown.GatewayAmount()
	handle, err := s.gateway.CreateIntent(ctx, rec.ID, amount, s.venue.CurrencyCode)
	if err != nil {
		return IntentHandle{}, &PreflightError{Step: StepInitiate, Err: err}
	}

	if err := s.ledger.AttachIntent(ctx, rec.ID, handle.GatewayOrderID); err != nil {
		return IntentHandle{}, &PreflightError{Step: StepInitiate, Err: err}
	}
	rec.GatewayOrderID = handle.GatewayOrderID

	if err := s.setState(ctx, rec, StateInitiated); err != nil {
		return IntentHandle{}, &PreflightError{Step: StepInitiate, Err: err}
	}
	// The order now waits on the gateway's interactive flow.
	if err := s.setState(ctx, rec, StateAwaitingConfirmation); err != nil {
		return IntentHandle{}, &PreflightError{Step: StepInitiate, Err: err}
	}

	zctx.From(ctx).Info("Payment initiated",
		zap.String("order_id", rec.ID),
		zap.String("gateway_order_id", handle.GatewayOrderID),
		zap.String("amount", amount.String()),
	)
	return handle, nil
}

// Abandon unwinds an attempt the customer walked away from. The registered
// order remains in the ledger, simply unpaid. Not an error path.
func (s *Orchestrator) Abandon(ctx context.Context, rec *OrderRecord) error {
	if err := rec.abandon(); err != nil {
		return err
	}
	if err := s.ledger.UpdateState(ctx, rec.ID, StateAbandoned, ""); err != nil {
		return errors.Wrap(err, "persist abandoned state")
	}
	zctx.From(ctx).Info("Order abandoned by customer", zap.String("order_id", rec.ID))
	return nil
}

// Resume continues the pipeline after the gateway's interactive flow
// reported client-side success. It verifies the confirmation server-side and
// persists the paid status. Verification is mandatory: a client-side success
// event is not trusted proof of payment.
//
// A verification failure here is the most delicate case in the pipeline:
// money may have moved at the gateway. The order is marked failed with the
// ambiguity recorded, the error is an AmbiguousOutcomeError, and no second
// charge is ever attempted for this order.
func (s *Orchestrator) Resume(ctx context.Context, rec *OrderRecord, conf Confirmation) error {
	switch rec.State {
	case StateAwaitingConfirmation:
		if err := s.setState(ctx, rec, StateVerifying); err != nil {
			return errors.Wrap(err, "enter verifying")
		}
	case StateVerifying:
		// Retry after a lost persist response. Re-running verification
		// moves no money, and MarkPaid below is idempotent.
	default:
		return &InvalidTransitionError{From: rec.State, To: StateVerifying}
	}

	if conf.GatewayOrderID != rec.GatewayOrderID {
		// A confirmation for some other intent: treat as unverifiable.
		err := errors.Wrapf(ErrSignatureMismatch, "confirmation is for gateway order %s, expected %s",
			conf.GatewayOrderID, rec.GatewayOrderID)
		return s.failAmbiguous(ctx, rec, StepVerify, err)
	}

	if err := s.gateway.VerifyConfirmation(ctx, conf); err != nil {
		return s.failAmbiguous(ctx, rec, StepVerify, err)
	}

	// Persist the paid status. Idempotent: if this call's response is lost
	// the caller may repeat it via EnsurePaid with the same order ID.
	amountPaid := rec.Breakdown.GatewayAmount()
	if err := s.ledger.MarkPaid(ctx, rec.ID, conf.GatewayPaymentID, amountPaid); err != nil {
		// The payment is verified but the ledger write failed: outcome
		// unknown on the ledger side. Do not fail the order; the record
		// stays in Verifying and a repeated Resume retries the write.
		return &AmbiguousOutcomeError{OrderID: rec.ID, Step: StepPersist, Err: err}
	}

	rec.GatewayPaymentID = conf.GatewayPaymentID
	rec.AmountPaid = amountPaid
	if err := rec.advance(StatePaid); err != nil {
		return err
	}

	zctx.From(ctx).Info("Payment verified and persisted",
		zap.String("order_id", rec.ID),
		zap.String("gateway_payment_id", conf.GatewayPaymentID),
		zap.String("amount_paid", amountPaid.String()),
	)
	return nil
}

// failAmbiguous records a verification failure without risking a second
// charge. Marking the order failed is best-effort: the ambiguity is what
// must reach the caller.
func (s *Orchestrator) failAmbiguous(ctx context.Context, rec *OrderRecord, step Step, cause error) error {
	reason := "payment may have succeeded, verification failed: " + cause.Error()
	if err := rec.fail(reason); err == nil {
		if uerr := s.ledger.UpdateState(ctx, rec.ID, StateFailed, reason); uerr != nil {
			zctx.From(ctx).Error("Persisting failed state",
				zap.String("order_id", rec.ID), zap.Error(uerr))
		}
	}
	zctx.From(ctx).Error("Ambiguous payment outcome",
		zap.String("order_id", rec.ID),
		zap.String("step", string(step)),
		zap.Error(cause),
	)
	return &AmbiguousOutcomeError{OrderID: rec.ID, Step: step, Err: cause}
}

// EnsurePaid repeats the idempotent mark-paid write for an order whose
// earlier persist response may have been lost. It only acts on orders that
// already verified successfully.
func (s *Orchestrator) EnsurePaid(ctx context.Context, rec *OrderRecord) error {
	switch {
	case rec.State.Paid():
		// Repeat the write; the ledger treats it as a no-op when already
		// recorded.
		if err := s.ledger.MarkPaid(ctx, rec.ID, rec.GatewayPaymentID, rec.AmountPaid); err != nil {
			return &AmbiguousOutcomeError{OrderID: rec.ID, Step: StepPersist, Err: err}
		}
		return nil
	default:
		return &InvalidTransitionError{From: rec.State, To: StatePaid}
	}
}

// FinalizeResult reports the outcome of the best-effort post-payment steps.
type FinalizeResult struct {
	Receipt      ReceiptArtifact
	NotifyStatus NotifyStatus
	// Degradations holds DegradationError values for any step that failed.
	// The order is successful regardless.
	Degradations []error
}

// Finalize runs the post-payment side effects: receipt generation and
// customer notification. Both are best-effort; their failure is recorded as
// a degradation and can never move the payment state backward from Paid.
// Re-running Finalize on a completed order re-issues the receipt
// idempotently (same bill number, same content).
func (s *Orchestrator) Finalize(ctx context.Context, rec *OrderRecord) (FinalizeResult, error) {
	lg := zctx.From(ctx)

	switch rec.State {
	case StatePaid:
		if err := s.setState(ctx, rec, StateDocumenting); err != nil {
			// State bookkeeping must not block an already-paid order.
			lg.Warn("Entering documenting state", zap.String("order_id", rec.ID), zap.Error(err))
		}
	case StateDocumenting, StateCompleted:
		// Regeneration path.
	default:
		return FinalizeResult{}, &InvalidTransitionError{From: rec.State, To: StateDocumenting}
	}

	var result FinalizeResult
	snapshot := rec.Snapshot()

	artifact, docErr := s.documents.Issue(ctx, snapshot)
	if docErr != nil {
		result.Degradations = append(result.Degradations, &DegradationError{Step: StepDocument, Err: docErr})
		lg.Warn("Receipt generation degraded", zap.String("order_id", rec.ID), zap.Error(docErr))
	} else {
		result.Receipt = artifact
		rec.ReceiptURL = artifact.URL
		if err := s.ledger.SetReceiptURL(ctx, rec.ID, artifact.URL); err != nil {
			lg.Warn("Persisting receipt URL", zap.String("order_id", rec.ID), zap.Error(err))
		}
	}

	// Notification is dispatched regardless of document success; the message
	// simply omits the link when there is no document.
	status, notifyErr := s.notifier.Notify(ctx, Notification{
		Phone:        rec.CustomerPhone,
		CustomerName: rec.CustomerName,
		BillNumber:   rec.BillNumber,
		Amount:       rec.Breakdown.GatewayAmount(),
		ReceiptURL:   result.Receipt.URL,
	})
	result.NotifyStatus = status
	if notifyErr != nil {
		result.Degradations = append(result.Degradations, &DegradationError{Step: StepNotify, Err: notifyErr})
		lg.Warn("Notification degraded", zap.String("order_id", rec.ID), zap.Error(notifyErr))
	}

	if rec.State == StateDocumenting {
		if err := s.setState(ctx, rec, StateCompleted); err != nil {
			lg.Warn("Entering completed state", zap.String("order_id", rec.ID), zap.Error(err))
		}
	}

	lg.Info("Settlement finalized",
		zap.String("order_id", rec.ID),
		zap.String("receipt_url", rec.ReceiptURL),
		zap.String("sms_status", string(result.NotifyStatus)),
		zap.Int("degradations", len(result.Degradations)),
	)
	return result, nil
}

// Settle runs the whole pipeline in one call, handing control to confirm for
// the gateway's interactive step. Used where the caller owns the full flow;
// the HTTP API exposes the individual steps instead.
func (s *Orchestrator) Settle(ctx context.Context, c *cart.Cart, customer Customer, orderType OrderType, confirm ConfirmFunc) (*OrderRecord, error) {
	rec, err := s.Register(ctx, c, customer, orderType, "")
	if err != nil {
		return nil, err
	}

	handle, err := s.Initiate(ctx, rec)
	if err != nil {
		return rec, err
	}

	conf, err := confirm(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrConfirmationCancelled) {
			if aerr := s.Abandon(ctx, rec); aerr != nil {
				return rec, aerr
			}
			return rec, ErrConfirmationCancelled
		}
		// The interactive flow broke down without a cancellation signal:
		// the customer may already have paid, so the outcome is unknown.
		return rec, s.failAmbiguous(ctx, rec, StepConfirm, err)
	}

	if err := s.Resume(ctx, rec, conf); err != nil {
		return rec, err
	}

	if _, err := s.Finalize(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// setState advances the in-memory record and mirrors the transition into the
// ledger.
func (s *Orchestrator) setState(ctx context.Context, rec *OrderRecord, next PaymentState) error {
	if err := rec.advance(next); err != nil {
		return err
	}
	if err := s.ledger.UpdateState(ctx, rec.ID, next, ""); err != nil {
		return errors.Wrapf(err, "persist state %s", next)
	}
	return nil
}
