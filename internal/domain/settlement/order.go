// Package settlement drives the checkout pipeline: it turns a priced cart
// into a registered, paid, documented and notified order. The OrderRecord is
// the aggregate root; it is owned exclusively by the Orchestrator until a
// terminal state is reached.
package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/pricing"
)

// OrderType distinguishes dine-in from take-away orders. Only dine-in orders
// can attract a service charge.
type OrderType string

const (
	DineIn   OrderType = "dine-in"
	TakeAway OrderType = "take-away"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t == DineIn || t == TakeAway
}

// PaymentState is the position of an order in the settlement pipeline.
type PaymentState string

const (
	StateDraft                PaymentState = "draft"
	StateRegistered           PaymentState = "registered"
	StateInitiated            PaymentState = "initiated"
	StateAwaitingConfirmation PaymentState = "awaiting_confirmation"
	StateVerifying            PaymentState = "verifying"
	StatePaid                 PaymentState = "paid"
	StateDocumenting          PaymentState = "documenting"
	StateCompleted            PaymentState = "completed"
	StateFailed               PaymentState = "failed"
	StateAbandoned            PaymentState = "abandoned_by_user"
)

// forward lists the happy-path successor of each state.
var forward = map[PaymentState]PaymentState{
	StateDraft:                StateRegistered,
	StateRegistered:           StateInitiated,
	StateInitiated:            StateAwaitingConfirmation,
	StateAwaitingConfirmation: StateVerifying,
	StateVerifying:            StatePaid,
	StatePaid:                 StateDocumenting,
	StateDocumenting:          StateCompleted,
}

// Terminal reports whether no further transitions are possible.
func (s PaymentState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAbandoned
}

// Paid reports whether the order has reached the point of no return. Once
// paid, the state never moves backward regardless of downstream failures.
func (s PaymentState) Paid() bool {
	switch s {
	case StatePaid, StateDocumenting, StateCompleted:
		return true
	}
	return false
}

// OrderRecord is the settlement aggregate. It is created at checkout and
// mutated only by the Orchestrator as the payment state advances; once a
// terminal state is reached it is immutable. Receipt assembly and
// notification receive value copies, never the orchestrator's pointer.
type OrderRecord struct {
	ID            string
	BillNumber    string
	CustomerName  string
	CustomerPhone string
	OrderType     OrderType
	Items         []cart.LineItem
	Breakdown     pricing.Breakdown
	AmountPaid    decimal.Decimal
	State         PaymentState
	FailureReason string

	GatewayOrderID   string
	GatewayPaymentID string
	ReceiptURL       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot returns a read-only value copy for downstream consumers.
func (o *OrderRecord) Snapshot() OrderRecord {
	cp := *o
	cp.Items = make([]cart.LineItem, len(o.Items))
	copy(cp.Items, o.Items)
	return cp
}

// advance moves the record one step forward on the happy path.
func (o *OrderRecord) advance(next PaymentState) error {
	if forward[o.State] != next {
		return &InvalidTransitionError{From: o.State, To: next}
	}
	o.State = next
	return nil
}

// fail marks the record failed with a reason. A paid order can never fail:
// downstream degradations are reported, not recorded as failures.
func (o *OrderRecord) fail(reason string) error {
	if o.State.Paid() || o.State.Terminal() {
		return &InvalidTransitionError{From: o.State, To: StateFailed}
	}
	o.State = StateFailed
	o.FailureReason = reason
	return nil
}

// abandon marks the record as walked away from by the customer. Not an
// error state: the registered order simply remains unpaid.
func (o *OrderRecord) abandon() error {
	if o.State.Paid() || o.State.Terminal() {
		return &InvalidTransitionError{From: o.State, To: StateAbandoned}
	}
	o.State = StateAbandoned
	return nil
}
