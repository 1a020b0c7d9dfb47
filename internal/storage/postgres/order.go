package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/settlement"
)

var _ settlement.Ledger = (*OrderRepository)(nil)

// OrderRepository implements the settlement ledger backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// lineItemRow is the JSONB snapshot of one order line.
type lineItemRow struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxMode   string          `json:"tax_mode"`
}

// Create persists a new order draft. Line items are serialized to JSON for
// the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *settlement.OrderRecord) error {
	rows := make([]lineItemRow, len(o.Items))
	for i, it := range o.Items {
		rows[i] = lineItemRow{
			ItemID:    it.ItemID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			TaxRate:   it.TaxRate,
			TaxMode:   string(it.TaxMode),
		}
	}
	itemsJSON, err := json.Marshal(rows)
	if err != nil {
		return errors.Wrap(err, "marshaling order items")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (
			id, bill_number, customer_name, customer_phone, order_type, items,
			subtotal, total_tax, service_charge, grand_total, state, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, o.BillNumber, o.CustomerName, o.CustomerPhone, string(o.OrderType), itemsJSON,
		o.Breakdown.Subtotal, o.Breakdown.TotalTax, o.Breakdown.ServiceCharge,
		o.Breakdown.GrandTotal, string(o.State), o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "creating order %q", o.ID)
	}
	return nil
}

// Get loads an order by ID.
func (r *OrderRepository) Get(ctx context.Context, id string) (*settlement.OrderRecord, error) {
	var (
		o         settlement.OrderRecord
		orderType string
		state     string
		itemsJSON []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, bill_number, customer_name, customer_phone, order_type, items,
		       subtotal, total_tax, service_charge, grand_total, amount_paid,
		       state, failure_reason, gateway_order_id, gateway_payment_id,
		       receipt_url, created_at, updated_at
		FROM orders WHERE id = $1`, id,
	).Scan(
		&o.ID, &o.BillNumber, &o.CustomerName, &o.CustomerPhone, &orderType, &itemsJSON,
		&o.Breakdown.Subtotal, &o.Breakdown.TotalTax, &o.Breakdown.ServiceCharge,
		&o.Breakdown.GrandTotal, &o.AmountPaid,
		&state, &o.FailureReason, &o.GatewayOrderID, &o.GatewayPaymentID,
		&o.ReceiptURL, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	o.OrderType = settlement.OrderType(orderType)
	o.State = settlement.PaymentState(state)

	var rows []lineItemRow
	if err := json.Unmarshal(itemsJSON, &rows); err != nil {
		return nil, errors.Wrap(err, "unmarshaling order items")
	}
	o.Items = make([]cart.LineItem, len(rows))
	for i, row := range rows {
		o.Items[i] = cart.LineItem{
			ItemID:    row.ItemID,
			Name:      row.Name,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			TaxRate:   row.TaxRate,
			TaxMode:   cart.TaxMode(row.TaxMode),
		}
	}
	return &o, nil
}

// UpdateState records a state transition.
func (r *OrderRepository) UpdateState(ctx context.Context, id string, state settlement.PaymentState, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET state = $2, failure_reason = $3, updated_at = now()
		WHERE id = $1`,
		id, string(state), reason,
	)
	if err != nil {
		return errors.Wrapf(err, "updating state of order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return settlement.ErrOrderNotFound
	}
	return nil
}

// AttachIntent records the gateway transaction handle on the order.
func (r *OrderRepository) AttachIntent(ctx context.Context, id, gatewayOrderID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET gateway_order_id = $2, updated_at = now()
		WHERE id = $1`,
		id, gatewayOrderID,
	)
	if err != nil {
		return errors.Wrapf(err, "attaching intent to order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return settlement.ErrOrderNotFound
	}
	return nil
}

// MarkPaid records the verified payment. Idempotent: repeating the call for
// an order that is already paid (or further along) is a no-op, so a caller
// whose earlier response was lost can safely retry.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, gatewayPaymentID string, amountPaid decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET state = CASE WHEN state IN ('paid', 'documenting', 'completed') THEN state ELSE 'paid' END,
		    gateway_payment_id = $2,
		    amount_paid = $3,
		    updated_at = now()
		WHERE id = $1 AND state IN ('verifying', 'paid', 'documenting', 'completed')`,
		id, gatewayPaymentID, amountPaid,
	)
	if err != nil {
		return errors.Wrapf(err, "marking order %q paid", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(settlement.ErrOrderNotFound, "order %q not in a payable state", id)
	}
	return nil
}

// SetReceiptURL records where the generated receipt can be retrieved.
func (r *OrderRepository) SetReceiptURL(ctx context.Context, id, url string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders SET receipt_url = $2, updated_at = now()
		WHERE id = $1`,
		id, url,
	)
	if err != nil {
		return errors.Wrapf(err, "setting receipt url of order %q", id)
	}
	return nil
}
