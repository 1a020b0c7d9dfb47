package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/menu"
	"github.com/quickserve/kiosk/internal/domain/pricing"
	"github.com/quickserve/kiosk/internal/domain/settlement"
)

type registerOrderRequest struct {
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	OrderType    string `json:"orderType"`
	BillNumber   string `json:"billNumber"`
	Items        []struct {
		ItemID   string `json:"itemId"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

// RegisterOrder prices the submitted cart against the server-side catalog
// and registers the order, returning its ID and billing breakdown. Prices
// and tax rates always come from the catalog, never from the client.
func (h *Handler) RegisterOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, codeValidation, "malformed request body")
		return
	}
	if len(req.Items) == 0 {
		writeFailure(w, http.StatusBadRequest, codeValidation, "items: order must contain at least one item")
		return
	}

	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ItemID)
	}
	items, err := h.menu.GetByIDs(ctx, ids)
	if err != nil {
		zctx.From(ctx).Error("resolve menu items", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, codeInternal, "failed to resolve menu items")
		return
	}
	catalog := make(map[string]menu.Item, len(items))
	for _, it := range items {
		catalog[it.ID] = it
	}

	c := cart.New()
	for _, it := range req.Items {
		item, ok := catalog[it.ItemID]
		if !ok {
			writeFailure(w, http.StatusUnprocessableEntity, codeItemUnknown, "unknown menu item: "+it.ItemID)
			return
		}
		if err := c.Add(item.Line(), it.Quantity); err != nil {
			writeFailure(w, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
	}

	rec, err := h.orch.Register(ctx, c,
		settlement.Customer{Name: req.CustomerName, Phone: req.Phone},
		settlement.OrderType(req.OrderType),
		req.BillNumber,
	)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, func(e *jx.Encoder) {
		e.FieldStart("orderId")
		e.Str(rec.ID)
		e.FieldStart("billNumber")
		e.Str(rec.BillNumber)
		e.FieldStart("state")
		e.Str(string(rec.State))
		encodeBreakdown(e, rec.Breakdown)
	})
}

func encodeBreakdown(e *jx.Encoder, b pricing.Breakdown) {
	e.FieldStart("breakdown")
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeMoney(e, b.Subtotal)
	e.FieldStart("totalTax")
	encodeMoney(e, b.TotalTax)
	e.FieldStart("serviceCharge")
	encodeMoney(e, b.ServiceCharge)
	e.FieldStart("grandTotal")
	encodeMoney(e, b.GrandTotal)
	e.ObjEnd()
}

// encodeMoney writes a decimal amount as a JSON number without converting
// through binary floating point.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.StringFixed(2))
}

type orderRef struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) loadOrder(w http.ResponseWriter, r *http.Request, body any) (*settlement.OrderRecord, bool) {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeFailure(w, http.StatusBadRequest, codeValidation, "malformed request body")
		return nil, false
	}
	ref, ok := body.(interface{ orderID() string })
	if !ok || ref.orderID() == "" {
		writeFailure(w, http.StatusBadRequest, codeValidation, "orderId: required")
		return nil, false
	}
	rec, err := h.ledger.Get(r.Context(), ref.orderID())
	if err != nil {
		writeSettlementError(w, r, err)
		return nil, false
	}
	return rec, true
}

func (o orderRef) orderID() string { return o.OrderID }

// InitiatePayment opens a payment intent with the gateway for a registered
// order and hands back what the kiosk needs to launch checkout.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req orderRef
	rec, ok := h.loadOrder(w, r, &req)
	if !ok {
		return
	}

	intent, err := h.orch.Initiate(r.Context(), rec)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("gatewayOrderId")
		e.Str(intent.GatewayOrderID)
		e.FieldStart("amount")
		encodeMoney(e, intent.Amount)
		e.FieldStart("amountSubunits")
		e.Int64(intent.Amount.Mul(decimal.NewFromInt(100)).IntPart())
		e.FieldStart("currency")
		e.Str(intent.Currency)
		e.FieldStart("keyId")
		e.Str(h.cfg.GatewayKeyID)
	})
}

type verifyPaymentRequest struct {
	orderRef
	Cancelled        bool   `json:"cancelled"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

// VerifyPayment resumes a settlement after the kiosk reports the checkout
// outcome. A cancelled flag abandons the order; otherwise the gateway
// callback triplet is verified and the order marked paid.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	rec, ok := h.loadOrder(w, r, &req)
	if !ok {
		return
	}
	ctx := r.Context()

	if req.Cancelled {
		if err := h.orch.Abandon(ctx, rec); err != nil {
			writeSettlementError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
			e.FieldStart("state")
			e.Str(string(rec.State))
		})
		return
	}

	err := h.orch.Resume(ctx, rec, settlement.Confirmation{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("state")
		e.Str(string(rec.State))
		e.FieldStart("billNumber")
		e.Str(rec.BillNumber)
	})
}

// PaymentStatus re-asserts the paid state of an order. It is the retry
// surface for the one recoverable ambiguity: payment verified but the
// paid marker not yet durably recorded.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req orderRef
	rec, ok := h.loadOrder(w, r, &req)
	if !ok {
		return
	}

	if err := h.orch.EnsurePaid(r.Context(), rec); err != nil {
		writeSettlementError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("state")
		e.Str(string(rec.State))
		e.FieldStart("amountPaid")
		encodeMoney(e, rec.AmountPaid)
	})
}

// IssueReceipt runs the post-payment steps: receipt generation and SMS
// notification. Degraded steps are reported, never treated as failure.
func (h *Handler) IssueReceipt(w http.ResponseWriter, r *http.Request) {
	var req orderRef
	rec, ok := h.loadOrder(w, r, &req)
	if !ok {
		return
	}
	ctx := r.Context()

	res, err := h.orch.Finalize(ctx, rec)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("state")
		e.Str(string(rec.State))
		e.FieldStart("billNumber")
		e.Str(rec.BillNumber)
		if res.Receipt.URL != "" {
			e.FieldStart("receiptUrl")
			e.Str(res.Receipt.URL)
		}
		e.FieldStart("smsStatus")
		e.Str(string(res.NotifyStatus))
		if len(res.Degradations) > 0 {
			e.FieldStart("degradations")
			e.ArrStart()
			for _, d := range res.Degradations {
				e.Str(d.Error())
			}
			e.ArrEnd()
		}
	})
}
