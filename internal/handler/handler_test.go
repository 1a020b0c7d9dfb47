package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickserve/kiosk/internal/domain/bill"
	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/menu"
	"github.com/quickserve/kiosk/internal/domain/settlement"
	"github.com/quickserve/kiosk/internal/domain/venue"
)

// --- In-memory fakes ---

type memMenu struct {
	items []menu.Item
}

func (m *memMenu) List(_ context.Context) ([]menu.Item, error) {
	return m.items, nil
}

func (m *memMenu) GetByIDs(_ context.Context, ids []string) ([]menu.Item, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []menu.Item
	for _, it := range m.items {
		if want[it.ID] {
			out = append(out, it)
		}
	}
	return out, nil
}

type memLedger struct {
	recs map[string]*settlement.OrderRecord
}

func newMemLedger() *memLedger {
	return &memLedger{recs: make(map[string]*settlement.OrderRecord)}
}

func (m *memLedger) Create(_ context.Context, o *settlement.OrderRecord) error {
	m.recs[o.ID] = o
	return nil
}

func (m *memLedger) Get(_ context.Context, id string) (*settlement.OrderRecord, error) {
	rec, ok := m.recs[id]
	if !ok {
		return nil, settlement.ErrOrderNotFound
	}
	return rec, nil
}

func (m *memLedger) UpdateState(_ context.Context, id string, state settlement.PaymentState, reason string) error {
	rec, ok := m.recs[id]
	if !ok {
		return settlement.ErrOrderNotFound
	}
	rec.State = state
	if reason != "" {
		rec.FailureReason = reason
	}
	return nil
}

func (m *memLedger) AttachIntent(_ context.Context, id, gatewayOrderID string) error {
	rec, ok := m.recs[id]
	if !ok {
		return settlement.ErrOrderNotFound
	}
	rec.GatewayOrderID = gatewayOrderID
	return nil
}

func (m *memLedger) MarkPaid(_ context.Context, id, gatewayPaymentID string, amountPaid decimal.Decimal) error {
	rec, ok := m.recs[id]
	if !ok {
		return settlement.ErrOrderNotFound
	}
	rec.GatewayPaymentID = gatewayPaymentID
	rec.AmountPaid = amountPaid
	return nil
}

func (m *memLedger) SetReceiptURL(_ context.Context, id, url string) error {
	rec, ok := m.recs[id]
	if !ok {
		return settlement.ErrOrderNotFound
	}
	rec.ReceiptURL = url
	return nil
}

// stubGateway accepts the literal signature "valid" and rejects the rest.
type stubGateway struct{}

func (stubGateway) CreateIntent(_ context.Context, orderID string, amount decimal.Decimal, currency string) (settlement.IntentHandle, error) {
	return settlement.IntentHandle{
		GatewayOrderID: "rzp_" + orderID,
		Amount:         amount,
		Currency:       currency,
	}, nil
}

func (stubGateway) VerifyConfirmation(_ context.Context, conf settlement.Confirmation) error {
	if conf.Signature != "valid" {
		return settlement.ErrSignatureMismatch
	}
	return nil
}

type stubDocumenter struct{}

func (stubDocumenter) Issue(_ context.Context, o settlement.OrderRecord) (settlement.ReceiptArtifact, error) {
	name := "receipt_" + o.ID + "_" + o.BillNumber + ".pdf"
	return settlement.ReceiptArtifact{FileName: name, URL: "https://receipts.test/" + name}, nil
}

type stubNotifier struct{}

func (stubNotifier) Notify(_ context.Context, _ settlement.Notification) (settlement.NotifyStatus, error) {
	return settlement.NotifySent, nil
}

func testPhone(raw string) (string, error) {
	if len(raw) != 10 {
		return "", errors.New("phone number must have 10 digits")
	}
	return "+91" + raw, nil
}

// --- Harness ---

func newTestMux(t *testing.T) (*http.ServeMux, *memLedger) {
	t.Helper()

	ledger := newMemLedger()
	catalog := &memMenu{items: []menu.Item{
		{
			ID:       "rice",
			Name:     "Fried Rice",
			Category: "Mains",
			Price:    decimal.RequireFromString("100"),
			TaxRate:  decimal.RequireFromString("5"),
			TaxMode:  cart.TaxExclusive,
			Image:    "rice.jpg",
		},
		{
			ID:       "chai",
			Name:     "Masala Chai",
			Category: "Beverages",
			Price:    decimal.RequireFromString("25"),
			TaxRate:  decimal.RequireFromString("12"),
			TaxMode:  cart.TaxInclusive,
			Image:    "chai.jpg",
		},
	}}
	vp := venue.Profile{
		Name:          "Test Kitchen",
		CurrencyCode:  "INR",
		CurrencyLabel: "Rs.",
		Tax: venue.TaxConfiguration{
			ServiceChargeRate:       decimal.RequireFromString("10"),
			ServiceChargeDineInOnly: true,
		},
	}
	orch := settlement.NewOrchestrator(
		ledger, stubGateway{}, stubDocumenter{}, stubNotifier{},
		bill.NewGenerator("TEST"), testPhone, vp,
	)
	h := New(Config{
		GatewayKeyID: "rzp_test_key",
		ImageBaseURL: "https://cdn.test/images",
	}, catalog, ledger, orch)

	mux := http.NewServeMux()
	h.Register(mux)
	return mux, ledger
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded), "body: %s", rr.Body.String())
	return rr, decoded
}

func placeOrder(t *testing.T, mux *http.ServeMux) string {
	t.Helper()
	rr, body := doJSON(t, mux, http.MethodPost, "/api/orders", map[string]any{
		"customerName": "Asha",
		"phone":        "9876543210",
		"orderType":    "dine-in",
		"items": []map[string]any{
			{"itemId": "rice", "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return body["orderId"].(string)
}

func initiate(t *testing.T, mux *http.ServeMux, orderID string) string {
	t.Helper()
	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/initiate", map[string]any{"orderId": orderID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return body["gatewayOrderId"].(string)
}

// --- Menu ---

func TestListMenu(t *testing.T) {
	mux, _ := newTestMux(t)

	rr, body := doJSON(t, mux, http.MethodGet, "/api/menu", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["success"])
	items := body["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "rice", first["id"])
	assert.Equal(t, float64(100), first["price"])
	assert.Equal(t, "https://cdn.test/images/rice.jpg", first["image"])
}

// --- Orders ---

func TestRegisterOrder(t *testing.T) {
	mux, ledger := newTestMux(t)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/orders", map[string]any{
		"customerName": "Asha",
		"phone":        "9876543210",
		"orderType":    "dine-in",
		"items": []map[string]any{
			{"itemId": "rice", "quantity": 2},
		},
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "registered", body["state"])
	assert.NotEmpty(t, body["orderId"])
	assert.Contains(t, body["billNumber"], "TEST-")

	breakdown := body["breakdown"].(map[string]any)
	assert.Equal(t, float64(200), breakdown["subtotal"])
	assert.Equal(t, float64(10), breakdown["totalTax"])
	assert.Equal(t, float64(21), breakdown["serviceCharge"])
	assert.Equal(t, float64(231), breakdown["grandTotal"])

	rec, err := ledger.Get(context.Background(), body["orderId"].(string))
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", rec.CustomerPhone)
}

func TestRegisterOrder_UnknownItem(t *testing.T) {
	mux, _ := newTestMux(t)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/orders", map[string]any{
		"phone":     "9876543210",
		"orderType": "take-away",
		"items": []map[string]any{
			{"itemId": "ghost", "quantity": 1},
		},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "ITEM_NOT_FOUND", body["errorCode"])
}

func TestRegisterOrder_EmptyItems(t *testing.T) {
	mux, _ := newTestMux(t)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/orders", map[string]any{
		"phone":     "9876543210",
		"orderType": "dine-in",
		"items":     []map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["errorCode"])
}

func TestRegisterOrder_BadPhone(t *testing.T) {
	mux, _ := newTestMux(t)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/orders", map[string]any{
		"phone":     "123",
		"orderType": "dine-in",
		"items": []map[string]any{
			{"itemId": "rice", "quantity": 1},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["errorCode"])
}

func TestRegisterOrder_MalformedBody(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Payments ---

func TestInitiatePayment(t *testing.T) {
	mux, _ := newTestMux(t)
	orderID := placeOrder(t, mux)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/initiate", map[string]any{"orderId": orderID})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "rzp_"+orderID, body["gatewayOrderId"])
	assert.Equal(t, float64(231), body["amount"])
	assert.Equal(t, float64(23100), body["amountSubunits"])
	assert.Equal(t, "INR", body["currency"])
	assert.Equal(t, "rzp_test_key", body["keyId"])
}

func TestInitiatePayment_UnknownOrder(t *testing.T) {
	mux, _ := newTestMux(t)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/initiate", map[string]any{"orderId": "ghost"})

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", body["errorCode"])
}

func TestInitiatePayment_MissingOrderID(t *testing.T) {
	mux, _ := newTestMux(t)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/initiate", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["errorCode"])
}

func TestVerifyPayment(t *testing.T) {
	mux, _ := newTestMux(t)
	orderID := placeOrder(t, mux)
	gatewayOrderID := initiate(t, mux, orderID)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/verify", map[string]any{
		"orderId":          orderID,
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": "pay_1",
		"signature":        "valid",
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "paid", body["state"])
}

func TestVerifyPayment_Cancelled(t *testing.T) {
	mux, _ := newTestMux(t)
	orderID := placeOrder(t, mux)
	initiate(t, mux, orderID)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/verify", map[string]any{
		"orderId":   orderID,
		"cancelled": true,
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "abandoned_by_user", body["state"])
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	mux, ledger := newTestMux(t)
	orderID := placeOrder(t, mux)
	gatewayOrderID := initiate(t, mux, orderID)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/verify", map[string]any{
		"orderId":          orderID,
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": "pay_1",
		"signature":        "forged",
	})

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "AMBIGUOUS_PAYMENT_OUTCOME", body["errorCode"])

	rec, err := ledger.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, settlement.StateFailed, rec.State)
}

func TestPaymentStatus(t *testing.T) {
	mux, _ := newTestMux(t)
	orderID := placeOrder(t, mux)
	gatewayOrderID := initiate(t, mux, orderID)
	doJSON(t, mux, http.MethodPost, "/api/payments/verify", map[string]any{
		"orderId":          orderID,
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": "pay_1",
		"signature":        "valid",
	})

	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/status", map[string]any{"orderId": orderID})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "paid", body["state"])
	assert.Equal(t, float64(231), body["amountPaid"])
}

func TestPaymentStatus_Unpaid(t *testing.T) {
	mux, _ := newTestMux(t)
	orderID := placeOrder(t, mux)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/payments/status", map[string]any{"orderId": orderID})

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "INVALID_ORDER_STATE", body["errorCode"])
}

// --- Receipts ---

func TestIssueReceipt(t *testing.T) {
	mux, _ := newTestMux(t)
	orderID := placeOrder(t, mux)
	gatewayOrderID := initiate(t, mux, orderID)
	doJSON(t, mux, http.MethodPost, "/api/payments/verify", map[string]any{
		"orderId":          orderID,
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": "pay_1",
		"signature":        "valid",
	})

	rr, body := doJSON(t, mux, http.MethodPost, "/api/receipts", map[string]any{"orderId": orderID})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "completed", body["state"])
	assert.Equal(t, "sent", body["smsStatus"])
	assert.Equal(t, fmt.Sprintf("https://receipts.test/receipt_%s_%s.pdf", orderID, body["billNumber"]), body["receiptUrl"])
	assert.Nil(t, body["degradations"])
}

func TestIssueReceipt_Reissue(t *testing.T) {
	mux, _ := newTestMux(t)
	orderID := placeOrder(t, mux)
	gatewayOrderID := initiate(t, mux, orderID)
	doJSON(t, mux, http.MethodPost, "/api/payments/verify", map[string]any{
		"orderId":          orderID,
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": "pay_1",
		"signature":        "valid",
	})

	_, first := doJSON(t, mux, http.MethodPost, "/api/receipts", map[string]any{"orderId": orderID})
	rr, second := doJSON(t, mux, http.MethodPost, "/api/receipts", map[string]any{"orderId": orderID})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, first["receiptUrl"], second["receiptUrl"])
	assert.Equal(t, "completed", second["state"])
}

func TestIssueReceipt_UnpaidOrder(t *testing.T) {
	mux, _ := newTestMux(t)
	orderID := placeOrder(t, mux)

	rr, body := doJSON(t, mux, http.MethodPost, "/api/receipts", map[string]any{"orderId": orderID})

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "INVALID_ORDER_STATE", body["errorCode"])
}
