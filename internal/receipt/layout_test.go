package receipt

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/pricing"
	"github.com/quickserve/kiosk/internal/domain/settlement"
	"github.com/quickserve/kiosk/internal/domain/venue"
)

func testProfile() venue.Profile {
	return venue.Profile{
		Name:          "Test Kitchen",
		AddressLine1:  "12 MG Road, Indiranagar",
		City:          "Bengaluru",
		State:         "Karnataka",
		CurrencyCode:  "INR",
		CurrencyLabel: "Rs.",
		Tax: venue.TaxConfiguration{
			ServiceChargeRate:       decimal.RequireFromString("10"),
			ServiceChargeDineInOnly: true,
		},
	}
}

func testOrder() settlement.OrderRecord {
	return settlement.OrderRecord{
		ID:            "ord-1",
		BillNumber:    "BILL-260314-150926-1234",
		CustomerName:  "Asha",
		CustomerPhone: "+919876543210",
		OrderType:     settlement.DineIn,
		Items: []cart.LineItem{
			{
				ItemID:    "rice",
				Name:      "Fried Rice",
				Quantity:  2,
				UnitPrice: decimal.RequireFromString("100"),
				TaxRate:   decimal.RequireFromString("5"),
				TaxMode:   cart.TaxExclusive,
			},
		},
		Breakdown: pricing.Breakdown{
			Subtotal:      decimal.RequireFromString("200"),
			TotalTax:      decimal.RequireFromString("10"),
			ServiceCharge: decimal.RequireFromString("21"),
			GrandTotal:    decimal.RequireFromString("231"),
		},
		AmountPaid: decimal.RequireFromString("231"),
		State:      settlement.StateCompleted,
		CreatedAt:  time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}
}

func findPair(lines []Line, label string) (Line, bool) {
	for _, ln := range lines {
		if ln.Kind == KindPair && ln.Label == label {
			return ln, true
		}
	}
	return Line{}, false
}

func hasPairPrefix(lines []Line, prefix string) bool {
	for _, ln := range lines {
		if ln.Kind == KindPair && strings.HasPrefix(ln.Label, prefix) {
			return true
		}
	}
	return false
}

func TestAssemble_Header(t *testing.T) {
	lines := Assemble(testOrder(), testProfile())

	require.NotEmpty(t, lines)
	assert.Equal(t, KindCenter, lines[0].Kind)
	assert.Equal(t, "Test Kitchen", lines[0].Text)
	assert.True(t, lines[0].Bold)
	assert.True(t, lines[0].Big)

	// Address splits on commas.
	assert.Equal(t, "12 MG Road", lines[1].Text)
	assert.Equal(t, "Indiranagar", lines[2].Text)
	assert.Equal(t, "Bengaluru, Karnataka", lines[3].Text)
}

func TestAssemble_OrderDetails(t *testing.T) {
	lines := Assemble(testOrder(), testProfile())

	bill, ok := findPair(lines, "Bill No:")
	require.True(t, ok)
	assert.Equal(t, "BILL-260314-150926-1234", bill.Value)

	date, ok := findPair(lines, "Date:")
	require.True(t, ok)
	assert.Equal(t, "14/03/2026", date.Value)

	tm, ok := findPair(lines, "Time:")
	require.True(t, ok)
	assert.Equal(t, "15:09:26", tm.Value)

	typ, ok := findPair(lines, "Order Type:")
	require.True(t, ok)
	assert.Equal(t, "DINE-IN", typ.Value)
}

func TestAssemble_CustomerFallsBackToPhone(t *testing.T) {
	o := testOrder()
	o.CustomerName = ""

	lines := Assemble(o, testProfile())

	customer, ok := findPair(lines, "Customer:")
	require.True(t, ok)
	assert.Equal(t, "+919876543210", customer.Value)
}

func TestAssemble_Billing(t *testing.T) {
	lines := Assemble(testOrder(), testProfile())

	sub, ok := findPair(lines, "Subtotal:")
	require.True(t, ok)
	assert.Equal(t, "Rs.200", sub.Value)

	gst, ok := findPair(lines, "GST:")
	require.True(t, ok)
	assert.Equal(t, "Rs.10", gst.Value)

	sc, ok := findPair(lines, "Service Charge (10%):")
	require.True(t, ok)
	assert.Equal(t, "Rs.21", sc.Value)

	total, ok := findPair(lines, "TOTAL:")
	require.True(t, ok)
	assert.Equal(t, "Rs.231", total.Value)
	assert.True(t, total.Bold)
	assert.True(t, total.Big)
}

func TestAssemble_NoServiceChargeForTakeAway(t *testing.T) {
	o := testOrder()
	o.OrderType = settlement.TakeAway
	o.Breakdown.ServiceCharge = decimal.Zero
	o.Breakdown.GrandTotal = decimal.RequireFromString("210")
	o.AmountPaid = decimal.RequireFromString("210")

	lines := Assemble(o, testProfile())

	assert.False(t, hasPairPrefix(lines, "Service Charge"))
}

func TestAssemble_NoGSTLineWhenZero(t *testing.T) {
	o := testOrder()
	o.Breakdown.TotalTax = decimal.Zero

	lines := Assemble(o, testProfile())

	_, ok := findPair(lines, "GST:")
	assert.False(t, ok)
}

func TestAssemble_ZeroBalancePrintsNeitherLine(t *testing.T) {
	lines := Assemble(testOrder(), testProfile())

	assert.False(t, hasPairPrefix(lines, "Balance Due"))
	assert.False(t, hasPairPrefix(lines, "Change Given"))
}

func TestAssemble_BalanceDue(t *testing.T) {
	o := testOrder()
	o.AmountPaid = decimal.RequireFromString("200")

	lines := Assemble(o, testProfile())

	due, ok := findPair(lines, "Balance Due:")
	require.True(t, ok)
	assert.Equal(t, "Rs.31", due.Value)
	assert.False(t, hasPairPrefix(lines, "Change Given"))
}

func TestAssemble_ChangeGiven(t *testing.T) {
	o := testOrder()
	o.AmountPaid = decimal.RequireFromString("250")

	lines := Assemble(o, testProfile())

	change, ok := findPair(lines, "Change Given:")
	require.True(t, ok)
	assert.Equal(t, "Rs.19", change.Value)
	assert.False(t, hasPairPrefix(lines, "Balance Due"))
}

func TestAssemble_TruncatesLongItemNames(t *testing.T) {
	o := testOrder()
	o.Items[0].Name = "Extra Spicy Paneer Butter Masala Deluxe"

	lines := Assemble(o, testProfile())

	var row Line
	found := false
	for _, ln := range lines {
		if ln.Kind == KindColumns && !ln.Bold {
			row = ln
			found = true
			break
		}
	}
	require.True(t, found)
	assert.Equal(t, "Extra Spicy Paneer B...", row.Cols[0])
}

func TestAssemble_TruncatesMultiByteNamesOnRunes(t *testing.T) {
	o := testOrder()
	o.Items[0].Name = "पनीर बटर मसाला स्पेशल थाली डीलक्स"

	lines := Assemble(o, testProfile())

	var row Line
	found := false
	for _, ln := range lines {
		if ln.Kind == KindColumns && !ln.Bold {
			row = ln
			found = true
			break
		}
	}
	require.True(t, found)
	name := strings.TrimSuffix(row.Cols[0], "...")
	assert.True(t, utf8.ValidString(name), "truncation must not split a rune")
	assert.Equal(t, maxItemNameLen, len([]rune(name)))
}

func TestAssemble_CustomFooters(t *testing.T) {
	vp := testProfile()
	vp.ReceiptFooters = []string{"GSTIN: 29ABCDE1234F1Z5", "See you soon!"}

	lines := Assemble(testOrder(), vp)

	last := lines[len(lines)-1]
	assert.Equal(t, "See you soon!", last.Text)
	assert.Equal(t, "GSTIN: 29ABCDE1234F1Z5", lines[len(lines)-2].Text)
}

func TestAssemble_Deterministic(t *testing.T) {
	o := testOrder()
	vp := testProfile()

	first := Assemble(o, vp)
	second := Assemble(o, vp)

	assert.Equal(t, first, second)
}

func TestFileName(t *testing.T) {
	o := testOrder()

	assert.Equal(t, "receipt_ord-1_BILL-260314-150926-1234.pdf", FileName(o, ".pdf"))
	assert.Equal(t, FileName(o, ".txt"), FileName(o, ".txt"), "regeneration reuses the name")
}
