// Package receipt assembles the printed receipt for a finalized order.
// Assembly is split in two: a deterministic layout pass that produces
// semantic lines, and a swappable Renderer that turns those lines into
// document bytes (PDF for printing/download, plain text for line printers).
package receipt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quickserve/kiosk/internal/domain/settlement"
	"github.com/quickserve/kiosk/internal/domain/venue"
)

// maxItemNameLen caps item names in the items table.
const maxItemNameLen = 20

// LineKind classifies a layout line.
type LineKind int

const (
	// KindCenter is centered standalone text.
	KindCenter LineKind = iota
	// KindRule is a dashed horizontal separator.
	KindRule
	// KindPair is a left-aligned label with a right-aligned value.
	KindPair
	// KindColumns is a four-column items table row.
	KindColumns
	// KindBlank is vertical spacing.
	KindBlank
)

// Line is one semantic line of the receipt surface.
type Line struct {
	Kind  LineKind
	Text  string
	Label string
	Value string
	Cols  [4]string
	Bold  bool
	Big   bool
}

// Assemble lays out the receipt for an order. The output is fully
// deterministic for a given order record: timestamps come from the order's
// creation time, never the wall clock, so regeneration yields identical
// content.
//
// The service charge line reuses the breakdown computed at registration; the
// receipt never re-derives tax figures from raw totals.
func Assemble(o settlement.OrderRecord, vp venue.Profile) []Line {
	var lines []Line
	center := func(text string, bold, big bool) {
		lines = append(lines, Line{Kind: KindCenter, Text: text, Bold: bold, Big: big})
	}
	pair := func(label, value string, bold, big bool) {
		lines = append(lines, Line{Kind: KindPair, Label: label, Value: value, Bold: bold, Big: big})
	}
	rule := func() { lines = append(lines, Line{Kind: KindRule}) }
	money := func(d decimal.Decimal) string {
		// Two-decimal amounts are an internal precision; receipts display
		// whole currency units.
		return vp.CurrencyLabel + d.StringFixed(0)
	}

	// Venue header.
	center(vp.Name, true, true)
	for _, part := range strings.Split(vp.AddressLine1+","+vp.AddressLine2, ",") {
		if part = strings.TrimSpace(part); part != "" {
			center(part, false, false)
		}
	}
	center(vp.City+", "+vp.State, false, false)
	rule()

	// Order metadata.
	center("ORDER DETAILS", true, false)
	customer := o.CustomerName
	if customer == "" {
		customer = o.CustomerPhone
	}
	pair("Bill No:", o.BillNumber, false, false)
	pair("Order ID:", o.ID, false, false)
	pair("Date:", o.CreatedAt.Format("02/01/2006"), false, false)
	pair("Time:", o.CreatedAt.Format("15:04:05"), false, false)
	pair("Customer:", customer, false, false)
	pair("Phone:", o.CustomerPhone, false, false)
	pair("Order Type:", strings.ToUpper(string(o.OrderType)), false, false)
	rule()

	// Items table.
	center("ITEMS", true, false)
	lines = append(lines, Line{Kind: KindColumns, Cols: [4]string{"Item", "Qty", "Rate", "Total"}, Bold: true})
	rule()
	for _, it := range o.Items {
		name := it.Name
		// Truncate on runes so a multi-byte name cannot be cut mid-character.
		if runes := []rune(name); len(runes) > maxItemNameLen {
			name = string(runes[:maxItemNameLen]) + "..."
		}
		lines = append(lines, Line{Kind: KindColumns, Cols: [4]string{
			name,
			fmt.Sprintf("%d", it.Quantity),
			money(it.UnitPrice),
			money(it.LineTotal()),
		}})
	}
	rule()

	// Billing block, consuming the already-computed breakdown.
	center("BILLING", true, false)
	b := o.Breakdown
	pair("Subtotal:", money(b.Subtotal), false, false)
	if b.TotalTax.IsPositive() {
		pair("GST:", money(b.TotalTax), false, false)
	}
	if o.OrderType == settlement.DineIn && b.ServiceCharge.IsPositive() {
		rate := vp.Tax.ServiceChargeRate
		pair(fmt.Sprintf("Service Charge (%s%%):", rate.String()), money(b.ServiceCharge), false, false)
	}
	rule()

	pair("TOTAL:", money(b.GrandTotal), true, true)
	pair("Amount Paid:", money(o.AmountPaid), false, false)

	// A zero balance prints neither line.
	balance := b.GrandTotal.Sub(o.AmountPaid)
	switch {
	case balance.IsPositive():
		pair("Balance Due:", money(balance), true, false)
	case balance.IsNegative():
		pair("Change Given:", money(balance.Abs()), false, false)
	}
	rule()

	// Footer.
	footers := vp.ReceiptFooters
	if len(footers) == 0 {
		footers = []string{"Thank you for choosing us!", "Please visit again."}
	}
	for _, f := range footers {
		center(f, false, false)
	}

	return lines
}

// FileName derives the stable document name for an order. Regenerating the
// receipt reuses the same name, making storage writes idempotent.
func FileName(o settlement.OrderRecord, ext string) string {
	return fmt.Sprintf("receipt_%s_%s%s", o.ID, o.BillNumber, ext)
}
