// Package pricing computes the monetary breakdown of a cart: subtotal, tax,
// service charge and grand total. It is a pure calculation with no side
// effects and no rounding of intermediate sums; rounding happens exactly once,
// at the gateway boundary (GatewayAmount) or in the presentation layer.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/venue"
)

var oneHundred = decimal.NewFromInt(100)

// Breakdown decomposes a cart's total. The invariant
// GrandTotal == Subtotal + TotalTax + ServiceCharge holds exactly at the
// internal decimal precision.
type Breakdown struct {
	Subtotal      decimal.Decimal
	TotalTax      decimal.Decimal
	ServiceCharge decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Compute prices the given lines under the venue's tax configuration.
//
// Per line: tax-exclusive items add UnitPrice*Qty*TaxRate/100 of tax on top
// of their line total; tax-inclusive items contribute their line total as-is
// with no separately extracted tax. The service charge applies to
// subtotal+tax, and only when the order qualifies under the venue's dine-in
// gating. An empty cart yields an all-zero breakdown.
func Compute(lines []cart.LineItem, tax venue.TaxConfiguration, dineIn bool) Breakdown {
	subtotal := decimal.Zero
	totalTax := decimal.Zero

	for _, li := range lines {
		lineTotal := li.LineTotal()
		subtotal = subtotal.Add(lineTotal)

		if li.TaxMode == cart.TaxExclusive {
			totalTax = totalTax.Add(lineTotal.Mul(li.TaxRate).Div(oneHundred))
		}
	}

	// Take-away orders never pay a service charge, whatever rate the venue
	// configured. The flag can only narrow further, not widen the gate.
	serviceCharge := decimal.Zero
	chargeable := dineIn && tax.ServiceChargeDineInOnly
	if chargeable && tax.ServiceChargeRate.IsPositive() {
		serviceCharge = subtotal.Add(totalTax).Mul(tax.ServiceChargeRate).Div(oneHundred)
	}

	return Breakdown{
		Subtotal:      subtotal,
		TotalTax:      totalTax,
		ServiceCharge: serviceCharge,
		GrandTotal:    subtotal.Add(totalTax).Add(serviceCharge),
	}
}

// GatewayAmount is the single rounding boundary for money leaving the system:
// the grand total rounded half-up to whole currency units. The ledger keeps
// the unrounded decimal.
func (b Breakdown) GatewayAmount() decimal.Decimal {
	return b.GrandTotal.Round(0)
}

// GatewaySubunits returns the gateway amount in the smallest currency unit
// (paise for INR), which is how the gateway API expects amounts.
func (b Breakdown) GatewaySubunits() int64 {
	return b.GatewayAmount().Mul(oneHundred).IntPart()
}
