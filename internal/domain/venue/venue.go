// Package venue holds the static configuration of a restaurant location:
// identity printed on receipts and the tax rules applied at checkout.
package venue

import "github.com/shopspring/decimal"

// Profile describes a single restaurant location. It is constructed once at
// startup from configuration and passed explicitly to the components that
// need it; nothing reads venue data from ambient state.
type Profile struct {
	Name         string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string

	// CountryCode is the fixed dialing prefix for customer phone numbers,
	// e.g. "+91". The kiosk serves a single country.
	CountryCode string

	// CurrencyCode is the ISO currency submitted to the payment gateway,
	// e.g. "INR". CurrencyLabel is what receipts print, e.g. "Rs.".
	CurrencyCode  string
	CurrencyLabel string

	// ReceiptFooters are printed at the bottom of every receipt.
	ReceiptFooters []string

	Tax TaxConfiguration
}

// TaxConfiguration holds the venue-level charges applied on top of item
// prices. Item-level tax rates live on the menu items themselves.
type TaxConfiguration struct {
	// ServiceChargeRate is a percentage applied to subtotal+tax.
	ServiceChargeRate decimal.Decimal

	// ServiceChargeDineInOnly enables the service charge for dine-in
	// orders. Take-away orders never pay it, whatever this is set to.
	ServiceChargeDineInOnly bool
}
