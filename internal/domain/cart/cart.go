// Package cart implements the kiosk's order-building cart: an ordered set of
// menu line items keyed by item identity, with merge-on-add semantics.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxMode states whether a line's displayed price already contains its tax.
type TaxMode string

const (
	// TaxInclusive means the unit price already contains tax; no separate
	// tax amount is extracted or added.
	TaxInclusive TaxMode = "inclusive"
	// TaxExclusive means tax is computed on top of the unit price.
	TaxExclusive TaxMode = "exclusive"
)

// LineItem is a snapshot of a menu item inside a cart or an order. Everything
// except Quantity is immutable once the line exists.
type LineItem struct {
	ItemID    string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	TaxMode   TaxMode
}

// LineTotal returns UnitPrice * Quantity without any rounding.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
	ErrNegativePrice   = fmt.Errorf("unit price must not be negative")
	ErrNegativeTaxRate = fmt.Errorf("tax rate must not be negative")
)

// ItemNotInCartError indicates a mutation referenced an item the cart does
// not hold.
type ItemNotInCartError struct {
	ItemID string
}

func (e *ItemNotInCartError) Error() string {
	return fmt.Sprintf("item %s is not in the cart", e.ItemID)
}

// Cart is an ordered collection of line items keyed by item identity.
// Insertion order is preserved for display; pricing does not depend on it.
// No two lines share an ItemID: adding an item already present merges
// quantities instead of creating a second line.
type Cart struct {
	lines []LineItem
	index map[string]int
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{index: make(map[string]int)}
}

// Add puts qty units of the given item into the cart, merging with an
// existing line for the same ItemID. Invalid quantities, negative prices and
// negative tax rates are rejected here so they never reach pricing.
func (c *Cart) Add(item LineItem, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if item.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	if item.TaxRate.IsNegative() {
		return ErrNegativeTaxRate
	}

	if i, ok := c.index[item.ItemID]; ok {
		c.lines[i].Quantity += qty
		return nil
	}

	item.Quantity = qty
	c.index[item.ItemID] = len(c.lines)
	c.lines = append(c.lines, item)
	return nil
}

// SetQuantity replaces the quantity of an existing line. Setting it to zero
// removes the line entirely.
func (c *Cart) SetQuantity(itemID string, qty int) error {
	i, ok := c.index[itemID]
	if !ok {
		return &ItemNotInCartError{ItemID: itemID}
	}
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty == 0 {
		c.removeAt(i)
		return nil
	}
	c.lines[i].Quantity = qty
	return nil
}

// Remove drops a line regardless of its quantity.
func (c *Cart) Remove(itemID string) error {
	i, ok := c.index[itemID]
	if !ok {
		return &ItemNotInCartError{ItemID: itemID}
	}
	c.removeAt(i)
	return nil
}

func (c *Cart) removeAt(i int) {
	delete(c.index, c.lines[i].ItemID)
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].ItemID] = j
	}
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalUnits returns the summed quantity across all lines.
func (c *Cart) TotalUnits() int {
	n := 0
	for _, li := range c.lines {
		n += li.Quantity
	}
	return n
}

// Empty reports whether the cart holds no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}
