// Package menu defines the venue's item catalog.
package menu

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quickserve/kiosk/internal/domain/cart"
)

// ErrNotFound indicates a menu item does not exist.
var ErrNotFound = fmt.Errorf("menu item not found")

// Item is a purchasable catalog entry. Prices and tax data are resolved from
// the catalog at registration time; the kiosk client never supplies them.
type Item struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
	TaxRate  decimal.Decimal
	TaxMode  cart.TaxMode
	Image    string
}

// Line converts the item into a cart line snapshot.
func (it Item) Line() cart.LineItem {
	return cart.LineItem{
		ItemID:    it.ID,
		Name:      it.Name,
		UnitPrice: it.Price,
		TaxRate:   it.TaxRate,
		TaxMode:   it.TaxMode,
	}
}

// Repository defines read access to the catalog.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
}
