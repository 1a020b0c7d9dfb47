package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/menu"
)

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository backed by PostgreSQL.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

const menuColumns = `id, name, category, price, tax_rate, tax_mode, image`

// List returns the full catalog ordered by category then name.
func (r *MenuRepository) List(ctx context.Context) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items ORDER BY category, name`)
	if err != nil {
		return nil, errors.Wrap(err, "listing menu items")
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetByIDs fetches the requested items in a single batch. Missing IDs are
// simply absent from the result; callers detect them by comparing counts.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting menu items")
	}
	defer rows.Close()

	return scanItems(rows)
}

// Upsert inserts or replaces a catalog entry. Used by the seeding tool.
func (r *MenuRepository) Upsert(ctx context.Context, it menu.Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO menu_items (id, name, category, price, tax_rate, tax_mode, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			tax_rate = EXCLUDED.tax_rate,
			tax_mode = EXCLUDED.tax_mode,
			image = EXCLUDED.image`,
		it.ID, it.Name, it.Category, it.Price, it.TaxRate, string(it.TaxMode), it.Image,
	)
	if err != nil {
		return errors.Wrapf(err, "upserting menu item %q", it.ID)
	}
	return nil
}

func scanItems(rows pgx.Rows) ([]menu.Item, error) {
	var items []menu.Item
	for rows.Next() {
		var (
			it      menu.Item
			taxMode string
			price   decimal.Decimal
			taxRate decimal.Decimal
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &price, &taxRate, &taxMode, &it.Image); err != nil {
			return nil, errors.Wrap(err, "scanning menu item")
		}
		it.Price = price
		it.TaxRate = taxRate
		it.TaxMode = cart.TaxMode(taxMode)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating menu items")
	}
	return items, nil
}
