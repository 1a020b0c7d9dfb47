package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/quickserve/kiosk/internal/domain/cart"
	"github.com/quickserve/kiosk/internal/domain/menu"
	"github.com/quickserve/kiosk/internal/storage/postgres"
)

// upsertWorkers bounds concurrent catalog upserts against the pool.
const upsertWorkers = 8

type menuItemJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	TaxRate  decimal.Decimal `json:"taxRate"`
	TaxMode  string          `json:"taxMode"`
	Image    string          `json:"image"`
}

func main() {
	var (
		databaseURL string
		menuFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "db/seed/menu.json", "path to menu JSON file (.json or .json.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, menuFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, menuFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	items, err := readMenu(menuFile)
	if err != nil {
		return errors.Wrap(err, "read menu")
	}

	repo := postgres.NewMenuRepository(pool)

	slog.Info("upserting menu items", slog.Int("count", len(items)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(upsertWorkers)
	for _, raw := range items {
		g.Go(func() error {
			it := menu.Item{
				ID:       raw.ID,
				Name:     raw.Name,
				Category: raw.Category,
				Price:    raw.Price,
				TaxRate:  raw.TaxRate,
				TaxMode:  cart.TaxMode(raw.TaxMode),
				Image:    raw.Image,
			}
			if err := repo.Upsert(ctx, it); err != nil {
				return errors.Wrapf(err, "upsert item %s", raw.ID)
			}
			slog.Info("upserted item", slog.String("id", raw.ID), slog.String("name", raw.Name))
			return nil
		})
	}
	return g.Wait()
}

// readMenu loads the catalog file, transparently decompressing .gz exports.
func readMenu(path string) ([]menuItemJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open menu file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		r = gz
	}

	var items []menuItemJSON
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, errors.Wrap(err, "parse menu JSON")
	}
	return items, nil
}
